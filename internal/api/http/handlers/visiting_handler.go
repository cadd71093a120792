package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/validation"
)

// VisitingHandler manages visit endpoints, flat and nested under a case.
type VisitingHandler struct {
	visits   *service.VisitingService
	validate *validation.Validator
}

// NewVisitingHandler constructs handler.
func NewVisitingHandler(visitingService *service.VisitingService, v *validation.Validator) *VisitingHandler {
	return &VisitingHandler{visits: visitingService, validate: v}
}

// List GET /api/v1/visiting and /api/v1/cases/:caseId/visiting.
func (h *VisitingHandler) List(c *fiber.Ctx) error {
	caseID, err := optionalPathID(c, "caseId")
	if err != nil {
		return err
	}
	q, err := pageQuery(c)
	if err != nil {
		return err
	}
	visits, total, err := h.visits.List(c.UserContext(), repository.VisitingFilter{CaseID: caseID, Page: q.Repository()})
	if err != nil {
		return err
	}
	items := make([]dto.VisitingResponse, 0, len(visits))
	for i := range visits {
		items = append(items, dto.NewVisitingResponse(&visits[i]))
	}
	return c.JSON(dto.Success(listData("visiting", items, q, total)))
}

// Create POST a visit.
func (h *VisitingHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	nested, err := optionalPathID(c, "caseId")
	if err != nil {
		return err
	}
	var req dto.CreateVisitingRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if nested != nil {
		req.CaseID = *nested
	}
	if err := validate(h.validate, &req); err != nil {
		return err
	}
	v, err := h.visits.Create(c.UserContext(), p.UserID, service.VisitingInput{
		CaseID:    req.CaseID,
		VisitedAt: *req.Visiting,
		Comments:  req.Comments,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.Success(fiber.Map{"visiting": dto.NewVisitingResponse(v)}))
}

// Get GET .../:visitingId.
func (h *VisitingHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "visitingId")
	if err != nil {
		return err
	}
	v, err := h.visits.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"visiting": dto.NewVisitingResponse(v)}))
}

// Update PATCH .../:visitingId.
func (h *VisitingHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "visitingId")
	if err != nil {
		return err
	}
	var req dto.UpdateVisitingRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	v, err := h.visits.Update(c.UserContext(), id, service.VisitingPatch{
		CaseID:    req.CaseID,
		VisitedAt: req.Visiting,
		Comments:  req.Comments,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"visiting": dto.NewVisitingResponse(v)}))
}

// Delete DELETE .../:visitingId.
func (h *VisitingHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "visitingId")
	if err != nil {
		return err
	}
	if err := h.visits.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("visiting deleted", nil))
}
