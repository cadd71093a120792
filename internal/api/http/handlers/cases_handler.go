package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/validation"
)

// CasesHandler manages case endpoints.
type CasesHandler struct {
	cases    *service.CaseService
	validate *validation.Validator
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService, v *validation.Validator) *CasesHandler {
	return &CasesHandler{cases: caseService, validate: v}
}

// List GET /api/v1/cases.
func (h *CasesHandler) List(c *fiber.Ctx) error {
	q, err := pageQuery(c)
	if err != nil {
		return err
	}
	cases, total, err := h.cases.List(c.UserContext(), q.Repository())
	if err != nil {
		return err
	}
	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, dto.NewCaseResponse(&cases[i]))
	}
	return c.JSON(dto.Success(listData("cases", items, q, total)))
}

// Create POST /api/v1/cases.
func (h *CasesHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCaseRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	created, err := h.cases.Create(c.UserContext(), p.UserID, service.CaseInput{
		FullName: req.FullName,
		Code:     *req.Code,
		Disease:  req.Disease,
		Age:      *req.Age,
		Date:     req.Date,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.Success(fiber.Map{"case": dto.NewCaseResponse(created)}))
}

// Get GET /api/v1/cases/:caseId.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "caseId")
	if err != nil {
		return err
	}
	found, err := h.cases.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"case": dto.NewCaseResponse(found)}))
}

// Update PATCH /api/v1/cases/:caseId.
func (h *CasesHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "caseId")
	if err != nil {
		return err
	}
	var req dto.UpdateCaseRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	updated, err := h.cases.Update(c.UserContext(), id, service.CasePatch{
		FullName: req.FullName,
		Code:     req.Code,
		Disease:  req.Disease,
		Age:      req.Age,
		Date:     req.Date,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"case": dto.NewCaseResponse(updated)}))
}

// Delete DELETE /api/v1/cases/:caseId.
func (h *CasesHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "caseId")
	if err != nil {
		return err
	}
	if err := h.cases.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("case deleted", nil))
}
