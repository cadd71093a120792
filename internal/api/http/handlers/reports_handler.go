package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/validation"
)

// ReportsHandler manages report endpoints, flat and nested under a case.
type ReportsHandler struct {
	reports  *service.ReportService
	validate *validation.Validator
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService, v *validation.Validator) *ReportsHandler {
	return &ReportsHandler{reports: reportService, validate: v}
}

// List GET /api/v1/reports and /api/v1/cases/:caseId/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	caseID, err := optionalPathID(c, "caseId")
	if err != nil {
		return err
	}
	q, err := pageQuery(c)
	if err != nil {
		return err
	}
	reports, total, err := h.reports.List(c.UserContext(), repository.ReportFilter{CaseID: caseID, Page: q.Repository()})
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, dto.NewReportResponse(&reports[i]))
	}
	return c.JSON(dto.Success(listData("reports", items, q, total)))
}

// Create POST with a multipart "report" PDF.
func (h *ReportsHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateReportRequest
	if nested, err := optionalPathID(c, "caseId"); err != nil {
		return err
	} else if nested != nil {
		req.CaseID = *nested
	} else {
		req.CaseID = c.FormValue("caseId")
	}
	if err := validate(h.validate, &req); err != nil {
		return err
	}

	upload, closeUpload, err := formFile(c, "report", true)
	if err != nil {
		return err
	}
	defer closeUpload()

	report, err := h.reports.Create(c.UserContext(), p.UserID, req.CaseID, *upload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.Success(fiber.Map{"report": dto.NewReportResponse(report)}))
}

// Get GET .../:reportId.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "reportId")
	if err != nil {
		return err
	}
	report, err := h.reports.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"report": dto.NewReportResponse(report)}))
}

// Update PATCH .../:reportId moves the report to another case.
func (h *ReportsHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "reportId")
	if err != nil {
		return err
	}
	var req dto.MoveReportRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	report, err := h.reports.Move(c.UserContext(), id, req.CaseID)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"report": dto.NewReportResponse(report)}))
}

// Delete DELETE .../:reportId.
func (h *ReportsHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "reportId")
	if err != nil {
		return err
	}
	if err := h.reports.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("report deleted", nil))
}
