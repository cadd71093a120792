package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// CreateReportRequest holds the multipart fields besides the PDF itself.
// CaseID is taken from the path on nested routes.
type CreateReportRequest struct {
	CaseID string `form:"caseId" validate:"required,uuid"`
}

// MoveReportRequest reattaches a report to another case.
type MoveReportRequest struct {
	CaseID string `json:"caseId" validate:"required,uuid"`
}

// ReportResponse representation.
type ReportResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CaseID       string    `json:"caseId"`
	CaseFullName string    `json:"caseFullName,omitempty"`
	Report       string    `json:"report"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewReportResponse(r *domain.Report) ReportResponse {
	return ReportResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		CaseID:       r.CaseID,
		CaseFullName: r.CaseFullName,
		Report:       r.File,
		URL:          "/files/reports/" + r.File,
		CreatedAt:    r.CreatedAt,
	}
}
