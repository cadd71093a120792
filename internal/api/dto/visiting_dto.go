package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// CreateVisitingRequest payload. CaseID is taken from the path on nested routes.
type CreateVisitingRequest struct {
	CaseID   string     `json:"caseId" validate:"required,uuid"`
	Visiting *time.Time `json:"visiting" validate:"required"`
	Comments *string    `json:"comments" validate:"omitempty,max=2000"`
}

// UpdateVisitingRequest payload; omitted fields are left unchanged.
type UpdateVisitingRequest struct {
	CaseID   *string    `json:"caseId" validate:"omitempty,uuid"`
	Visiting *time.Time `json:"visiting"`
	Comments *string    `json:"comments" validate:"omitempty,max=2000"`
}

// VisitingResponse representation.
type VisitingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CaseID    string    `json:"caseId"`
	Visiting  time.Time `json:"visiting"`
	Comments  *string   `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewVisitingResponse(v *domain.Visiting) VisitingResponse {
	return VisitingResponse{
		ID:        v.ID,
		UserID:    v.UserID,
		CaseID:    v.CaseID,
		Visiting:  v.VisitedAt,
		Comments:  v.Comments,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
