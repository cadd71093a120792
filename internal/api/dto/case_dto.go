package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	FullName string     `json:"fullName" validate:"required,max=200"`
	Code     *int       `json:"code" validate:"required,gte=0"`
	Disease  string     `json:"disease" validate:"required,max=200"`
	Age      *int       `json:"age" validate:"required,gte=0,lte=150"`
	Date     *time.Time `json:"date"`
}

// UpdateCaseRequest payload; omitted fields are left unchanged.
type UpdateCaseRequest struct {
	FullName *string    `json:"fullName" validate:"omitempty,min=1,max=200"`
	Code     *int       `json:"code" validate:"omitempty,gte=0"`
	Disease  *string    `json:"disease" validate:"omitempty,min=1,max=200"`
	Age      *int       `json:"age" validate:"omitempty,gte=0,lte=150"`
	Date     *time.Time `json:"date"`
}

// CaseResponse representation.
type CaseResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FullName  string    `json:"fullName"`
	Code      int       `json:"code"`
	Disease   string    `json:"disease"`
	Age       int       `json:"age"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewCaseResponse(c *domain.Case) CaseResponse {
	return CaseResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		FullName:  c.FullName,
		Code:      c.Code,
		Disease:   c.Disease,
		Age:       c.Age,
		Date:      c.Date,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
