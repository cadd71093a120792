package domain

import "time"

// Visiting records a visit made for a case.
type Visiting struct {
	ID        string
	UserID    string
	CaseID    string
	VisitedAt time.Time
	Comments  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
