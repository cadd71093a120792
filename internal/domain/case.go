package domain

import "time"

// Case is a tracked medical case.
type Case struct {
	ID        string
	UserID    string
	FullName  string
	Code      int
	Disease   string
	Age       int
	Date      time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
