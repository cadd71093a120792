package domain

import "time"

// Report is an uploaded PDF attached to a case.
type Report struct {
	ID     string
	UserID string
	CaseID string
	// File is the stored object name of the PDF.
	File string
	// CaseFullName is filled by reads that join the owning case.
	CaseFullName string
	CreatedAt    time.Time
}
