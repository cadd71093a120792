package domain

import "time"

// DefaultAvatar is assigned when a user registers without uploading one.
const DefaultAvatar = "profile.jpg"

// User is the domain model for accounts that sign in to the service.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	Avatar       string
	// Token caches the last bearer token issued to the user.
	Token *string

	PasswordResetCode      *string
	PasswordResetExpiresAt *time.Time
	PasswordResetVerified  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetState describes where a user is in the password reset lifecycle.
type ResetState string

const (
	ResetStateNone     ResetState = "NONE"
	ResetStateIssued   ResetState = "CODE_ISSUED"
	ResetStateVerified ResetState = "VERIFIED"
)

// ResetState derives the lifecycle state from the stored reset fields.
func (u *User) ResetState() ResetState {
	switch {
	case u.PasswordResetVerified:
		return ResetStateVerified
	case u.PasswordResetCode != nil:
		return ResetStateIssued
	default:
		return ResetStateNone
	}
}
