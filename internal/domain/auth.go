package domain

import "time"

// Token represents issued bearer token metadata.
type Token struct {
	Value     string
	UserID    string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
