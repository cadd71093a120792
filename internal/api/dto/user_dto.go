package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// RegisterRequest is a self-service signup. It is accepted as JSON or multipart with an avatar.
type RegisterRequest struct {
	FirstName string `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" form:"lastName" validate:"required,max=100"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required,min=6,bcrypt"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyResetCodeRequest submits the mailed code.
type VerifyResetCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest completes a verified reset.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,min=6,bcrypt"`
}

// CreateUserRequest is an administrator-created account.
type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,bcrypt"`
	Role      string `json:"role" validate:"omitempty,oneof=USER ADMIN SUPER_ADMIN"`
}

// UpdateUserRequest is a partial profile update; omitted fields are left unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" form:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" form:"lastName" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" form:"email" validate:"omitempty,email"`
	Role      *string `json:"role" form:"role" validate:"omitempty,oneof=USER ADMIN SUPER_ADMIN"`
}

// UserResponse never carries the password hash, the cached token or reset state.
type UserResponse struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Avatar    string      `json:"avatar"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// AuthResponse carries a freshly issued bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewAuthResponse(t domain.Token) AuthResponse {
	return AuthResponse{Token: t.Value, ExpiresAt: t.ExpiresAt}
}
