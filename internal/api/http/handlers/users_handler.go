package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/validation"
)

// UsersHandler exposes account and password reset endpoints.
type UsersHandler struct {
	auth     *service.AuthService
	users    *service.UserService
	validate *validation.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService, v *validation.Validator) *UsersHandler {
	return &UsersHandler{auth: authService, users: userService, validate: v}
}

// Register handles POST /api/v1/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	avatar, closeAvatar, err := formFile(c, "avatar", false)
	if err != nil {
		return err
	}
	defer closeAvatar()

	user, token, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Avatar:    avatar,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.Success(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.NewAuthResponse(token),
	}))
}

// Login handles POST /api/v1/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	_, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewAuthResponse(token)))
}

// ForgotPassword handles POST /api/v1/users/forgot-password.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("a reset code was sent to your email", nil))
}

// VerifyResetCode handles POST /api/v1/users/verify-reset-code.
func (h *UsersHandler) VerifyResetCode(c *fiber.Ctx) error {
	var req dto.VerifyResetCodeRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.auth.VerifyResetCode(c.UserContext(), req.Code); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("reset code verified", nil))
}

// ResetPassword handles PUT /api/v1/users/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	token, err := h.auth.ResetPassword(c.UserContext(), req.Email, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("password updated", dto.NewAuthResponse(token)))
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	q, err := pageQuery(c)
	if err != nil {
		return err
	}
	users, total, err := h.users.List(c.UserContext(), q.Repository())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(dto.Success(listData("users", items, q, total)))
}

// Create handles POST /api/v1/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	var role domain.Role
	if req.Role != "" {
		parsed, err := parseRole(req.Role)
		if err != nil {
			return err
		}
		role = parsed
	}
	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.Success(fiber.Map{"user": dto.NewUserResponse(user)}))
}

// Get handles GET /api/v1/users/:userId.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"user": dto.NewUserResponse(user)}))
}

// Update handles PATCH /api/v1/users/:userId.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	avatar, closeAvatar, err := formFile(c, "avatar", false)
	if err != nil {
		return err
	}
	defer closeAvatar()

	in := service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Avatar:    avatar,
	}
	if req.Role != nil {
		role, err := parseRole(*req.Role)
		if err != nil {
			return err
		}
		in.Role = &role
	}
	user, err := h.users.Update(c.UserContext(), service.Actor{ID: p.UserID, Role: p.Role}, id, in)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(fiber.Map{"user": dto.NewUserResponse(user)}))
}

// Delete handles DELETE /api/v1/users/:userId.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.SuccessMessage("user deleted", nil))
}
