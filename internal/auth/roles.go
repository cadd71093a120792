package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// Allow reports whether role is a member of allowed. An empty set admits nobody.
func Allow(role domain.Role, allowed ...domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

// RequireRole admits authenticated callers whose role is in allowed.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !Allow(principal.Role, allowed...) {
			return apperrors.NewForbidden("you are not allowed to perform this action")
		}
		return c.Next()
	}
}
