package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/ticket-sync/internal/domain"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// RequireRole ensures the authenticated user has one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("Not authenticated")
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("Not enough permissions")
		}
		return c.Next()
	}
}
