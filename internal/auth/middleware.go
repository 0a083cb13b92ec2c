package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/metadata"
)

// TokenHeader is the custom header accepted in place of Authorization.
const TokenHeader = "x-auth-token"

// extractToken reads the credential from "Authorization: Bearer <t>" or
// from the x-auth-token header.
func extractToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Get(TokenHeader))
}

// AuthMiddleware returns a Fiber middleware that validates the credential
// and stores the principal in c.Locals("user"). A non-empty requiredRole
// is demanded of every request passing through.
func AuthMiddleware(secret, requiredRole string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return engine.UnauthorizedError("No token provided")
		}

		claims, err := ParseToken(token, secret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				return engine.UnauthorizedError("Token expired")
			}
			return engine.UnauthorizedError("Invalid or expired token")
		}

		user := claims.Principal()
		if requiredRole != "" && !user.HasRole(requiredRole) {
			return engine.ForbiddenError("Insufficient permissions")
		}

		c.Locals("user", user)
		c.SetUserContext(instrument.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// GetUser extracts the principal from a Fiber context.
func GetUser(c *fiber.Ctx) *metadata.Principal {
	user, _ := c.Locals("user").(*metadata.Principal)
	return user
}
