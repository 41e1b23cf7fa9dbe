package auth

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
	"corisa-backend/internal/instrument"
)

// Middleware returns a Fiber middleware that requires an admin JWT. When no
// admin password hash is configured every request passes.
func Middleware(cfg config.AuthConfig) fiber.Handler {
	if !cfg.Enabled() {
		log.Println("WARN: auth.admin_password_hash is not set; admin routes are unauthenticated")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	tokens := NewTokens(cfg)
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}
		if !claims.HasRole(AdminRole) {
			return engine.ForbiddenError("Admin access required")
		}

		c.Locals(instrument.UserLocal, claims.Subject)
		c.SetUserContext(instrument.WithUserID(c.UserContext(), claims.Subject))

		return c.Next()
	}
}

// GetUser returns the authenticated subject, or "" when auth is disabled.
func GetUser(c *fiber.Ctx) string {
	user, _ := c.Locals(instrument.UserLocal).(string)
	return user
}
