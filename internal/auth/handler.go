package auth

import (
	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	cfg    config.AuthConfig
	tokens *Tokens
}

func NewAuthHandler(cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: NewTokens(cfg)}
}

// Login handles POST /api/auth/login. There is one principal, the admin,
// identified by the password whose bcrypt hash is configured.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if !h.cfg.Enabled() {
		return engine.NewAppError("AUTH_DISABLED", 404, "Authentication is not configured")
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Password == "" {
		return engine.UnauthorizedError("Password is required")
	}
	if !CheckPassword(body.Password, h.cfg.AdminPasswordHash) {
		return engine.UnauthorizedError("Invalid password")
	}

	token, err := h.tokens.Issue(AdminSubject, AdminRole)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokens.TTL().Seconds()),
	}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app fiber.Router, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
}
