package handlers

import (
	"errors"

	"veloce/internal/apperrors"
	"veloce/internal/middleware"
	"veloce/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles the administrator session endpoints.
type AuthHandler struct {
	authService  *services.AuthService
	cookieSecure bool
	log          *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. cookieSecure sets the Secure
// attribute on the session cookie.
func NewAuthHandler(authService *services.AuthService, cookieSecure bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// RegisterRoutes registers the admin session routes. Only "me" needs admin.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, admin fiber.Handler) {
	authRoutes := router.Group("/admin")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", admin, h.HandleMe)
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandleLogin checks the credentials and sets the session cookie.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.log.Warn("Admin login failed", zap.String("email", req.Email), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		h.log.Error("Admin login error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt, h.cookieSecure)
	return c.JSON(fiber.Map{"message": "Login successful"})
}

// HandleLogout expires the session cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	middleware.ClearSessionCookie(c, h.cookieSecure)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleMe returns the verified administrator identity.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"email": middleware.AdminEmail(c)})
}
