package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// MailStatus reports the state of the outbound mail transport.
type MailStatus interface {
	// Active reports whether a transport client has been built.
	Active() bool
}

// SystemHandler serves health and non-sensitive diagnostics.
type SystemHandler struct {
	mail      MailStatus
	hasUser   bool
	hasPass   bool
	brokerSet bool
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(mail MailStatus, hasUser, hasPass, brokerSet bool) *SystemHandler {
	return &SystemHandler{mail: mail, hasUser: hasUser, hasPass: hasPass, brokerSet: brokerSet}
}

// RegisterRoutes registers /health on app and /_smtp on api.
func (h *SystemHandler) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Get("/health", h.HandleHealth)
	api.Get("/_smtp", h.HandleSMTP)
}

// HandleHealth reports liveness.
func (h *SystemHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"rabbitMQ": h.brokerSet,
	})
}

// HandleSMTP reports whether mail credentials are present, never their values.
func (h *SystemHandler) HandleSMTP(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"hasUser":           h.hasUser,
		"hasPass":           h.hasPass,
		"transporterActive": h.mail != nil && h.mail.Active(),
	})
}
