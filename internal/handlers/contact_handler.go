package handlers

import (
	"context"

	"veloce/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ContactNotifier delivers contact-form submissions. delivered is false when
// no mail transport is configured.
type ContactNotifier interface {
	Contact(ctx context.Context, msg models.ContactMessage) (delivered bool, err error)
}

// ContactHandler handles storefront contact-form submissions.
type ContactHandler struct {
	notifier ContactNotifier
	validate *validator.Validate
	log      *zap.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(notifier ContactNotifier, log *zap.Logger) *ContactHandler {
	return &ContactHandler{
		notifier: notifier,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the contact route.
func (h *ContactHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/contact", h.HandleContact)
}

// HandleContact mails the submission to the operator. Unlike order
// placement, a failed send with a configured transport is reported.
func (h *ContactHandler) HandleContact(c *fiber.Ctx) error {
	var msg models.ContactMessage
	if err := c.BodyParser(&msg); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(msg); err != nil {
		return validationResponse(c, err)
	}

	delivered, err := h.notifier.Contact(c.UserContext(), msg)
	if err != nil {
		h.log.Error("Email send failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Email send failed"})
	}
	if !delivered {
		return c.JSON(fiber.Map{"message": "Message received (email not configured)"})
	}
	return c.JSON(fiber.Map{"message": "Message sent successfully"})
}
