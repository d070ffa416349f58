package handlers

import (
	"veloce/internal/models"
	"veloce/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the order routes. Placement is public; listing
// and status changes are wrapped in admin.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, admin fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandlePlaceOrder)
	orderRoutes.Get("/", admin, h.HandleGetOrders)
	orderRoutes.Put("/:id/status", admin, h.HandleUpdateOrderStatus)
}

// HandleGetOrders retrieves all orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders(c.UserContext())
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

// HandlePlaceOrder persists a checkout. The total is stored as supplied.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var orderRequest models.Order
	if err := c.BodyParser(&orderRequest); err != nil {
		h.log.Debug("Error parsing order body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(orderRequest); err != nil {
		return validationResponse(c, err)
	}

	order, err := h.service.PlaceOrder(c.UserContext(), orderRequest)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Order placed successfully!",
		"orderId": order.ID,
	})
}

// HandleUpdateOrderStatus overwrites the status of an order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	var updateData struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !models.OrderStatus(updateData.Status).Valid() {
		return badRequest(c, "Invalid status")
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), id, updateData.Status)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Status updated",
		"id":      order.ID,
		"status":  order.Status,
	})
}
