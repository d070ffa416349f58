package services

import (
	"context"
	"fmt"
	"time"

	"veloce/internal/apperrors"
	"veloce/internal/models"
	"veloce/internal/repositories"
	"veloce/pkg/rabbitmq"

	"go.uber.org/zap"
)

// OrderNotifier is told about every persisted order. Implementations must
// not block the caller on delivery.
type OrderNotifier interface {
	OrderPlaced(order models.Order)
}

// EventPublisher emits order lifecycle events to a message broker.
type EventPublisher interface {
	PublishOrderEvent(ev rabbitmq.OrderEvent) error
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	notifier  OrderNotifier
	events    EventPublisher
	log       *zap.Logger
}

// NewOrderService creates a new OrderService. notifier and events may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, notifier OrderNotifier, events EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		notifier:  notifier,
		events:    events,
		log:       log,
	}
}

// GetAllOrders retrieves all orders, newest first.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// PlaceOrder persists order with status Pending. The total is stored as
// supplied; only its sign is checked. Notification and event delivery happen
// after the write and never fail the placement.
func (s *OrderService) PlaceOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", apperrors.ErrValidation)
	}
	if order.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: total_amount must not be negative", apperrors.ErrValidation)
	}
	for i, item := range order.Items {
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has a negative price", apperrors.ErrValidation, i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d quantity must be at least 1", apperrors.ErrValidation, i)
		}
	}

	// Identity, status and creation time are assigned here and at insert,
	// never taken from the caller.
	order.ID = 0
	order.Status = models.StatusPending
	order.CreatedAt = time.Time{}
	if err := s.orderRepo.Create(ctx, &order); err != nil {
		return nil, err
	}
	s.log.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	if s.notifier != nil {
		s.notifier.OrderPlaced(order)
	}
	s.publish(rabbitmq.EventOrderPlaced, order)
	return &order, nil
}

// UpdateOrderStatus sets the status of order id. An unknown status is
// rejected before storage is touched.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return nil, fmt.Errorf("%w: invalid order status %q", apperrors.ErrValidation, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Order status updated", zap.Int64("order_id", id), zap.String("status", status))
	s.publish(rabbitmq.EventOrderStatusChanged, *order)
	return order, nil
}

func (s *OrderService) publish(eventType string, order models.Order) {
	if s.events == nil {
		return
	}
	err := s.events.PublishOrderEvent(rabbitmq.OrderEvent{
		Type:     eventType,
		OrderID:  order.ID,
		Status:   string(order.Status),
		Total:    order.TotalAmount,
		Customer: order.CustomerName,
	})
	if err != nil {
		s.log.Warn("Failed to publish order event",
			zap.String("type", eventType),
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}
