package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"veloce/internal/apperrors"
	"veloce/internal/models"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[int64]models.Order
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[int64]models.Order),
	}
}

// GetAll returns all orders, newest first.
func (r *MemoryOrderRepository) GetAll(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		order.Items = append([]models.LineItem(nil), order.Items...)
		orderList = append(orderList, order)
	}
	sort.Slice(orderList, func(i, j int) bool {
		if !orderList[i].CreatedAt.Equal(orderList[j].CreatedAt) {
			return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
		}
		return orderList[i].ID > orderList[j].ID
	})
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(_ context.Context, id int64) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %d %w", id, apperrors.ErrNotFound)
	}
	order.Items = append([]models.LineItem(nil), order.Items...)
	return &order, nil
}

// Create adds a new order.
func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	stored := *order
	stored.Items = append([]models.LineItem(nil), order.Items...)
	r.orders[order.ID] = stored
	return nil
}

// UpdateStatus updates the status of an order.
func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id int64, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %d %w", id, apperrors.ErrNotFound)
	}
	order.Status = status
	r.orders[id] = order
	return nil
}
