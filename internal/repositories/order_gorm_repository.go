package repositories

import (
	"context"
	"errors"
	"fmt"

	"veloce/internal/apperrors"
	"veloce/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository. Line items
// live in the orders table as a JSON text column.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll returns all orders, newest first.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get all orders: %w", apperrors.ErrStorage, err)
	}
	return orders, nil
}

// GetByID returns an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %d %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to get order by ID %d: %w", apperrors.ErrStorage, id, err)
	}
	return &order, nil
}

// Create inserts a new order; the database assigns ID and CreatedAt.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	order.ID = 0
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("%w: failed to create order: %w", apperrors.ErrStorage, err)
	}
	return nil
}

// UpdateStatus overwrites the status of an order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("%w: failed to update order status: %w", apperrors.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %d %w", id, apperrors.ErrNotFound)
	}
	return nil
}
