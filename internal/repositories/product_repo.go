package repositories

import (
	"context"

	"veloce/internal/models"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	// List never fails because of a filter combination; an empty slice is a
	// valid result.
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update overwrites every mutable column of an existing product.
	Update(ctx context.Context, product *models.Product) error
	// Delete reports whether a row was removed. Deleting an unknown id is not
	// an error.
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}
