package repositories

import (
	"context"
	"errors"
	"fmt"

	"veloce/internal/apperrors"
	"veloce/internal/models"

	"gorm.io/gorm"
)

// updatableProductColumns are overwritten by Update. id and created_at never change.
var updatableProductColumns = []string{"name", "category", "price", "image", "hover_image", "description", "stock", "best_seller"}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List retrieves the products matching filter.
func (r *GORMProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	f := filter.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Product{})

	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.BestSeller != nil {
		q = q.Where("best_seller = ?", *f.BestSeller)
	}
	switch f.PriceBand {
	case models.PriceBandUnder100:
		q = q.Where("price < ?", 100)
	case models.PriceBand100To200:
		q = q.Where("price >= ? AND price <= ?", 100, 200)
	case models.PriceBandOver200:
		q = q.Where("price > ?", 200)
	}
	switch f.Sort {
	case models.SortNewest:
		q = q.Order("created_at DESC").Order("id DESC")
	case models.SortPriceLow:
		q = q.Order("price ASC").Order("id ASC")
	case models.SortPriceHigh:
		q = q.Order("price DESC").Order("id ASC")
	default:
		q = q.Order("id ASC")
	}

	products := []models.Product{}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list products: %w", apperrors.ErrStorage, err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %d %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to get product by ID %d: %w", apperrors.ErrStorage, id, err)
	}
	return &product, nil
}

// Create inserts a new product; the database assigns ID and CreatedAt.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = 0
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("%w: failed to create product: %w", apperrors.ErrStorage, err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	// Select forces zero values (empty image, stock 0, best_seller false) to be written.
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select(updatableProductColumns).
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("%w: failed to update product: %w", apperrors.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d %w", product.ID, apperrors.ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("%w: failed to delete product: %w", apperrors.ErrStorage, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count returns the number of products in the catalog.
func (r *GORMProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: failed to count products: %w", apperrors.ErrStorage, err)
	}
	return n, nil
}
