package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"veloce/internal/apperrors"
	"veloce/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[int64]models.Product
	nextID   int64
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[int64]models.Product),
	}
}

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// List returns the products matching filter.
func (r *MemoryProductRepository) List(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f := filter.Normalize()
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.BestSeller != nil && p.BestSeller != *f.BestSeller {
			continue
		}
		if !inPriceBand(p.Price, f.PriceBand) {
			continue
		}
		productList = append(productList, p)
	}

	sort.Slice(productList, func(i, j int) bool {
		a, b := productList[i], productList[j]
		switch f.Sort {
		case models.SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		case models.SortPriceLow:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case models.SortPriceHigh:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		}
		return a.ID < b.ID
	})
	return productList, nil
}

func inPriceBand(price decimal.Decimal, band string) bool {
	switch band {
	case models.PriceBandUnder100:
		return price.LessThan(hundred)
	case models.PriceBand100To200:
		return price.GreaterThanOrEqual(hundred) && price.LessThanOrEqual(twoHundred)
	case models.PriceBandOver200:
		return price.GreaterThan(twoHundred)
	}
	return true
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id int64) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %d %w", id, apperrors.ErrNotFound)
	}
	return &product, nil
}

// Create adds a new product. IDs are assigned monotonically and never reused.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	product.ID = r.nextID
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product, keeping its creation time.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %d %w", product.ID, apperrors.ErrNotFound)
	}
	product.CreatedAt = existing.CreatedAt
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

// Count returns the number of stored products.
func (r *MemoryProductRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.products)), nil
}
