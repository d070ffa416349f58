package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, the way the storefront scripts read them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Catalog categories a product may be filed under.
const (
	CategorySandals  = "Sandals"
	CategorySlippers = "Slippers"
	CategorySneakers = "Sneakers"
	CategoryFormal   = "Formal"
)

// Pseudo-categories only understood by the list filter.
const (
	CategoryNewArrivals = "new-arrivals"
	CategoryBestSellers = "best-sellers"
)

// DefaultStock is used when a product is created without a stock quantity.
const DefaultStock = 100

// Product represents a product in the catalog.
type Product struct {
	ID          int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"type:varchar(200);not null"`
	Category    string          `json:"category" gorm:"type:varchar(50);not null;index"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image       string          `json:"image"`
	HoverImage  string          `json:"hoverImage"`
	Description string          `json:"description"`
	Stock       int             `json:"stock" gorm:"not null"`
	BestSeller  bool            `json:"best_seller" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}

// Sort orders accepted by ProductFilter.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// Price bands accepted by ProductFilter.
const (
	PriceBandUnder100 = "0-100"
	PriceBand100To200 = "100-200"
	PriceBandOver200  = "200-above"
)

// ProductFilter narrows a catalog listing. Zero values mean "no filter";
// unknown Sort or PriceBand values are ignored.
type ProductFilter struct {
	Category   string
	BestSeller *bool
	PriceBand  string
	Sort       string
}

// Normalize folds the pseudo-categories into the filters they stand for.
func (f ProductFilter) Normalize() ProductFilter {
	switch f.Category {
	case CategoryNewArrivals:
		f.Category = ""
		if f.Sort == "" {
			f.Sort = SortNewest
		}
	case CategoryBestSellers:
		f.Category = ""
		best := true
		f.BestSeller = &best
	}
	return f
}

// IsCategory reports whether name is one of the real catalog categories.
func IsCategory(name string) bool {
	switch name {
	case CategorySandals, CategorySlippers, CategorySneakers, CategoryFormal:
		return true
	}
	return false
}
