package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order. Any status may follow any
// other; there is no transition graph.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every valid status in display order.
var OrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the five defined statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// LineItem represents a single cart entry embedded in an order.
type LineItem struct {
	ProductID int64           `json:"id,omitempty"`
	Name      string          `json:"name" validate:"required_without=ProductID"`
	Price     decimal.Decimal `json:"price"` // Unit price at the time of order
	Quantity  int             `json:"qty" validate:"gte=1"`
	Image     string          `json:"image,omitempty"`
}

// Subtotal is price x quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order. Items are stored as a single JSON blob.
type Order struct {
	ID           int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerName string          `json:"customer_name" gorm:"type:varchar(200);not null" validate:"required,max=200"`
	Email        string          `json:"email" gorm:"type:varchar(255)" validate:"omitempty,email"`
	Phone        string          `json:"phone" gorm:"type:varchar(50);not null" validate:"required,max=50"`
	Address      string          `json:"address" gorm:"type:text;not null" validate:"required"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Items        []LineItem      `json:"items" gorm:"type:text;not null;serializer:json" validate:"required,min=1,dive"`
	Status       OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}
