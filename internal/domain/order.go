package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"

	// OrderStatusDelivered is the sentinel that flips stock adjustment
	// from increment to decrement
	OrderStatusDelivered OrderStatus = "DELIVERED"

	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is the slice of the order aggregate this service reads: enough to
// tell whether a product is in use and to size stock adjustments.
type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	ProductID uuid.UUID   `json:"product_id" db:"product_id"`
	Quantity  int         `json:"quantity" db:"quantity"`
	Status    OrderStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// GetByProductID retrieves any one order referencing the product,
	// or ErrNotFound when none exists
	GetByProductID(ctx context.Context, productID uuid.UUID) (*Order, error)
}
