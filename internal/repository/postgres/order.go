package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/shop_backend/internal/domain"
)

// OrderRepository implements domain.OrderRepository for PostgreSQL. Orders
// are owned by another service; this repository only reads the slice needed
// for the product-in-use check.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByProductID retrieves any one order referencing the product
func (r *OrderRepository) GetByProductID(ctx context.Context, productID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, product_id, quantity, status, created_at
		FROM orders
		WHERE product_id = $1
		LIMIT 1
	`

	var order domain.Order
	err := r.db.GetContext(ctx, &order, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}
