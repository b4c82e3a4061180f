package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category represents a product category. Products reference categories,
// they do not own them.
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title" validate:"required,max=255"`
	Description string    `json:"description" db:"description" validate:"required"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	// Create persists a new category
	Create(ctx context.Context, category *Category) error

	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// List retrieves all categories
	List(ctx context.Context) ([]*Category, error)
}
