package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DefaultProductLimit is the page size applied when a listing request
// carries no limit (a caller-supplied 0 counts as absent).
const DefaultProductLimit = 4

// Product represents a catalog product
type Product struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Title       string         `json:"title" db:"title" validate:"required,max=255"`
	Description string         `json:"description" db:"description" validate:"required"`
	Price       float64        `json:"price" db:"price" validate:"gte=0"`
	Stock       int            `json:"stock" db:"stock" validate:"gte=0"`
	Images      pq.StringArray `json:"images" db:"images"`
	CategoryID  uuid.UUID      `json:"category_id" db:"category_id" validate:"required"`
	AddedByID   uuid.UUID      `json:"added_by_id" db:"added_by_id"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductFilter narrows the product listing. Nil pointer fields mean the
// predicate is absent. Search matches product titles as a substring.
type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
	MinRating  *float64
	MaxRating  *float64
	Limit      int
	Offset     int
}

// ProductRow is a flattened listing row: product columns joined with the
// owning category plus review aggregates. Category fields are nil when the
// product has no category row, AvgRating is nil when it has no reviews.
type ProductRow struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Title         string         `json:"title" db:"title"`
	Description   string         `json:"description" db:"description"`
	Price         float64        `json:"price" db:"price"`
	Stock         int            `json:"stock" db:"stock"`
	Images        pq.StringArray `json:"images" db:"images"`
	CategoryID    *uuid.UUID     `json:"category_id" db:"category_id"`
	CategoryTitle *string        `json:"category_title" db:"category_title"`
	ReviewCount   int            `json:"review_count" db:"review_count"`
	AvgRating     *float64       `json:"avg_rating" db:"avg_rating"`
}

// CategorySummary is the restricted category projection attached to details
type CategorySummary struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Title string    `json:"title" db:"title"`
}

// UserSummary is the restricted user projection attached to details
type UserSummary struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}

// ProductDetail is a product with its category and the user who added it
type ProductDetail struct {
	Product
	Category CategorySummary `json:"category" db:"category"`
	AddedBy  UserSummary     `json:"added_by" db:"added_by"`
}

// ProductPatch carries the fields of a partial product update. Nil fields
// keep the stored value.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Stock       *int
	Images      []string
	CategoryID  *uuid.UUID
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create persists a new product
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product with its category and added-by projections
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDetail, error)

	// List retrieves the filtered, paged listing rows
	List(ctx context.Context, filter ProductFilter) ([]*ProductRow, error)

	// Count returns the number of products matching the filter, ignoring
	// limit and offset
	Count(ctx context.Context, filter ProductFilter) (int, error)

	// Update persists the full state of an existing product
	Update(ctx context.Context, product *Product) error

	// Delete removes a product unless an order references it
	Delete(ctx context.Context, id uuid.UUID) error

	// AdjustStock atomically changes stock by qty. Decrements are guarded:
	// driving stock below zero returns ErrInsufficientStock.
	AdjustStock(ctx context.Context, id uuid.UUID, qty int, decrement bool) (*Product, error)
}
