package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Review represents a product review. At most one review exists per
// (user, product) pair, enforced by the storage layer.
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id" validate:"required"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" validate:"required"`
	Ratings   int       `json:"ratings" db:"ratings" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" db:"comment" validate:"required"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReviewWithUser is a review with its author projection attached
type ReviewWithUser struct {
	Review
	User UserSummary `json:"user" db:"user"`
}

// ProductSummary is the product projection attached to review details
type ProductSummary struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Price         float64    `json:"price" db:"price"`
	CategoryID    *uuid.UUID `json:"category_id" db:"category_id"`
	CategoryTitle *string    `json:"category_title" db:"category_title"`
}

// ReviewDetail is a review with user and product (including category) attached
type ReviewDetail struct {
	Review
	User    UserSummary    `json:"user" db:"user"`
	Product ProductSummary `json:"product" db:"product"`
}

// ReviewRow is a flattened row of the global review listing: review columns
// joined with the reviewed product. Product fields are nil if the product
// row is gone.
type ReviewRow struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	ProductID    uuid.UUID  `json:"product_id" db:"product_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	Ratings      int        `json:"ratings" db:"ratings"`
	Comment      string     `json:"comment" db:"comment"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ProductTitle *string    `json:"product_title" db:"product_title"`
	ProductPrice *float64   `json:"product_price" db:"product_price"`
}

// ProductReviews bundles the per-product review listing. AvgRating is nil
// when the product has no reviews.
type ProductReviews struct {
	Reviews      []*ReviewWithUser `json:"reviews"`
	Product      *ProductDetail    `json:"product"`
	AvgRating    *float64          `json:"avg_rating"`
	TotalReviews int               `json:"total_reviews"`
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create persists a new review. A duplicate (user, product) pair
	// returns ErrAlreadyExists.
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review with user and product attached
	GetByID(ctx context.Context, id uuid.UUID) (*ReviewDetail, error)

	// List retrieves all reviews joined with their products
	List(ctx context.Context) ([]*ReviewRow, error)

	// Count returns the total number of reviews
	Count(ctx context.Context) (int, error)

	// ListByProduct retrieves a page of reviews for a product with the
	// author attached
	ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*ReviewWithUser, error)

	// AggregateByProduct returns the review count and average rating for a
	// product. The average is nil when no reviews exist.
	AggregateByProduct(ctx context.Context, productID uuid.UUID) (int, *float64, error)

	// GetByUserAndProduct retrieves the single review a user left on a product
	GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*ReviewDetail, error)

	// Delete removes a review
	Delete(ctx context.Context, id uuid.UUID) error
}
