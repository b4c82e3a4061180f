package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/shop_backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewDetailQuery = `
		SELECT rv.id, rv.product_id, rv.user_id, rv.ratings, rv.comment, rv.created_at, rv.updated_at,
		       u.id AS "user.id", u.name AS "user.name", u.email AS "user.email",
		       p.id AS "product.id", p.title AS "product.title", p.price AS "product.price",
		       c.id AS "product.category_id", c.title AS "product.category_title"
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		JOIN products p ON p.id = rv.product_id
		LEFT JOIN categories c ON c.id = p.category_id`

// Create persists a new review. A second review by the same user on the same
// product trips the (user_id, product_id) unique index and returns
// domain.ErrAlreadyExists.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (product_id, user_id, ratings, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.ProductID,
		review.UserID,
		review.Ratings,
		review.Comment,
	).Scan(
		&review.ID,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a review with its author and product (plus category)
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewDetail, error) {
	query := reviewDetailQuery + `
		WHERE rv.id = $1
	`

	var detail domain.ReviewDetail
	err := r.db.GetContext(ctx, &detail, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &detail, nil
}

// GetByUserAndProduct retrieves the single review a user left on a product
func (r *ReviewRepository) GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.ReviewDetail, error) {
	query := reviewDetailQuery + `
		WHERE rv.user_id = $1 AND rv.product_id = $2
	`

	var detail domain.ReviewDetail
	err := r.db.GetContext(ctx, &detail, query, userID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &detail, nil
}

// List retrieves all reviews as flattened rows joined with their products
func (r *ReviewRepository) List(ctx context.Context) ([]*domain.ReviewRow, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, rv.ratings, rv.comment, rv.created_at,
		       p.title AS product_title, p.price AS product_price
		FROM reviews rv
		LEFT JOIN products p ON p.id = rv.product_id
		ORDER BY rv.created_at DESC
	`

	var rows []*domain.ReviewRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the total number of reviews
func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews`)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListByProduct retrieves a page of reviews for a product with the author attached
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.ReviewWithUser, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, rv.ratings, rv.comment, rv.created_at, rv.updated_at,
		       u.id AS "user.id", u.name AS "user.name", u.email AS "user.email"
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var reviews []*domain.ReviewWithUser
	if err := r.db.SelectContext(ctx, &reviews, query, productID, limit, offset); err != nil {
		return nil, err
	}

	return reviews, nil
}

// AggregateByProduct returns the review count and average rating for a
// product. AVG over zero rows is NULL, surfaced as a nil pointer rather than
// a NaN-producing coercion.
func (r *ReviewRepository) AggregateByProduct(ctx context.Context, productID uuid.UUID) (int, *float64, error) {
	query := `
		SELECT COUNT(id) AS total, ROUND(AVG(ratings)::numeric, 2) AS avg_rating
		FROM reviews
		WHERE product_id = $1
	`

	var agg struct {
		Total     int      `db:"total"`
		AvgRating *float64 `db:"avg_rating"`
	}
	if err := r.db.GetContext(ctx, &agg, query, productID); err != nil {
		return 0, nil, err
	}

	return agg.Total, agg.AvgRating, nil
}

// Delete removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
