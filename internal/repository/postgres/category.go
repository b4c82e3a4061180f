package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/shop_backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository for PostgreSQL
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create persists a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (title, description)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query, category.Title, category.Description).
		Scan(&category.ID, &category.CreatedAt)
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT id, title, description, created_at FROM categories WHERE id = $1`

	var category domain.Category
	err := r.db.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &category, nil
}

// List retrieves all categories
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT id, title, description, created_at FROM categories ORDER BY title`

	var categories []*domain.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, err
	}

	return categories, nil
}
