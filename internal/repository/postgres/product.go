package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/shop_backend/internal/domain"
)

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const listingJoins = `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN reviews r ON r.product_id = p.id`

// productPredicates holds the compiled filter: pre-aggregation predicates go
// to WHERE, rating predicates reference AVG and must go to HAVING. The same
// compilation feeds both the page query and the count query so the total
// always reflects the filtered, unpaged set.
type productPredicates struct {
	where  []string
	having []string
	args   []interface{}
}

func buildProductPredicates(f domain.ProductFilter) productPredicates {
	var p productPredicates

	arg := func(v interface{}) string {
		p.args = append(p.args, v)
		return fmt.Sprintf("$%d", len(p.args))
	}

	if f.Search != "" {
		p.where = append(p.where, "p.title LIKE "+arg("%"+f.Search+"%"))
	}
	if f.CategoryID != nil {
		p.where = append(p.where, "c.id = "+arg(*f.CategoryID))
	}
	if f.MinPrice != nil {
		p.where = append(p.where, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		p.where = append(p.where, "p.price <= "+arg(*f.MaxPrice))
	}
	if f.MinRating != nil {
		p.having = append(p.having, "AVG(r.ratings) >= "+arg(*f.MinRating))
	}
	if f.MaxRating != nil {
		p.having = append(p.having, "AVG(r.ratings) <= "+arg(*f.MaxRating))
	}

	return p
}

func (p productPredicates) appendClauses(sb *strings.Builder) {
	if len(p.where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(p.where, " AND "))
	}
	sb.WriteString("\n\t\tGROUP BY p.id, c.id")
	if len(p.having) > 0 {
		sb.WriteString("\n\t\tHAVING ")
		sb.WriteString(strings.Join(p.having, " AND "))
	}
}

// List retrieves the filtered, paged listing rows. Products are grouped with
// their category and annotated with COUNT(review) and AVG(ratings) rounded
// to two decimals; a product with no reviews gets count 0 and a NULL average.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.ProductRow, error) {
	preds := buildProductPredicates(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultProductLimit
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT p.id, p.title, p.description, p.price, p.stock, p.images,
		       c.id AS category_id, c.title AS category_title,
		       COUNT(r.id) AS review_count,
		       ROUND(AVG(r.ratings)::numeric, 2) AS avg_rating`)
	sb.WriteString(listingJoins)
	preds.appendClauses(&sb)
	sb.WriteString("\n\t\tORDER BY p.created_at DESC")

	args := preds.args
	args = append(args, limit)
	fmt.Fprintf(&sb, "\n\t\tLIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	var rows []*domain.ProductRow
	if err := r.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the number of products matching the filter. Limit and offset
// are deliberately not applied.
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	preds := buildProductPredicates(filter)

	var sb strings.Builder
	sb.WriteString("\n\t\tSELECT COUNT(*) FROM (")
	sb.WriteString("\n\t\tSELECT p.id")
	sb.WriteString(listingJoins)
	preds.appendClauses(&sb)
	sb.WriteString("\n\t\t) AS matched")

	var count int
	if err := r.db.GetContext(ctx, &count, sb.String(), preds.args...); err != nil {
		return 0, err
	}

	return count, nil
}

// Create persists a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (title, description, price, stock, images, category_id, added_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Title,
		product.Description,
		product.Price,
		product.Stock,
		product.Images,
		product.CategoryID,
		product.AddedByID,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.ID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a product with its category (id/title) and the user who
// added it (id/name/email)
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	query := `
		SELECT p.id, p.title, p.description, p.price, p.stock, p.images,
		       p.category_id, p.added_by_id, p.created_at, p.updated_at,
		       c.id AS "category.id", c.title AS "category.title",
		       u.id AS "added_by.id", u.name AS "added_by.name", u.email AS "added_by.email"
		FROM products p
		JOIN categories c ON c.id = p.category_id
		JOIN users u ON u.id = p.added_by_id
		WHERE p.id = $1
	`

	var detail domain.ProductDetail
	err := r.db.GetContext(ctx, &detail, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &detail, nil
}

// Update persists the full state of an existing product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET title = $1, description = $2, price = $3, stock = $4, images = $5,
		    category_id = $6, added_by_id = $7, updated_at = $8
		WHERE id = $9
		RETURNING updated_at
	`

	product.UpdatedAt = time.Now()

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Title,
		product.Description,
		product.Price,
		product.Stock,
		product.Images,
		product.CategoryID,
		product.AddedByID,
		product.UpdatedAt,
		product.ID,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// Delete removes a product. The in-use check and the delete run in one
// transaction so a concurrent order cannot slip between them.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var inUse bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM orders WHERE product_id = $1)`
	if err := tx.GetContext(ctx, &inUse, checkQuery, id); err != nil {
		return err
	}
	if inUse {
		return domain.ErrProductInUse
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
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

	return tx.Commit()
}

// AdjustStock atomically changes stock by qty. A decrement only succeeds if
// enough stock remains, so stock can never go negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, qty int, decrement bool) (*domain.Product, error) {
	var query string
	if decrement {
		query = `
			UPDATE products
			SET stock = stock - $2, updated_at = $3
			WHERE id = $1 AND stock >= $2
			RETURNING id, title, description, price, stock, images, category_id, added_by_id, created_at, updated_at
		`
	} else {
		query = `
			UPDATE products
			SET stock = stock + $2, updated_at = $3
			WHERE id = $1
			RETURNING id, title, description, price, stock, images, category_id, added_by_id, created_at, updated_at
		`
	}

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id, qty, time.Now())
	if err == nil {
		return &product, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if decrement {
		// Zero rows on a decrement is either a missing product or the
		// stock guard; tell them apart.
		var exists bool
		existsQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`
		if err := r.db.GetContext(ctx, &exists, existsQuery, id); err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrInsufficientStock
		}
	}

	return nil, domain.ErrNotFound
}
