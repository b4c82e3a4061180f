package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/shop_backend/internal/pkg/validator"
)

// ErrCategoryNotFound marks a missing category on create or update. It
// still matches domain.ErrNotFound but lets the delivery layer name the
// right resource.
var ErrCategoryNotFound = fmt.Errorf("category: %w", domain.ErrNotFound)

// CategoryFinder resolves the category a product references
type CategoryFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

// OrderFinder answers whether any order references a product. Orders also
// depend on products (stock adjustment), so both sides see each other only
// through narrow interfaces bound at startup.
type OrderFinder interface {
	GetByProductID(ctx context.Context, productID uuid.UUID) (*domain.Order, error)
}

// Page is the filtered listing result: a page of flattened rows, the total
// over the whole filtered set, and the limit that was applied.
type Page struct {
	Products      []*domain.ProductRow `json:"products"`
	TotalProducts int                  `json:"total_products"`
	Limit         int                  `json:"limit"`
}

// Service handles product business logic
type Service struct {
	repo       domain.ProductRepository
	categories CategoryFinder
	orders     OrderFinder
	validate   *validator.Validate
	logger     *logger.Logger
}

// NewService creates a new product service
func NewService(repo domain.ProductRepository, categories CategoryFinder, orders OrderFinder, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		orders:     orders,
		validate:   pkgvalidator.Get(),
		logger:     log,
	}
}

// FindAll returns the filtered product listing with aggregate annotations.
// A missing or zero limit falls back to the default page size; the total
// reflects the filtered set before paging.
func (s *Service) FindAll(ctx context.Context, filter domain.ProductFilter) (*Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultProductLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, err
	}

	if products == nil {
		products = []*domain.ProductRow{}
	}

	return &Page{
		Products:      products,
		TotalProducts: total,
		Limit:         filter.Limit,
	}, nil
}

// GetByID retrieves a product with category and added-by projections
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	return detail, nil
}

// Create resolves the category, stamps the acting user and persists the
// product. A missing category surfaces as the category lookup's not-found.
func (s *Service) Create(ctx context.Context, product *domain.Product, actorID uuid.UUID) error {
	if err := s.validate.Struct(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return domain.ErrInvalidInput
	}

	category, err := s.categories.GetByID(ctx, product.CategoryID)
	if err != nil {
		s.logger.Error("Failed to resolve category", err)
		if errors.Is(err, domain.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	product.CategoryID = category.ID
	product.AddedByID = actorID

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	}).Info("Product created successfully")

	return nil
}

// Update shallow-merges the patch over the stored product. The acting user
// always overwrites the original author, even on partial updates, and the
// category is re-resolved only when the patch carries one.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch, actorID uuid.UUID) (*domain.Product, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product := detail.Product
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Images != nil {
		product.Images = patch.Images
	}
	product.AddedByID = actorID

	if patch.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *patch.CategoryID)
		if err != nil {
			s.logger.Error("Failed to resolve category", err)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		product.CategoryID = category.ID
	}

	if err := s.validate.Struct(&product); err != nil {
		s.logger.Error("Product validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	if err := s.repo.Update(ctx, &product); err != nil {
		s.logger.Error("Failed to update product", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	}).Info("Product updated successfully")

	return &product, nil
}

// Delete removes a product unless an order references it
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	_, err := s.orders.GetByProductID(ctx, id)
	if err == nil {
		s.logger.Debugf("Product %s is referenced by an order, refusing delete", id)
		return domain.ErrProductInUse
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("Failed to check orders for product", err)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return nil
}

// AdjustStock applies an order-driven stock change: a delivered order
// decrements stock, any other status increments it (e.g. a cancelled or
// returned order putting units back).
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, qty int, status domain.OrderStatus) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidInput
	}

	decrement := status == domain.OrderStatusDelivered

	product, err := s.repo.AdjustStock(ctx, id, qty, decrement)
	if err != nil {
		s.logger.Error("Failed to adjust stock", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"qty":        qty,
		"status":     status,
		"stock":      product.Stock,
	}).Info("Stock adjusted")

	return product, nil
}
