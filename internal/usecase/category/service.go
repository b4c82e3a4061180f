package category

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/shop_backend/internal/pkg/validator"
)

// Service handles category business logic
type Service struct {
	repo     domain.CategoryRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new category service
func NewService(repo domain.CategoryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: pkgvalidator.Get(),
		logger:   log,
	}
}

// Create persists a new category
func (s *Service) Create(ctx context.Context, category *domain.Category) error {
	if err := s.validate.Struct(category); err != nil {
		s.logger.Error("Category validation failed", err)
		return domain.ErrInvalidInput
	}

	if err := s.repo.Create(ctx, category); err != nil {
		s.logger.Error("Failed to create category", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"category_id": category.ID,
		"title":       category.Title,
	}).Info("Category created successfully")

	return nil
}

// GetByID retrieves a category by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Category not found: %s", id)
		} else {
			s.logger.Error("Failed to get category", err)
		}
		return nil, err
	}

	return category, nil
}

// List retrieves all categories
func (s *Service) List(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list categories", err)
		return nil, err
	}

	return categories, nil
}
