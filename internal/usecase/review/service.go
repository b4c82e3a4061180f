package review

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/shop_backend/internal/pkg/validator"
)

// ProductFinder verifies that a reviewed product exists
type ProductFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Cache defines the review cache operations used by the service
type Cache interface {
	GetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.ReviewWithUser, error)
	SetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.ReviewWithUser) error
	GetAggregate(ctx context.Context, productID uuid.UUID) (int, *float64, error)
	SetAggregate(ctx context.Context, productID uuid.UUID, total int, avgRating *float64) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	ProductID uuid.UUID      `json:"product_id"`
	Review    *domain.Review `json:"review"`
}

// Service handles review business logic with caching and event publishing
type Service struct {
	repo      domain.ReviewRepository
	products  ProductFinder
	cache     Cache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	products ProductFinder,
	cache Cache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		cache:     cache,
		publisher: publisher,
		validate:  pkgvalidator.Get(),
		logger:    log,
	}
}

// Create verifies the product exists, attaches the acting user and persists
// the review. A second review by the same user on the same product returns
// ErrAlreadyExists from the storage layer's uniqueness constraint.
func (s *Service) Create(ctx context.Context, review *domain.Review, actorID uuid.UUID) error {
	review.UserID = actorID

	if err := s.validate.Struct(review); err != nil {
		s.logger.Error("Review validation failed", err)
		return domain.ErrInvalidInput
	}

	if _, err := s.products.GetByID(ctx, review.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found for review: %s", review.ProductID)
		}
		return err
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Debugf("User %s already reviewed product %s", actorID, review.ProductID)
		} else {
			s.logger.Error("Failed to create review", err)
		}
		return err
	}

	// Stale cache would show incorrect ratings and review lists
	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.publishEvent(ctx, "review.created", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"ratings":    review.Ratings,
	}).Info("Review created successfully")

	return nil
}

// FindAll returns all reviews joined with their products plus the total count
func (s *Service) FindAll(ctx context.Context) ([]*domain.ReviewRow, int, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list reviews", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count reviews", err)
		return nil, 0, err
	}

	return reviews, total, nil
}

// FindAllByProduct returns the review bundle for a product: a page of
// reviews with authors attached, the product itself, the total review count
// and the average rating (nil when the product has no reviews).
func (s *Service) FindAllByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) (*domain.ProductReviews, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, cacheErr := s.cache.GetReviewsPage(ctx, productID, limit, offset)
	if cacheErr != nil {
		s.logger.Debugf("Cache miss for product %s reviews (limit=%d, offset=%d)", productID, limit, offset)
		reviews, err = s.repo.ListByProduct(ctx, productID, limit, offset)
		if err != nil {
			s.logger.Error("Failed to list reviews by product", err)
			return nil, err
		}
		if err := s.cache.SetReviewsPage(ctx, productID, limit, offset, reviews); err != nil {
			s.logger.Warnf("Failed to cache reviews for product %s: %v", productID, err)
		}
	}

	total, avgRating, cacheErr := s.cache.GetAggregate(ctx, productID)
	if cacheErr != nil {
		total, avgRating, err = s.repo.AggregateByProduct(ctx, productID)
		if err != nil {
			s.logger.Error("Failed to aggregate reviews", err)
			return nil, err
		}
		if err := s.cache.SetAggregate(ctx, productID, total, avgRating); err != nil {
			s.logger.Warnf("Failed to cache aggregate for product %s: %v", productID, err)
		}
	}

	if reviews == nil {
		reviews = []*domain.ReviewWithUser{}
	}

	return &domain.ProductReviews{
		Reviews:      reviews,
		Product:      product,
		AvgRating:    avgRating,
		TotalReviews: total,
	}, nil
}

// GetByID retrieves a review with user and product attached
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewDetail, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	return review, nil
}

// GetByUserAndProduct retrieves the single review a user left on a product
func (s *Service) GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.ReviewDetail, error) {
	review, err := s.repo.GetByUserAndProduct(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("No review by user %s on product %s", userID, productID)
		} else {
			s.logger.Error("Failed to get review by user and product", err)
		}
		return nil, err
	}

	return review, nil
}

// Update always fails with ErrNotImplemented: review edits are not
// supported, a review is deleted and re-created instead.
func (s *Service) Update(ctx context.Context, id uuid.UUID) error {
	s.logger.Debugf("Rejected update of review %s: operation not supported", id)
	return domain.ErrNotImplemented
}

// Delete removes a review, drops the product's cache and publishes an event
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	// Product ID is needed for cache invalidation but only stored in the
	// review record
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review for deletion", err)
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.publishEvent(ctx, "review.deleted", &review.Review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ProductID: review.ProductID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}
