package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context) ([]*domain.ReviewRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewRow), args.Error(1)
}

func (m *MockReviewRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.ReviewWithUser, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewWithUser), args.Error(1)
}

func (m *MockReviewRepository) AggregateByProduct(ctx context.Context, productID uuid.UUID) (int, *float64, error) {
	args := m.Called(ctx, productID)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).(*float64), args.Error(2)
}

func (m *MockReviewRepository) GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.ReviewDetail, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductFinder is a mock implementation of ProductFinder
type MockProductFinder struct {
	mock.Mock
}

func (m *MockProductFinder) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetail), args.Error(1)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.ReviewWithUser, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewWithUser), args.Error(1)
}

func (m *MockCache) SetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.ReviewWithUser) error {
	args := m.Called(ctx, productID, limit, offset, reviews)
	return args.Error(0)
}

func (m *MockCache) GetAggregate(ctx context.Context, productID uuid.UUID) (int, *float64, error) {
	args := m.Called(ctx, productID)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).(*float64), args.Error(2)
}

func (m *MockCache) SetAggregate(ctx context.Context, productID uuid.UUID, total int, avgRating *float64) error {
	args := m.Called(ctx, productID, total, avgRating)
	return args.Error(0)
}

func (m *MockCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
	mu       sync.Mutex
	subjects []string
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.mu.Unlock()
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockPublisher) PublishedSubjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subjects...)
}

func newTestService() (*Service, *MockReviewRepository, *MockProductFinder, *MockCache, *MockPublisher) {
	mockRepo := new(MockReviewRepository)
	mockProducts := new(MockProductFinder)
	mockCache := new(MockCache)
	mockPublisher := new(MockPublisher)
	log := logger.New("test")
	service := NewService(mockRepo, mockProducts, mockCache, mockPublisher, log)
	return service, mockRepo, mockProducts, mockCache, mockPublisher
}

func productDetail(id uuid.UUID) *domain.ProductDetail {
	return &domain.ProductDetail{
		Product: domain.Product{
			ID:          id,
			Title:       "Espresso Machine",
			Description: "Dual boiler",
			Price:       499.0,
			Stock:       3,
			CategoryID:  uuid.New(),
		},
	}
}

func waitForPublish(t *testing.T, publisher *MockPublisher, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(publisher.PublishedSubjects()) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d published events, got %d", want, len(publisher.PublishedSubjects()))
}

func TestService_Create_Success(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, mockPublisher := newTestService()

	productID := uuid.New()
	actorID := uuid.New()
	review := &domain.Review{
		ProductID: productID,
		Ratings:   5,
		Comment:   "Pulls a great shot",
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockRepo.On("Create", mock.Anything, review).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	err := service.Create(context.Background(), review, actorID)

	assert.NoError(t, err)
	assert.Equal(t, actorID, review.UserID)
	waitForPublish(t, mockPublisher, 1)
	mockRepo.AssertExpectations(t)
}

func TestService_Create_InvalidInput(t *testing.T) {
	service, mockRepo, _, _, _ := newTestService()

	review := &domain.Review{
		ProductID: uuid.New(),
		Ratings:   6, // out of range
		Comment:   "x",
	}

	err := service.Create(context.Background(), review, uuid.New())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Create_ProductNotFound(t *testing.T) {
	service, mockRepo, mockProducts, _, _ := newTestService()

	productID := uuid.New()
	review := &domain.Review{
		ProductID: productID,
		Ratings:   4,
		Comment:   "never arrives",
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	err := service.Create(context.Background(), review, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Create_DuplicateRejected(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, mockPublisher := newTestService()

	productID := uuid.New()
	review := &domain.Review{
		ProductID: productID,
		Ratings:   3,
		Comment:   "changed my mind",
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockRepo.On("Create", mock.Anything, review).Return(domain.ErrAlreadyExists)

	err := service.Create(context.Background(), review, uuid.New())

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	mockCache.AssertNotCalled(t, "InvalidateProduct")
	assert.Empty(t, mockPublisher.PublishedSubjects())
}

func TestService_Create_CacheInvalidationFailureIsNotFatal(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, mockPublisher := newTestService()

	productID := uuid.New()
	review := &domain.Review{
		ProductID: productID,
		Ratings:   5,
		Comment:   "solid",
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockRepo.On("Create", mock.Anything, review).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(errors.New("redis down"))
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	err := service.Create(context.Background(), review, uuid.New())

	assert.NoError(t, err)
}

func TestService_FindAllByProduct_CacheMissFallsBackToRepo(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, _ := newTestService()

	productID := uuid.New()
	avg := 4.5
	reviews := []*domain.ReviewWithUser{
		{Review: domain.Review{ID: uuid.New(), ProductID: productID, Ratings: 5, Comment: "great"}},
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockCache.On("GetReviewsPage", mock.Anything, productID, 20, 0).Return(nil, errors.New("cache miss"))
	mockRepo.On("ListByProduct", mock.Anything, productID, 20, 0).Return(reviews, nil)
	mockCache.On("SetReviewsPage", mock.Anything, productID, 20, 0, reviews).Return(nil)
	mockCache.On("GetAggregate", mock.Anything, productID).Return(0, nil, errors.New("cache miss"))
	mockRepo.On("AggregateByProduct", mock.Anything, productID).Return(1, &avg, nil)
	mockCache.On("SetAggregate", mock.Anything, productID, 1, &avg).Return(nil)

	bundle, err := service.FindAllByProduct(context.Background(), productID, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, reviews, bundle.Reviews)
	assert.Equal(t, 1, bundle.TotalReviews)
	assert.Equal(t, &avg, bundle.AvgRating)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_FindAllByProduct_CacheHitSkipsRepo(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, _ := newTestService()

	productID := uuid.New()
	avg := 3.0
	cached := []*domain.ReviewWithUser{
		{Review: domain.Review{ID: uuid.New(), ProductID: productID, Ratings: 3, Comment: "ok"}},
	}

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockCache.On("GetReviewsPage", mock.Anything, productID, 20, 0).Return(cached, nil)
	mockCache.On("GetAggregate", mock.Anything, productID).Return(1, &avg, nil)

	bundle, err := service.FindAllByProduct(context.Background(), productID, 20, 0)

	assert.NoError(t, err)
	assert.Equal(t, cached, bundle.Reviews)
	mockRepo.AssertNotCalled(t, "ListByProduct")
	mockRepo.AssertNotCalled(t, "AggregateByProduct")
}

func TestService_FindAllByProduct_NoReviewsNilAverage(t *testing.T) {
	service, mockRepo, mockProducts, mockCache, _ := newTestService()

	productID := uuid.New()

	mockProducts.On("GetByID", mock.Anything, productID).Return(productDetail(productID), nil)
	mockCache.On("GetReviewsPage", mock.Anything, productID, 20, 0).Return(nil, errors.New("cache miss"))
	mockRepo.On("ListByProduct", mock.Anything, productID, 20, 0).Return([]*domain.ReviewWithUser{}, nil)
	mockCache.On("SetReviewsPage", mock.Anything, productID, 20, 0, mock.Anything).Return(nil)
	mockCache.On("GetAggregate", mock.Anything, productID).Return(0, nil, errors.New("cache miss"))
	mockRepo.On("AggregateByProduct", mock.Anything, productID).Return(0, nil, nil)
	mockCache.On("SetAggregate", mock.Anything, productID, 0, (*float64)(nil)).Return(nil)

	bundle, err := service.FindAllByProduct(context.Background(), productID, 0, 0)

	assert.NoError(t, err)
	assert.NotNil(t, bundle.Reviews)
	assert.Len(t, bundle.Reviews, 0)
	assert.Nil(t, bundle.AvgRating)
	assert.Equal(t, 0, bundle.TotalReviews)
}

func TestService_FindAllByProduct_ProductNotFound(t *testing.T) {
	service, mockRepo, mockProducts, _, _ := newTestService()

	productID := uuid.New()
	mockProducts.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	_, err := service.FindAllByProduct(context.Background(), productID, 20, 0)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertNotCalled(t, "ListByProduct")
}

func TestService_Update_NotImplemented(t *testing.T) {
	service, mockRepo, _, _, _ := newTestService()

	err := service.Update(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	mockRepo.AssertNotCalled(t, "GetByID")
}

func TestService_Delete_Success(t *testing.T) {
	service, mockRepo, _, mockCache, mockPublisher := newTestService()

	reviewID := uuid.New()
	productID := uuid.New()
	stored := &domain.ReviewDetail{
		Review: domain.Review{ID: reviewID, ProductID: productID, Ratings: 2, Comment: "meh"},
	}

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(stored, nil)
	mockRepo.On("Delete", mock.Anything, reviewID).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	err := service.Delete(context.Background(), reviewID)

	assert.NoError(t, err)
	waitForPublish(t, mockPublisher, 1)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Delete_NotFound(t *testing.T) {
	service, mockRepo, _, _, _ := newTestService()

	reviewID := uuid.New()
	mockRepo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	err := service.Delete(context.Background(), reviewID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertNotCalled(t, "Delete")
}

func TestService_GetByUserAndProduct_Success(t *testing.T) {
	service, mockRepo, _, _, _ := newTestService()

	userID := uuid.New()
	productID := uuid.New()
	stored := &domain.ReviewDetail{
		Review: domain.Review{ID: uuid.New(), ProductID: productID, UserID: userID, Ratings: 4, Comment: "good"},
	}

	mockRepo.On("GetByUserAndProduct", mock.Anything, userID, productID).Return(stored, nil)

	detail, err := service.GetByUserAndProduct(context.Background(), userID, productID)

	assert.NoError(t, err)
	assert.Equal(t, stored, detail)
}

func TestService_FindAll_Success(t *testing.T) {
	service, mockRepo, _, _, _ := newTestService()

	rows := []*domain.ReviewRow{{ID: uuid.New(), Ratings: 5, Comment: "nice"}}
	mockRepo.On("List", mock.Anything).Return(rows, nil)
	mockRepo.On("Count", mock.Anything).Return(1, nil)

	reviews, total, err := service.FindAll(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, rows, reviews)
	assert.Equal(t, 1, total)
}
