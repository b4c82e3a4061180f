package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	"github.com/Pesokrava/shop_backend/internal/usecase/review"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
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

// MockProductFinder is a mock implementation of review.ProductFinder
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

// MockCache is a mock implementation of review.Cache
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

// MockPublisher is a mock implementation of review.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func newReviewHandler() (*ReviewHandler, *MockReviewRepository, *MockProductFinder, *MockCache, *MockPublisher) {
	mockRepo := new(MockReviewRepository)
	mockProducts := new(MockProductFinder)
	mockCache := new(MockCache)
	mockPublisher := new(MockPublisher)
	log := logger.New("test")
	service := review.NewService(mockRepo, mockProducts, mockCache, mockPublisher, log)
	return NewReviewHandler(service, log), mockRepo, mockProducts, mockCache, mockPublisher
}

func TestReviewHandler_Create_Success(t *testing.T) {
	handler, mockRepo, mockProducts, mockCache, mockPublisher := newReviewHandler()

	productID := uuid.New()
	actorID := uuid.New()

	mockProducts.On("GetByID", mock.Anything, productID).
		Return(&domain.ProductDetail{Product: domain.Product{ID: productID}}, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == productID && r.UserID == actorID && r.Ratings == 5
	})).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	payload, _ := json.Marshal(CreateReviewRequest{
		ProductID: productID.String(),
		Ratings:   intPtr(5),
		Comment:   "Loved it",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(payload))
	req.Header.Set("X-User-Id", actorID.String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestReviewHandler_Create_ValidationMessages(t *testing.T) {
	handler, mockRepo, _, _, _ := newReviewHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-User-Id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Bad Request", body["error"])

	messages := body["messages"].([]any)
	assert.Contains(t, messages, "Product should not be empty.")
	assert.Contains(t, messages, "ratings could not be empty")
	assert.Contains(t, messages, "comment should not be empty")
	mockRepo.AssertNotCalled(t, "Create")
}

func TestReviewHandler_Create_RatingsOutOfRangeMessage(t *testing.T) {
	handler, _, _, _, _ := newReviewHandler()

	payload, _ := json.Marshal(CreateReviewRequest{
		ProductID: uuid.New().String(),
		Ratings:   intPtr(6),
		Comment:   "too good",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(payload))
	req.Header.Set("X-User-Id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	messages := decodeBody(t, w)["messages"].([]any)
	assert.Contains(t, messages, "ratings should range from 1 to 5.")
}

func TestReviewHandler_Create_NonUUIDProductMessage(t *testing.T) {
	handler, _, _, _, _ := newReviewHandler()

	payload := `{"productId":"7","ratings":4,"comment":"ok"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader([]byte(payload)))
	req.Header.Set("X-User-Id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	messages := decodeBody(t, w)["messages"].([]any)
	assert.Contains(t, messages, "Product Id should be number")
}

func TestReviewHandler_Create_ProductNotFound(t *testing.T) {
	handler, mockRepo, mockProducts, _, _ := newReviewHandler()

	productID := uuid.New()
	mockProducts.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	payload, _ := json.Marshal(CreateReviewRequest{
		ProductID: productID.String(),
		Ratings:   intPtr(4),
		Comment:   "where is it",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(payload))
	req.Header.Set("X-User-Id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found.", decodeBody(t, w)["error"])
	mockRepo.AssertNotCalled(t, "Create")
}

func TestReviewHandler_Create_Duplicate(t *testing.T) {
	handler, mockRepo, mockProducts, _, _ := newReviewHandler()

	productID := uuid.New()
	mockProducts.On("GetByID", mock.Anything, productID).
		Return(&domain.ProductDetail{Product: domain.Product{ID: productID}}, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrAlreadyExists)

	payload, _ := json.Marshal(CreateReviewRequest{
		ProductID: productID.String(),
		Ratings:   intPtr(3),
		Comment:   "again",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(payload))
	req.Header.Set("X-User-Id", uuid.New().String())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You have already reviewed this product.", decodeBody(t, w)["error"])
}

func TestReviewHandler_Update_NotImplemented(t *testing.T) {
	handler, _, _, _, _ := newReviewHandler()

	id := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/v1/reviews/"+id.String(), bytes.NewReader([]byte(`{}`))), "id", id.String())
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "Review updates are not supported.", decodeBody(t, w)["error"])
}

func TestReviewHandler_Delete_NotFound(t *testing.T) {
	handler, mockRepo, _, _, _ := newReviewHandler()

	id := uuid.New()
	mockRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+id.String(), nil), "id", id.String())
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Review not found.", decodeBody(t, w)["error"])
}

func TestReviewHandler_ListByProduct_Success(t *testing.T) {
	handler, mockRepo, mockProducts, mockCache, _ := newReviewHandler()

	productID := uuid.New()
	avg := 4.5
	reviews := []*domain.ReviewWithUser{
		{Review: domain.Review{ID: uuid.New(), ProductID: productID, Ratings: 5, Comment: "great"}},
	}

	mockProducts.On("GetByID", mock.Anything, productID).
		Return(&domain.ProductDetail{Product: domain.Product{ID: productID}}, nil)
	mockCache.On("GetReviewsPage", mock.Anything, productID, 20, 0).Return(reviews, nil)
	mockCache.On("GetAggregate", mock.Anything, productID).Return(1, &avg, nil)

	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID.String()+"/reviews", nil),
		"id", productID.String(),
	)
	w := httptest.NewRecorder()

	handler.ListByProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total_reviews"])
	assert.Equal(t, 4.5, data["avg_rating"])
	mockRepo.AssertNotCalled(t, "ListByProduct")
}

func TestReviewHandler_Lookup_MissingParams(t *testing.T) {
	handler, mockRepo, _, _, _ := newReviewHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/lookup", nil)
	w := httptest.NewRecorder()

	handler.Lookup(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockRepo.AssertNotCalled(t, "GetByUserAndProduct")
}

func intPtr(v int) *int {
	return &v
}
