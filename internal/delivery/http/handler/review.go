package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/shop_backend/internal/delivery/http/request"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/response"
	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/shop_backend/internal/pkg/validator"
	"github.com/Pesokrava/shop_backend/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Ratings   *int   `json:"ratings" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required"`
}

var reviewFieldMessages = map[string]string{
	"ProductID.required": "Product should not be empty.",
	"ProductID.uuid":     "Product Id should be number",
	"Ratings.required":   "ratings could not be empty",
	"Ratings.min":        "ratings should range from 1 to 5.",
	"Ratings.max":        "ratings should range from 1 to 5.",
	"Comment.required":   "comment should not be empty",
}

var reviewTypeMessages = map[string]string{
	"productId": "Product Id should be number",
	"ratings":   "ratings should be a number.",
	"comment":   "comment must be a string",
}

// Create handles POST /api/v1/reviews
// @Summary Create a review
// @Description One review per user per product; duplicates are rejected
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]interface{} "Validation failure"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "User already reviewed this product"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, err := request.ActorID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid user identity")
		return
	}

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		var typeErr *request.TypeError
		if errors.As(err, &typeErr) {
			if msg, ok := reviewTypeMessages[typeErr.Field]; ok {
				response.ValidationFailed(w, []pkgvalidator.FieldError{{Field: typeErr.Field, Message: msg}})
				return
			}
		}
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := pkgvalidator.Get().Struct(&req); err != nil {
		response.ValidationFailed(w, pkgvalidator.Translate(err, reviewFieldMessages))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Product Id should be number")
		return
	}

	rev := &domain.Review{
		ProductID: productID,
		Ratings:   *req.Ratings,
		Comment:   req.Comment,
	}

	if err := h.service.Create(r.Context(), rev, actorID); err != nil {
		// The only not-found on this path is the reviewed product
		if errors.Is(err, domain.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Product not found.")
			return
		}
		h.handleError(w, err)
		return
	}

	response.Created(w, rev)
}

// List handles GET /api/v1/reviews
// @Summary List all reviews
// @Tags Reviews
// @Produce json
// @Success 200 {object} map[string]interface{} "All reviews with their products"
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, total, err := h.service.FindAll(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	if reviews == nil {
		reviews = []*domain.ReviewRow{}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"reviews":       reviews,
		"total_reviews": total,
	})
}

// ListByProduct handles GET /api/v1/products/:id/reviews
// @Summary List reviews for a product
// @Description Paginated reviews with authors, the product itself, total count and average rating
// @Tags Reviews
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Rows to skip"
// @Success 200 {object} map[string]interface{} "Review bundle"
// @Failure 404 {object} map[string]string "Product not found"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	limit, offset := request.GetPaginationParams(r)

	bundle, err := h.service.FindAllByProduct(r.Context(), productID, limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Product not found.")
			return
		}
		h.handleError(w, err)
		return
	}

	response.Success(w, bundle)
}

// GetByID handles GET /api/v1/reviews/:id
// @Summary Get a review by ID
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Review with user and product"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	detail, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, detail)
}

// Lookup handles GET /api/v1/reviews/lookup
// @Summary Find a user's review of a product
// @Tags Reviews
// @Produce json
// @Param user query string true "User ID (UUID)"
// @Param product query string true "Product ID (UUID)"
// @Success 200 {object} map[string]interface{} "The user's review"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/lookup [get]
func (h *ReviewHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	userID := request.GetUUIDQuery(r, "user")
	productID := request.GetUUIDQuery(r, "product")
	if userID == nil || productID == nil {
		response.Error(w, http.StatusBadRequest, "user and product query parameters are required")
		return
	}

	detail, err := h.service.GetByUserAndProduct(r.Context(), *userID, *productID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, detail)
}

// Update handles PUT /api/v1/reviews/:id
// @Summary Update a review
// @Description Not supported; reviews are deleted and re-created instead
// @Tags Reviews
// @Param id path string true "Review ID (UUID)"
// @Failure 501 {object} map[string]string "Review updates are not supported"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Update(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Tags Reviews
// @Param id path string true "Review ID (UUID)"
// @Success 204 "Review deleted successfully"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review not found.")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, "You have already reviewed this product.")
	case errors.Is(err, domain.ErrNotImplemented):
		response.Error(w, http.StatusNotImplemented, "Review updates are not supported.")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
