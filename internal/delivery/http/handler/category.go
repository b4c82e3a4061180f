package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/shop_backend/internal/delivery/http/request"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/response"
	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/shop_backend/internal/pkg/validator"
	"github.com/Pesokrava/shop_backend/internal/usecase/category"
)

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	service *category.Service
	logger  *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(service *category.Service, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  log,
	}
}

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
}

var categoryFieldMessages = map[string]string{
	"Title.required":       "title can not be blank.",
	"Description.required": "description can not be empty.",
}

// Create handles POST /api/v1/categories
// @Summary Create a new category
// @Tags Categories
// @Accept json
// @Produce json
// @Param category body CreateCategoryRequest true "Category details"
// @Success 201 {object} map[string]interface{} "Category created successfully"
// @Failure 400 {object} map[string]interface{} "Validation failure"
// @Router /categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := pkgvalidator.Get().Struct(&req); err != nil {
		response.ValidationFailed(w, pkgvalidator.Translate(err, categoryFieldMessages))
		return
	}

	cat := &domain.Category{
		Title:       req.Title,
		Description: req.Description,
	}

	if err := h.service.Create(r.Context(), cat); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, cat)
}

// List handles GET /api/v1/categories
// @Summary List all categories
// @Tags Categories
// @Produce json
// @Success 200 {object} map[string]interface{} "All categories"
// @Router /categories [get]
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	if categories == nil {
		categories = []*domain.Category{}
	}

	response.Success(w, categories)
}

// GetByID handles GET /api/v1/categories/:id
// @Summary Get a category by ID
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Success 200 {object} map[string]interface{} "Category"
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	cat, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, cat)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *CategoryHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Category not found.")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in category handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
