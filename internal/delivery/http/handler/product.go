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
	"github.com/Pesokrava/shop_backend/internal/usecase/product"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *product.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *product.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Stock       *int     `json:"stock" validate:"required,gte=0"`
	Images      []string `json:"images" validate:"required"`
	CategoryID  string   `json:"categoryId" validate:"required,uuid"`
}

// UpdateProductRequest represents the request body for a partial product
// update. Absent fields keep their stored values.
type UpdateProductRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Images      []string `json:"images"`
	CategoryID  *string  `json:"categoryId" validate:"omitempty,uuid"`
}

// UpdateStockRequest represents an order-driven stock adjustment
type UpdateStockRequest struct {
	Stock  *int   `json:"stock" validate:"required,gt=0"`
	Status string `json:"status" validate:"required,oneof=PROCESSING SHIPPED DELIVERED CANCELLED"`
}

// Field messages preserved verbatim from the upstream API contract,
// including the inherited grammar.
var productFieldMessages = map[string]string{
	"Title.required":       "title can not be blank.",
	"Description.required": "description can not be empty.",
	"Price.required":       "price should not be empty.",
	"Price.gte":            "price can not be negative.",
	"Stock.required":       "stock should not be empty.",
	"Stock.gte":            "stock can not be negative.",
	"Stock.gt":             "stock should be number",
	"Images.required":      "images should not be empty.",
	"CategoryID.required":  "category should not be empty.",
	"CategoryID.uuid":      "category id should be a number",
	"Status.required":      "status should not be empty.",
	"Status.oneof":         "status should be a valid order status.",
}

var productTypeMessages = map[string]string{
	"price":  "price should be number",
	"stock":  "stock should be number",
	"images": "images should be in array format.",
}

// decodeValidated decodes and validates a product request body, writing the
// aggregated field errors itself. Returns false when the request was rejected.
func (h *ProductHandler) decodeValidated(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := request.DecodeJSON(r, v); err != nil {
		var typeErr *request.TypeError
		if errors.As(err, &typeErr) {
			if msg, ok := productTypeMessages[typeErr.Field]; ok {
				response.ValidationFailed(w, []pkgvalidator.FieldError{{Field: typeErr.Field, Message: msg}})
				return false
			}
		}
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := pkgvalidator.Get().Struct(v); err != nil {
		response.ValidationFailed(w, pkgvalidator.Translate(err, productFieldMessages))
		return false
	}

	return true
}

// Create handles POST /api/v1/products
// @Summary Create a new product
// @Tags Products
// @Accept json
// @Produce json
// @Param product body CreateProductRequest true "Product details"
// @Success 201 {object} map[string]interface{} "Product created successfully"
// @Failure 400 {object} map[string]interface{} "Validation failure"
// @Failure 404 {object} map[string]string "Category not found"
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, err := request.ActorID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid user identity")
		return
	}

	var req CreateProductRequest
	if !h.decodeValidated(w, r, &req) {
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "category id should be a number")
		return
	}

	prod := &domain.Product{
		Title:       req.Title,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Images:      req.Images,
		CategoryID:  categoryID,
	}

	if err := h.service.Create(r.Context(), prod, actorID); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, prod)
}

// List handles GET /api/v1/products
// @Summary List products with filters
// @Description Filtered product listing with category join and review aggregates
// @Tags Products
// @Produce json
// @Param search query string false "Substring match on title"
// @Param category query string false "Category ID (UUID)"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param minRating query number false "Minimum average rating"
// @Param maxRating query number false "Maximum average rating"
// @Param limit query int false "Page size" default(4)
// @Param offset query int false "Rows to skip"
// @Success 200 {object} map[string]interface{} "Filtered page with totals"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Search:     r.URL.Query().Get("search"),
		CategoryID: request.GetUUIDQuery(r, "category"),
		MinPrice:   request.GetFloatQuery(r, "minPrice"),
		MaxPrice:   request.GetFloatQuery(r, "maxPrice"),
		MinRating:  request.GetFloatQuery(r, "minRating"),
		MaxRating:  request.GetFloatQuery(r, "maxRating"),
		Limit:      request.GetIntQuery(r, "limit", 0),
		Offset:     request.GetIntQuery(r, "offset", 0),
	}

	page, err := h.service.FindAll(r.Context(), filter)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, page)
}

// GetByID handles GET /api/v1/products/:id
// @Summary Get a product by ID
// @Tags Products
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} map[string]interface{} "Product with category and added-by"
// @Failure 404 {object} map[string]string "Product not found"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	detail, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, detail)
}

// Update handles PUT /api/v1/products/:id
// @Summary Partially update a product
// @Description Shallow-merges provided fields; the acting user becomes the product's added-by
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param product body UpdateProductRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "Updated product"
// @Failure 404 {object} map[string]string "Product or category not found"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, err := request.ActorID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid user identity")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if !h.decodeValidated(w, r, &req) {
		return
	}

	patch := domain.ProductPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
	}

	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "category id should be a number")
			return
		}
		patch.CategoryID = &categoryID
	}

	prod, err := h.service.Update(r.Context(), id, patch, actorID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, prod)
}

// Delete handles DELETE /api/v1/products/:id
// @Summary Delete a product
// @Description Fails while any order references the product
// @Tags Products
// @Param id path string true "Product ID (UUID)"
// @Success 204 "Product deleted successfully"
// @Failure 400 {object} map[string]string "Product is referenced by an order"
// @Failure 404 {object} map[string]string "Product not found"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// UpdateStock handles PATCH /api/v1/products/:id/stock
// @Summary Adjust product stock
// @Description Delivered orders decrement stock, any other status increments it
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param adjustment body UpdateStockRequest true "Quantity and order status"
// @Success 200 {object} map[string]interface{} "Product with adjusted stock"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "Insufficient stock"
// @Router /products/{id}/stock [patch]
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateStockRequest
	if !h.decodeValidated(w, r, &req) {
		return
	}

	prod, err := h.service.AdjustStock(r.Context(), id, *req.Stock, domain.OrderStatus(req.Status))
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, prod)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ProductHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, product.ErrCategoryNotFound):
		response.Error(w, http.StatusNotFound, "Category not found.")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Product not found.")
	case errors.Is(err, domain.ErrProductInUse):
		response.Error(w, http.StatusBadRequest, "Products is in use.")
	case errors.Is(err, domain.ErrInsufficientStock):
		response.Error(w, http.StatusConflict, "Insufficient stock for delivery.")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in product handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
