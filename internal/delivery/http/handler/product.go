package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/product"
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
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price" swaggertype:"string" example:"19.99"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty" swaggertype:"string" example:"14.99"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty" swaggertype:"string"`
	Images      []string         `json:"images,omitempty"`
}

// UpdateProductRequest represents the request body for updating a product.
// Version is the version last read by the client; when omitted the current
// version is used and the update cannot detect concurrent edits.
type UpdateProductRequest struct {
	CreateProductRequest
	Version *int `json:"version,omitempty"`
}

func (req CreateProductRequest) toProduct() *domain.Product {
	images := pq.StringArray{}
	if req.Images != nil {
		images = pq.StringArray(req.Images)
	}
	return &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		CategoryID:  req.CategoryID,
		Images:      images,
	}
}

// Create handles POST /api/v1/products
// @Summary Create a new product
// @Description Create a new product. The rating aggregate starts at zero reviews.
// @Tags Products
// @Accept json
// @Produce json
// @Param product body CreateProductRequest true "Product details"
// @Success 201 {object} map[string]interface{} "Product created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := req.toProduct()
	if err := h.service.Create(r.Context(), product); err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.Created(w, product)
}

// GetByID handles GET /api/v1/products/:id
// @Summary Get a product by ID
// @Description Get detailed information about a product including its review count and average rating
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} map[string]interface{} "Product details"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.Success(w, product)
}

// List handles GET /api/v1/products
// @Summary List products
// @Description Get a paginated list of products, optionally filtered by category and name substring
// @Tags Products
// @Accept json
// @Produce json
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Param category_id query string false "Category ID (UUID)"
// @Param q query string false "Case-insensitive name substring"
// @Success 200 {object} map[string]interface{} "Paginated list of products"
// @Failure 400 {object} map[string]string "Invalid category ID"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	categoryID, err := request.GetOptionalUUIDQuery(r, "category_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	filter := domain.ProductFilter{
		CategoryID: categoryID,
		Query:      r.URL.Query().Get("q"),
	}

	products, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.Paginated(w, products, total, limit, offset)
}

// Update handles PUT /api/v1/products/:id
// @Summary Update a product
// @Description Update editable product fields. Review count and average rating are never changed here.
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param product body UpdateProductRequest true "Updated product details"
// @Success 200 {object} map[string]interface{} "Product updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "Conflict - product was modified"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := req.toProduct()
	product.ID = id

	if req.Version != nil {
		product.Version = *req.Version
	} else {
		existing, err := h.service.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, "Product", err)
			return
		}
		product.Version = existing.Version
	}

	if err := h.service.Update(r.Context(), product); err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	updated, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/products/:id
// @Summary Delete a product
// @Description Soft delete a product and all its reviews
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 204 "Product deleted successfully"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.NoContent(w)
}
