package handler

import (
	"net/http"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/review"
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

// SubmitReviewRequest represents the request body for submitting a review
type SubmitReviewRequest = domain.ReviewInput

// Submit handles POST /api/v1/products/:id/reviews
// @Summary Submit a review
// @Description Store a review and fold its rating into the product's review count and average rating in one transaction
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param review body SubmitReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "Too much contention, retry"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [post]
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req SubmitReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	review, err := h.service.Submit(r.Context(), productID, req)
	if err != nil {
		writeError(w, h.logger, "Product", err)
		return
	}

	response.Created(w, review)
}

// GetByID handles GET /api/v1/reviews/:id
// @Summary Get a review by ID
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Review details"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	review, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "Review", err)
		return
	}

	response.Success(w, review)
}

// GetByProductID handles GET /api/v1/products/:id/reviews
// @Summary Get reviews for a product
// @Description Get a paginated list of reviews for a specific product, newest first. Results are cached.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) GetByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	limit, offset := request.GetPaginationParams(r)

	reviews, total, err := h.service.ListByProduct(r.Context(), productID, limit, offset)
	if err != nil {
		writeError(w, h.logger, "Review", err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}
