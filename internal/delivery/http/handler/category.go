package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/category"
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
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty" swaggertype:"string"`
}

// RenameCategoryRequest represents the request body for renaming a category
type RenameCategoryRequest struct {
	Name string `json:"name"`
}

// MoveCategoryRequest represents the request body for re-parenting a category.
// A null parent_id makes the category a root.
type MoveCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id" swaggertype:"string"`
}

// Tree handles GET /api/v1/categories
// @Summary Get the category tree
// @Description Get every category nested under its parent. Categories whose parent is missing are returned as roots with orphaned=true.
// @Tags Categories
// @Produce json
// @Success 200 {object} map[string]interface{} "Category forest"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /categories [get]
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.service.Tree(r.Context())
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Success(w, forest)
}

// Create handles POST /api/v1/categories
// @Summary Create a category
// @Description Create a category. The slug is derived from the name.
// @Tags Categories
// @Accept json
// @Produce json
// @Param category body CreateCategoryRequest true "Category details"
// @Success 201 {object} map[string]interface{} "Category created successfully"
// @Failure 400 {object} map[string]string "Invalid name"
// @Failure 404 {object} map[string]string "Parent category not found"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Created(w, created)
}

// GetByID handles GET /api/v1/categories/:id
// @Summary Get a category by ID
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Success 200 {object} map[string]interface{} "Category details"
// @Failure 400 {object} map[string]string "Invalid category ID"
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	c, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Success(w, c)
}

// GetBySlug handles GET /api/v1/categories/slug/:slug
// @Summary Get a category by slug
// @Tags Categories
// @Produce json
// @Param slug path string true "Category slug"
// @Success 200 {object} map[string]interface{} "Category details"
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/slug/{slug} [get]
func (h *CategoryHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Success(w, c)
}

// Rename handles PUT /api/v1/categories/:id
// @Summary Rename a category
// @Description Change a category's name. The slug is derived again; the parent is unchanged.
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Param category body RenameCategoryRequest true "New name"
// @Success 200 {object} map[string]interface{} "Category renamed"
// @Failure 400 {object} map[string]string "Invalid name"
// @Failure 404 {object} map[string]string "Category not found"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Router /categories/{id} [put]
func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	var req RenameCategoryRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Success(w, c)
}

// Move handles PUT /api/v1/categories/:id/parent
// @Summary Move a category
// @Description Re-parent a category. The new parent may not be the category itself or one of its descendants.
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Param parent body MoveCategoryRequest true "New parent, null for root"
// @Success 200 {object} map[string]interface{} "Category moved"
// @Failure 400 {object} map[string]string "Move would create a cycle"
// @Failure 404 {object} map[string]string "Category or parent not found"
// @Router /categories/{id}/parent [put]
func (h *CategoryHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	var req MoveCategoryRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.Move(r.Context(), id, req.ParentID)
	if err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.Success(w, c)
}

// Delete handles DELETE /api/v1/categories/:id
// @Summary Delete a category
// @Description Delete a category without subcategories. Products keep their category reference.
// @Tags Categories
// @Param id path string true "Category ID (UUID)"
// @Success 204 "Category deleted"
// @Failure 400 {object} map[string]string "Invalid category ID"
// @Failure 404 {object} map[string]string "Category not found"
// @Failure 409 {object} map[string]string "Category has subcategories"
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "Category", err)
		return
	}

	response.NoContent(w)
}
