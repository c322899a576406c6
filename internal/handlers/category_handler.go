package handlers

import (
	"context"
	"errors"
	"net/http"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CategoryReader reads imported categories back for inspection
type CategoryReader interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Category, error)
	GetProducts(ctx context.Context, tenantID, categoryID string) ([]models.Product, error)
}

type CategoryHandler struct {
	repo   CategoryReader
	logger *logrus.Entry
}

func NewCategoryHandler(repo CategoryReader, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{
		repo:   repo,
		logger: logger.WithField("component", "handlers.category"),
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// getTenantID extracts tenant ID from context - fails if not present
// SECURITY: This ensures all operations are tenant-scoped
func getTenantID(c *gin.Context) (string, bool) {
	tenantID := c.GetString("tenant_id")
	if tenantID == "" {
		respondError(c, http.StatusUnauthorized, "TENANT_REQUIRED", "Tenant context is required for this operation")
		return "", false
	}
	return tenantID, true
}

// categoryID reads and checks the :id path parameter
func categoryID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Category id must be a UUID")
		return "", false
	}
	return id, true
}

// GetCategory retrieves a category by ID
// GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := categoryID(c)
	if !ok {
		return
	}

	category, err := h.repo.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    category,
	})
}

// GetCategoryProducts lists the products imported into a category
// GET /api/v1/categories/:id/products
func (h *CategoryHandler) GetCategoryProducts(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := categoryID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetByID(ctx, tenantID, id); err != nil {
		h.respondLookupError(c, err)
		return
	}

	products, err := h.repo.GetProducts(ctx, tenantID, id)
	if err != nil {
		h.logger.WithError(err).WithField("category_id", id).Error("Failed to list products")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

func (h *CategoryHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrCategoryNotFound) {
		respondError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}
	h.logger.WithError(err).Error("Failed to load category")
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load category")
}
