package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CatalogGateway binds a CategoryRepository to one tenant and caller so it
// can serve as the import pipeline's gateway
type CatalogGateway struct {
	repo     *CategoryRepository
	tenantID string
	userID   string
}

var _ importer.Gateway = (*CatalogGateway)(nil)

func NewCatalogGateway(repo *CategoryRepository, tenantID, userID string) *CatalogGateway {
	return &CatalogGateway{repo: repo, tenantID: tenantID, userID: userID}
}

func (g *CatalogGateway) FindExistingBySlugOrName(ctx context.Context, slugs, names []string) ([]importer.ExistingCategory, error) {
	categories, err := g.repo.FindBySlugsOrNames(ctx, g.tenantID, slugs, names)
	if err != nil {
		return nil, err
	}
	existing := make([]importer.ExistingCategory, len(categories))
	for i, c := range categories {
		existing[i] = importer.ExistingCategory{
			ID:        c.ID.String(),
			Name:      c.Name,
			Slug:      c.Slug,
			SortOrder: c.SortOrder,
		}
	}
	return existing, nil
}

func (g *CatalogGateway) MaxCategorySortOrder(ctx context.Context) (int, error) {
	return g.repo.MaxSortOrder(ctx, g.tenantID)
}

func (g *CatalogGateway) ExistingSlugs(ctx context.Context, bases []string) (map[string]string, error) {
	return g.repo.SlugsWithBases(ctx, g.tenantID, bases)
}

func (g *CatalogGateway) ExistingSKUs(ctx context.Context, bases []string) (map[string]string, error) {
	return g.repo.SKUsWithBases(ctx, g.tenantID, bases)
}

func categoryStatus(active bool) models.CategoryStatusEnum {
	if active {
		return models.StatusActive
	}
	return models.StatusInactive
}

func (g *CatalogGateway) CreateCategory(ctx context.Context, record models.CategoryRecord) (string, error) {
	category := &models.Category{
		TenantID:    g.tenantID,
		CreatedByID: g.userID,
		UpdatedByID: g.userID,
		Name:        record.Name,
		Slug:        record.Slug,
		Description: record.Description,
		ImageURL:    record.Image,
		IsActive:    record.IsActive,
		Status:      categoryStatus(record.IsActive),
	}
	if record.SortOrder != nil {
		category.SortOrder = *record.SortOrder
	}
	if err := g.repo.Create(ctx, category); err != nil {
		return "", err
	}
	return category.ID.String(), nil
}

// UpdateCategory overwrites the supplied fields; an empty slug or missing
// sort order keeps the stored value
func (g *CatalogGateway) UpdateCategory(ctx context.Context, id string, record models.CategoryRecord) error {
	updates := map[string]interface{}{
		"name":          record.Name,
		"description":   record.Description,
		"image_url":     record.Image,
		"is_active":     record.IsActive,
		"status":        categoryStatus(record.IsActive),
		"updated_by_id": g.userID,
	}
	if record.Slug != "" {
		updates["slug"] = record.Slug
	}
	if record.SortOrder != nil {
		updates["sort_order"] = *record.SortOrder
	}
	return g.repo.UpdateFields(ctx, g.tenantID, id, updates)
}

func (g *CatalogGateway) DeleteCategoryCascade(ctx context.Context, id string) error {
	return g.repo.DeleteCascade(ctx, g.tenantID, id)
}

func (g *CatalogGateway) CreateProduct(ctx context.Context, categoryID string, record models.ProductRecord) (string, error) {
	catID, err := uuid.Parse(categoryID)
	if err != nil {
		return "", fmt.Errorf("invalid category id %q: %w", categoryID, err)
	}
	if record.Price == nil {
		return "", fmt.Errorf("product %q has no price", record.Name)
	}

	product := &models.Product{
		TenantID:        g.tenantID,
		CategoryID:      catID,
		CreatedByID:     optional(g.userID),
		Name:            record.Name,
		SKU:             record.SKU,
		Barcode:         optional(record.Barcode),
		Description:     optional(record.Description),
		Price:           record.Price.String(),
		CostPrice:       amount(record.CostPrice),
		ComparePrice:    amount(record.ComparePrice),
		SalePrice:       amount(record.SalePrice),
		SaleEndDate:     record.SaleEndDate,
		IsFeatured:      record.IsFeatured,
		IsOnSale:        record.IsOnSale,
		Weight:          amount(record.Weight),
		MetaTitle:       optional(record.MetaTitle),
		MetaDescription: optional(record.MetaDescription),
		Status:          models.ProductStatusActive,
	}
	if record.Dimensions != nil {
		if product.Dimensions, err = toJSON(record.Dimensions); err != nil {
			return "", err
		}
	}
	if len(record.Tags) > 0 {
		if product.Tags, err = toJSON(record.Tags); err != nil {
			return "", err
		}
	}

	if err := g.repo.CreateProduct(ctx, product); err != nil {
		return "", err
	}
	return product.ID.String(), nil
}

func (g *CatalogGateway) CreateVariant(ctx context.Context, productID string, record models.VariantRecord) (string, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return "", fmt.Errorf("invalid product id %q: %w", productID, err)
	}
	variant := &models.ProductVariant{
		TenantID:  g.tenantID,
		ProductID: pid,
		SKU:       record.SKU,
		Size:      optional(record.Size),
		Color:     optional(record.Color),
		ColorCode: optional(record.ColorCode),
		Stock:     record.Stock,
	}
	if err := g.repo.CreateVariant(ctx, variant); err != nil {
		return "", err
	}
	return variant.ID.String(), nil
}

func (g *CatalogGateway) CreateImage(ctx context.Context, productID string, record models.ImageRecord) (string, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return "", fmt.Errorf("invalid product id %q: %w", productID, err)
	}
	image := &models.ProductImage{
		TenantID:  g.tenantID,
		ProductID: pid,
		URL:       record.URL,
		Alt:       optional(record.Alt),
		Color:     optional(record.Color),
		IsPrimary: record.IsPrimary,
	}
	if record.SortOrder != nil {
		image.SortOrder = *record.SortOrder
	}
	if err := g.repo.CreateImage(ctx, image); err != nil {
		return "", err
	}
	return image.ID.String(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func amount(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
