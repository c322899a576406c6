package importer

import (
	"context"

	"catalog-import-service/internal/models"
)

// ExistingCategory is a stored category matched by one of its natural keys
type ExistingCategory struct {
	ID        string
	Name      string
	Slug      string
	SortOrder int
}

// Gateway is the persistence boundary of the import pipeline. All lookups
// and writes are scoped to the caller's tenant by the implementation.
type Gateway interface {
	// FindExistingBySlugOrName returns every stored category whose slug is in
	// slugs or whose name case-insensitively equals one of names, in one read.
	FindExistingBySlugOrName(ctx context.Context, slugs, names []string) ([]ExistingCategory, error)
	MaxCategorySortOrder(ctx context.Context) (int, error)
	// ExistingSlugs returns stored slugs equal to a base or of the form
	// base-N, mapped to the owning category id.
	ExistingSlugs(ctx context.Context, bases []string) (map[string]string, error)
	// ExistingSKUs does the same for product and variant SKUs, mapped to the
	// id of the category that owns the product.
	ExistingSKUs(ctx context.Context, bases []string) (map[string]string, error)

	CreateCategory(ctx context.Context, record models.CategoryRecord) (string, error)
	UpdateCategory(ctx context.Context, id string, record models.CategoryRecord) error
	DeleteCategoryCascade(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, categoryID string, product models.ProductRecord) (string, error)
	CreateVariant(ctx context.Context, productID string, variant models.VariantRecord) (string, error)
	CreateImage(ctx context.Context, productID string, image models.ImageRecord) (string, error)
}
