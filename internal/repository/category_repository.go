package repository

import (
	"catalog-import-service/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	CategoryCacheTTL         = 30 * time.Minute // Categories rarely change
	CategoryProductsCacheTTL = 5 * time.Minute
)

var (
	ErrCategoryNotFound = errors.New("category not found")
)

type CategoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCategoryRepository(db *gorm.DB, redis *redis.Client) *CategoryRepository {
	return &CategoryRepository{
		db:    db,
		redis: redis,
	}
}

func categoryCacheKey(tenantID, id string) string {
	return fmt.Sprintf("tesseract:categories:category:%s:%s", tenantID, id)
}

func categoryProductsCacheKey(tenantID, id string) string {
	return fmt.Sprintf("tesseract:categories:products:%s:%s", tenantID, id)
}

// invalidateCategoryCaches invalidates all caches related to a category for a tenant
func (r *CategoryRepository) invalidateCategoryCaches(ctx context.Context, tenantID string, categoryID *string) {
	if r.redis == nil {
		return
	}

	if categoryID != nil {
		r.redis.Del(ctx, categoryCacheKey(tenantID, *categoryID), categoryProductsCacheKey(tenantID, *categoryID))
	}
	// Invalidate category list caches using pattern
	pattern := fmt.Sprintf("tesseract:categories:list:%s:*", tenantID)
	keys, _ := r.redis.Keys(ctx, pattern).Result()
	if len(keys) > 0 {
		r.redis.Del(ctx, keys...)
	}
}

// InvalidateCategory drops the cached category and its product list
func (r *CategoryRepository) InvalidateCategory(ctx context.Context, tenantID, id string) {
	r.invalidateCategoryCaches(ctx, tenantID, &id)
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).Create(category).Error
	if err == nil {
		// Invalidate list caches as a new category was added
		r.invalidateCategoryCaches(ctx, category.TenantID, nil)
	}
	return err
}

// GetByID retrieves a category by ID with tenant isolation and caching
// SECURITY: Always requires tenantID to prevent cross-tenant access
func (r *CategoryRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Category, error) {
	cacheKey := categoryCacheKey(tenantID, id)

	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var category models.Category
			if err := json.Unmarshal([]byte(val), &category); err == nil {
				return &category, nil
			}
		}
	}

	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		data, err := json.Marshal(category)
		if err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}

	return &category, nil
}

// GetProducts lists the products of a category with their variants and images
func (r *CategoryRepository) GetProducts(ctx context.Context, tenantID, categoryID string) ([]models.Product, error) {
	cacheKey := categoryProductsCacheKey(tenantID, categoryID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var products []models.Product
			if err := json.Unmarshal([]byte(val), &products); err == nil {
				return products, nil
			}
		}
	}

	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("tenant_id = ? AND category_id = ?", tenantID, categoryID).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		data, err := json.Marshal(products)
		if err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryProductsCacheTTL)
		}
	}
	return products, nil
}

// FindBySlugsOrNames returns every tenant category whose slug is in slugs or
// whose lower-cased name is in names, in a single query.
func (r *CategoryRepository) FindBySlugsOrNames(ctx context.Context, tenantID string, slugs, names []string) ([]models.Category, error) {
	if len(slugs) == 0 && len(names) == 0 {
		return []models.Category{}, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	var match *gorm.DB
	switch {
	case len(slugs) > 0 && len(lowered) > 0:
		match = r.db.Where("slug IN ?", slugs).Or("LOWER(name) IN ?", lowered)
	case len(slugs) > 0:
		match = r.db.Where("slug IN ?", slugs)
	default:
		match = r.db.Where("LOWER(name) IN ?", lowered)
	}

	var categories []models.Category
	err := r.db.WithContext(ctx).
		Select("id", "tenant_id", "name", "slug", "sort_order").
		Where("tenant_id = ?", tenantID).
		Where(match).
		Order("created_at ASC").
		Find(&categories).Error
	return categories, err
}

// MaxSortOrder returns the highest sort order of the tenant's categories, or 0
func (r *CategoryRepository) MaxSortOrder(ctx context.Context, tenantID string) (int, error) {
	var maxOrder int
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Select("COALESCE(MAX(sort_order), 0)").
		Where("tenant_id = ?", tenantID).
		Scan(&maxOrder).Error
	return maxOrder, err
}

// SlugsWithBases returns stored slugs equal to one of bases or of the form
// base-N, mapped to the id of the category holding them.
func (r *CategoryRepository) SlugsWithBases(ctx context.Context, tenantID string, bases []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(bases) == 0 {
		return out, nil
	}

	var rows []struct {
		ID   string
		Slug string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Select("id", "slug").
		Where("tenant_id = ?", tenantID).
		Where(likeAny(r.db, "slug", bases)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if hasBase(row.Slug, bases, false) {
			out[row.Slug] = row.ID
		}
	}
	return out, nil
}

// SKUsWithBases is SlugsWithBases for product and variant SKUs, compared
// case-insensitively and mapped to the owning category id.
func (r *CategoryRepository) SKUsWithBases(ctx context.Context, tenantID string, bases []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(bases) == 0 {
		return out, nil
	}
	upper := make([]string, len(bases))
	for i, b := range bases {
		upper[i] = strings.ToUpper(b)
	}

	type skuRow struct {
		SKU        string
		CategoryID string
	}
	var products []skuRow
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("sku", "category_id").
		Where("tenant_id = ?", tenantID).
		Where(likeAny(r.db, "UPPER(sku)", upper)).
		Scan(&products).Error
	if err != nil {
		return nil, err
	}

	var variants []skuRow
	err = r.db.WithContext(ctx).
		Table("product_variants").
		Select("product_variants.sku", "products.category_id").
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("product_variants.tenant_id = ?", tenantID).
		Where(likeAny(r.db, "UPPER(product_variants.sku)", upper)).
		Scan(&variants).Error
	if err != nil {
		return nil, err
	}

	for _, row := range append(products, variants...) {
		if hasBase(row.SKU, upper, true) {
			out[row.SKU] = row.CategoryID
		}
	}
	return out, nil
}

// likeAny builds (column IN bases OR column LIKE 'base-%' ...)
func likeAny(db *gorm.DB, column string, bases []string) *gorm.DB {
	cond := db.Where(column+" IN ?", bases)
	for _, b := range bases {
		cond = cond.Or(column+` LIKE ? ESCAPE '\'`, escapeLike(b)+"-%")
	}
	return cond
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// hasBase reports whether value is a base or base-N for a positive N
func hasBase(value string, bases []string, fold bool) bool {
	if fold {
		value = strings.ToUpper(value)
	}
	for _, b := range bases {
		if value == b {
			return true
		}
		suffix, ok := strings.CutPrefix(value, b+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			return true
		}
	}
	return false
}

// UpdateFields applies a partial update with tenant isolation
// SECURITY: Always requires tenantID to prevent cross-tenant updates
func (r *CategoryRepository) UpdateFields(ctx context.Context, tenantID, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	r.invalidateCategoryCaches(ctx, tenantID, &id)
	return nil
}

// DeleteCascade permanently removes a category with its products, variants
// and images in one transaction. Rows are hard-deleted so the slug and SKUs
// can be reused by a replacement.
// SECURITY: Only deletes rows belonging to the specified tenant
func (r *CategoryRepository) DeleteCascade(ctx context.Context, tenantID, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productIDs := func() *gorm.DB {
			return tx.Model(&models.Product{}).
				Select("id").
				Where("tenant_id = ? AND category_id = ?", tenantID, id)
		}

		if err := tx.Unscoped().Where("tenant_id = ? AND product_id IN (?)", tenantID, productIDs()).
			Delete(&models.ProductImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete product images: %w", err)
		}
		if err := tx.Unscoped().Where("tenant_id = ? AND product_id IN (?)", tenantID, productIDs()).
			Delete(&models.ProductVariant{}).Error; err != nil {
			return fmt.Errorf("failed to delete product variants: %w", err)
		}
		if err := tx.Unscoped().Where("tenant_id = ? AND category_id = ?", tenantID, id).
			Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("failed to delete products: %w", err)
		}

		result := tx.Unscoped().Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Category{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateCategoryCaches(ctx, tenantID, &id)
	return nil
}

// CreateProduct inserts a product row without its associations
func (r *CategoryRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).Omit("Variants", "Images").Create(product).Error
	if err == nil && r.redis != nil {
		r.redis.Del(ctx, categoryProductsCacheKey(product.TenantID, product.CategoryID.String()))
	}
	return err
}

func (r *CategoryRepository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *CategoryRepository) CreateImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}
