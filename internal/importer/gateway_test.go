package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"catalog-import-service/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryGateway is an in-memory Gateway used to observe what the pipeline writes
type memoryGateway struct {
	mu         sync.Mutex
	seq        int
	categories []*memCategory
	products   []*memProduct
	variants   []memVariant
	images     []memImage
	writes     []string

	failCreateCategory func(models.CategoryRecord) error
	failCreateProduct  func(models.ProductRecord) error
}

type memCategory struct {
	ID     string
	Record models.CategoryRecord
}

type memProduct struct {
	ID         string
	CategoryID string
	Record     models.ProductRecord
}

type memVariant struct {
	ID        string
	ProductID string
	Record    models.VariantRecord
}

type memImage struct {
	ID        string
	ProductID string
	Record    models.ImageRecord
}

var _ Gateway = (*memoryGateway)(nil)

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{}
}

func (g *memoryGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

// seed stores a category directly, bypassing write tracking
func (g *memoryGateway) seed(name, slug string, sortOrder int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("cat")
	g.categories = append(g.categories, &memCategory{ID: id, Record: models.CategoryRecord{Name: name, Slug: slug, SortOrder: &sortOrder, IsActive: true}})
	return id
}

func (g *memoryGateway) seedProduct(categoryID, name, sku string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("prod")
	g.products = append(g.products, &memProduct{ID: id, CategoryID: categoryID, Record: models.ProductRecord{Name: name, SKU: sku}})
	return id
}

func (g *memoryGateway) category(id string) *memCategory {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.categories {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (g *memoryGateway) categoryBySlug(slug string) *memCategory {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.categories {
		if c.Record.Slug == slug {
			return c
		}
	}
	return nil
}

func (g *memoryGateway) productsOf(categoryID string) []*memProduct {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*memProduct
	for _, p := range g.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

func (g *memoryGateway) FindExistingBySlugOrName(ctx context.Context, slugs, names []string) ([]ExistingCategory, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []ExistingCategory
	for _, c := range g.categories {
		match := false
		for _, s := range slugs {
			match = match || c.Record.Slug == s
		}
		for _, n := range names {
			match = match || strings.EqualFold(c.Record.Name, n)
		}
		if match {
			out = append(out, ExistingCategory{ID: c.ID, Name: c.Record.Name, Slug: c.Record.Slug, SortOrder: *c.Record.SortOrder})
		}
	}
	return out, nil
}

func (g *memoryGateway) MaxCategorySortOrder(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	max := 0
	for _, c := range g.categories {
		if *c.Record.SortOrder > max {
			max = *c.Record.SortOrder
		}
	}
	return max, nil
}

func matchesBase(value, base string) bool {
	if value == base {
		return true
	}
	suffix, ok := strings.CutPrefix(value, base+"-")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}

func (g *memoryGateway) ExistingSlugs(ctx context.Context, bases []string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string)
	for _, c := range g.categories {
		for _, b := range bases {
			if matchesBase(c.Record.Slug, b) {
				out[c.Record.Slug] = c.ID
			}
		}
	}
	return out, nil
}

func (g *memoryGateway) ExistingSKUs(ctx context.Context, bases []string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	owner := make(map[string]string)
	for _, p := range g.products {
		owner[p.ID] = p.CategoryID
	}
	out := make(map[string]string)
	check := func(sku, categoryID string) {
		for _, b := range bases {
			if matchesBase(strings.ToUpper(sku), strings.ToUpper(b)) {
				out[sku] = categoryID
			}
		}
	}
	for _, p := range g.products {
		check(p.Record.SKU, p.CategoryID)
	}
	for _, v := range g.variants {
		check(v.Record.SKU, owner[v.ProductID])
	}
	return out, nil
}

func (g *memoryGateway) CreateCategory(ctx context.Context, record models.CategoryRecord) (string, error) {
	if g.failCreateCategory != nil {
		if err := g.failCreateCategory(record); err != nil {
			return "", err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.categories {
		if c.Record.Slug == record.Slug {
			return "", fmt.Errorf("duplicate slug %q", record.Slug)
		}
	}
	id := g.nextID("cat")
	g.categories = append(g.categories, &memCategory{ID: id, Record: record})
	g.writes = append(g.writes, "CreateCategory:"+record.Slug)
	return id, nil
}

func (g *memoryGateway) UpdateCategory(ctx context.Context, id string, record models.CategoryRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.categories {
		if c.ID == id {
			if record.Slug == "" {
				record.Slug = c.Record.Slug
			}
			if record.SortOrder == nil {
				record.SortOrder = c.Record.SortOrder
			}
			c.Record = record
			g.writes = append(g.writes, "UpdateCategory:"+id)
			return nil
		}
	}
	return errors.New("category not found")
}

func (g *memoryGateway) DeleteCategoryCascade(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.categories[:0]
	found := false
	for _, c := range g.categories {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return errors.New("category not found")
	}
	g.categories = kept
	products := g.products[:0]
	for _, p := range g.products {
		if p.CategoryID != id {
			products = append(products, p)
		}
	}
	g.products = products
	g.writes = append(g.writes, "DeleteCategoryCascade:"+id)
	return nil
}

func (g *memoryGateway) CreateProduct(ctx context.Context, categoryID string, product models.ProductRecord) (string, error) {
	if g.failCreateProduct != nil {
		if err := g.failCreateProduct(product); err != nil {
			return "", err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("prod")
	g.products = append(g.products, &memProduct{ID: id, CategoryID: categoryID, Record: product})
	g.writes = append(g.writes, "CreateProduct:"+product.SKU)
	return id, nil
}

func (g *memoryGateway) CreateVariant(ctx context.Context, productID string, variant models.VariantRecord) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("var")
	g.variants = append(g.variants, memVariant{ID: id, ProductID: productID, Record: variant})
	return id, nil
}

func (g *memoryGateway) CreateImage(ctx context.Context, productID string, image models.ImageRecord) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("img")
	g.images = append(g.images, memImage{ID: id, ProductID: productID, Record: image})
	return id, nil
}

// MockGateway is a testify mock of Gateway
type MockGateway struct {
	mock.Mock
}

var _ Gateway = (*MockGateway)(nil)

func (m *MockGateway) FindExistingBySlugOrName(ctx context.Context, slugs, names []string) ([]ExistingCategory, error) {
	args := m.Called(ctx, slugs, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ExistingCategory), args.Error(1)
}

func (m *MockGateway) MaxCategorySortOrder(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockGateway) ExistingSlugs(ctx context.Context, bases []string) (map[string]string, error) {
	args := m.Called(ctx, bases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockGateway) ExistingSKUs(ctx context.Context, bases []string) (map[string]string, error) {
	args := m.Called(ctx, bases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockGateway) CreateCategory(ctx context.Context, record models.CategoryRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) UpdateCategory(ctx context.Context, id string, record models.CategoryRecord) error {
	args := m.Called(ctx, id, record)
	return args.Error(0)
}

func (m *MockGateway) DeleteCategoryCascade(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateProduct(ctx context.Context, categoryID string, product models.ProductRecord) (string, error) {
	args := m.Called(ctx, categoryID, product)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateVariant(ctx context.Context, productID string, variant models.VariantRecord) (string, error) {
	args := m.Called(ctx, productID, variant)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateImage(ctx context.Context, productID string, image models.ImageRecord) (string, error) {
	args := m.Called(ctx, productID, image)
	return args.String(0), args.Error(1)
}

// Helper to decode a JSON batch the way the HTTP layer does
func decodeBatch(t *testing.T, payload string) []models.RawRecord {
	t.Helper()
	var records []models.RawRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	return records
}

func newTestPipeline() *Pipeline {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(logger, 4)
}

func resultRecord(t *testing.T, r models.ImportResult) *models.CategoryRecord {
	t.Helper()
	record, ok := r.Data.(*models.CategoryRecord)
	require.True(t, ok, "result data should be a category record")
	return record
}
