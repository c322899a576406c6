package repository

import (
	"context"
	"regexp"
	"testing"

	"catalog-import-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestMaxSortOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(sort_order), 0) FROM "categories"`)).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12))

	got, err := repo.MaxSortOrder(context.Background(), "tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, 12, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindExistingBySlugOrName(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gw := NewCatalogGateway(NewCategoryRepository(gormDB, nil), "tenant-1", "user-1")

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "categories" WHERE tenant_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "slug", "sort_order"}).
			AddRow(id, "tenant-1", "Electronics", "electronics", 4))

	existing, err := gw.FindExistingBySlugOrName(context.Background(), []string{"electronics"}, []string{"Electronics"})
	require.NoError(t, err)
	require.Len(t, existing, 1)
	assert.Equal(t, id.String(), existing[0].ID)
	assert.Equal(t, "electronics", existing[0].Slug)
	assert.Equal(t, 4, existing[0].SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBySlugsOrNames_NoKeys(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	got, err := repo.FindBySlugsOrNames(context.Background(), "tenant-1", nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlugsWithBases_FiltersNumericSuffixes(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "categories" WHERE tenant_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).
			AddRow("c1", "shoes").
			AddRow("c2", "shoes-2").
			AddRow("c3", "shoes-for-kids").
			AddRow("c4", "shoes-10"))

	got, err := repo.SlugsWithBases(context.Background(), "tenant-1", []string{"shoes"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shoes": "c1", "shoes-2": "c2", "shoes-10": "c4"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSKUsWithBases_ProductsAndVariants(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "products" WHERE tenant_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"sku", "category_id"}).AddRow("cable", "c1"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "product_variants" JOIN products`)).
		WillReturnRows(sqlmock.NewRows([]string{"sku", "category_id"}).AddRow("CABLE-2", "c2"))

	got, err := repo.SKUsWithBases(context.Background(), "tenant-1", []string{"Cable"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cable": "c1", "CABLE-2": "c2"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascade(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "product_images"`)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "product_variants"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteCascade(context.Background(), "tenant-1", uuid.NewString())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascade_NotFoundRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewCategoryRepository(gormDB, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "product_images"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "product_variants"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "tenant-1", uuid.NewString())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayCreateCategory(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gw := NewCatalogGateway(NewCategoryRepository(gormDB, nil), "tenant-1", "user-1")

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectCommit()

	order := 3
	got, err := gw.CreateCategory(context.Background(), models.CategoryRecord{Name: "Books", Slug: "books", IsActive: true, SortOrder: &order})
	assert.NoError(t, err)
	assert.Equal(t, id.String(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayUpdateCategory_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gw := NewCatalogGateway(NewCategoryRepository(gormDB, nil), "tenant-1", "user-1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories" SET`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := gw.UpdateCategory(context.Background(), uuid.NewString(), models.CategoryRecord{Name: "Books"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayCreateProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gw := NewCatalogGateway(NewCategoryRepository(gormDB, nil), "tenant-1", "user-1")

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectCommit()

	price := decimal.RequireFromString("9.99")
	got, err := gw.CreateProduct(context.Background(), uuid.NewString(), models.ProductRecord{
		Name: "Cable", Description: "USB-C", Price: &price, SKU: "CABLE", Tags: []string{"usb"},
	})
	assert.NoError(t, err)
	assert.Equal(t, id.String(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayCreateProduct_InvalidCategoryID(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	gw := NewCatalogGateway(NewCategoryRepository(gormDB, nil), "tenant-1", "user-1")

	price := decimal.NewFromInt(1)
	_, err := gw.CreateProduct(context.Background(), "not-a-uuid", models.ProductRecord{Name: "A", Price: &price})
	assert.ErrorContains(t, err, "invalid category id")
}

func TestHasBase(t *testing.T) {
	bases := []string{"TEE"}
	assert.True(t, hasBase("tee", bases, true))
	assert.True(t, hasBase("TEE-7", bases, true))
	assert.False(t, hasBase("TEE-0", bases, true))
	assert.False(t, hasBase("TEE-SHIRT", bases, true))
	assert.False(t, hasBase("tee", bases, false))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `A\_B\%C\\D`, escapeLike(`A_B%C\D`))
}
