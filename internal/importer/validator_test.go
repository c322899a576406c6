package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidator_Validate(t *testing.T) {
	v := NewFieldValidator()

	tests := []struct {
		name         string
		record       string
		wantValid    bool
		wantError    string
		wantWarning  string
		wantWarnings int
	}{
		{
			name:      "minimal record",
			record:    `{"name": "Electronics"}`,
			wantValid: true,
		},
		{
			name:      "missing name",
			record:    `{"slug": "electronics"}`,
			wantError: "Name is required",
		},
		{
			name:      "name wrong type",
			record:    `{"name": 12}`,
			wantError: "Name must be a string",
		},
		{
			name:      "name too long",
			record:    `{"name": "` + strings.Repeat("x", 101) + `"}`,
			wantError: "Name must be at most 100 characters",
		},
		{
			name:      "description too long",
			record:    `{"name": "A", "description": "` + strings.Repeat("d", 501) + `"}`,
			wantError: "Description must be at most 500 characters",
		},
		{
			name:      "non boolean isActive",
			record:    `{"name": "A", "isActive": "true"}`,
			wantError: "isActive must be a boolean",
		},
		{
			name:      "fractional sortOrder",
			record:    `{"name": "A", "sortOrder": 1.5}`,
			wantError: "sortOrder must be an integer",
		},
		{
			name:      "relative image path",
			record:    `{"name": "A", "image": "/img/a.png"}`,
			wantValid: true,
		},
		{
			name:      "bad image",
			record:    `{"name": "A", "image": "not a url"}`,
			wantError: "Image must be a valid URL",
		},
		{
			name:        "slug with invalid characters",
			record:      `{"name": "A", "slug": "Home & Garden"}`,
			wantValid:   true,
			wantWarning: "normalized to 'home-garden'",
		},
		{
			name:      "products not an array",
			record:    `{"name": "A", "products": {"name": "P"}}`,
			wantError: "products must be an array",
		},
		{
			name:      "product missing price",
			record:    `{"name": "A", "products": [{"name": "P", "description": "d"}]}`,
			wantError: "products[0]: price is required",
		},
		{
			name:      "product negative price",
			record:    `{"name": "A", "products": [{"name": "P", "description": "d", "price": -1}]}`,
			wantError: "products[0]: price must be a non-negative number",
		},
		{
			name:        "product missing description",
			record:      `{"name": "A", "products": [{"name": "P", "price": 1}]}`,
			wantValid:   true,
			wantWarning: "products[0]: description is required",
		},
		{
			name:        "product categoryId ignored",
			record:      `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "categoryId": "x"}]}`,
			wantValid:   true,
			wantWarning: "categoryId is ignored",
		},
		{
			name:        "non object product",
			record:      `{"name": "A", "products": ["P"]}`,
			wantValid:   true,
			wantWarning: "products[0] is not an object",
		},
		{
			name:        "negative variant stock",
			record:      `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "variants": [{"stock": -2}]}]}`,
			wantValid:   true,
			wantWarning: "products[0]: variants[0]: stock must be a non-negative integer; it will not be imported",
		},
		{
			name:        "non object variant",
			record:      `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "variants": ["M"]}]}`,
			wantValid:   true,
			wantWarning: "products[0]: variants[0] is not an object",
		},
		{
			name:        "image without url",
			record:      `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "images": [{"alt": "x"}]}]}`,
			wantValid:   true,
			wantWarning: "products[0]: images[0]: url is required; it will not be imported",
		},
		{
			name:        "images not an array",
			record:      `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "images": "a.png"}]}`,
			wantValid:   true,
			wantWarning: "images must be an array",
		},
		{
			name:      "missing product price",
			record:    `{"name": "A", "products": [{"name": "P", "description": "d"}]}`,
			wantError: "products[0]: price is required",
		},
		{
			name:      "bad sale end date",
			record:    `{"name": "A", "products": [{"name": "P", "description": "d", "price": 1, "saleEndDate": "tomorrow"}]}`,
			wantError: "saleEndDate must be an RFC3339 timestamp or YYYY-MM-DD date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := decodeBatch(t, "["+tt.record+"]")
			result := v.Validate(0, batch[0], batch)

			assert.Equal(t, tt.wantError == "", result.Valid)
			assert.Equal(t, !result.Valid, len(result.Errors) > 0)
			assert.NotNil(t, result.Errors)
			assert.NotNil(t, result.Warnings)
			require.NotNil(t, result.Data)

			if tt.wantError != "" {
				assert.Contains(t, strings.Join(result.Errors, "\n"), tt.wantError)
			}
			if tt.wantWarning != "" {
				assert.Contains(t, strings.Join(result.Warnings, "\n"), tt.wantWarning)
			}
		})
	}
}

func TestFieldValidator_Normalizes(t *testing.T) {
	v := NewFieldValidator()
	batch := decodeBatch(t, `[{
		"name": "  Home & Garden ",
		"slug": "Home & Garden",
		"isActive": false,
		"sortOrder": 4,
		"products": [{
			"name": "Rake",
			"description": "Steel rake",
			"price": "19.90",
			"tags": ["garden", "garden", " tools "],
			"saleEndDate": "2026-12-31",
			"images": [{"url": "https://cdn.example.com/rake.png", "sortOrder": 2}]
		}]
	}]`)

	result := v.Validate(0, batch[0], batch)
	require.True(t, result.Valid, result.Errors)

	record := result.Data
	assert.Equal(t, "Home & Garden", record.Name)
	assert.Equal(t, "home-garden", record.Slug)
	assert.False(t, record.IsActive)
	assert.Equal(t, 4, *record.SortOrder)
	require.Len(t, record.Products, 1)

	product := record.Products[0]
	assert.Equal(t, "19.9", product.Price.String())
	assert.Equal(t, []string{"garden", "tools"}, product.Tags)
	assert.Equal(t, 2026, product.SaleEndDate.Year())
	require.Len(t, product.Images, 1)
	assert.Equal(t, 2, *product.Images[0].SortOrder)
}

func TestFieldValidator_DropsBadNestedItems(t *testing.T) {
	batch := decodeBatch(t, `[{
		"name": "Shirts",
		"products": [{
			"name": "Tee",
			"description": "Cotton tee",
			"price": 10,
			"variants": [{"size": "M", "stock": 3}, {"size": "L", "stock": -1}, "XL"],
			"images": [{"url": "/img/tee.png"}, {"alt": "no url"}]
		}]
	}]`)

	result := NewFieldValidator().Validate(0, batch[0], batch)
	require.True(t, result.Valid, result.Errors)

	product := result.Data.Products[0]
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "M", product.Variants[0].Size)
	require.Len(t, product.Images, 1)
	assert.Equal(t, 3, product.RejectedItems)
	assert.Len(t, result.Warnings, 3)
}

func TestFieldValidator_BatchDuplicatesAreWarnings(t *testing.T) {
	v := NewFieldValidator()
	batch := decodeBatch(t, `[
		{"name": "Toys", "slug": "toys"},
		{"name": "TOYS", "slug": "toys"}
	]`)

	results, summary := v.ValidateBatch(batch)

	assert.Equal(t, 2, summary.Valid)
	assert.Empty(t, results[0].Errors)
	assert.Len(t, results[0].Warnings, 2)
	assert.Contains(t, results[1].Warnings[0], "Duplicate name 'TOYS' also appears at index 0")
	assert.Contains(t, results[1].Warnings[1], "Duplicate slug 'toys' also appears at index 0")
}

func TestFieldValidator_NilRecord(t *testing.T) {
	result := NewFieldValidator().Validate(3, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, 3, result.Index)
	assert.Equal(t, []string{"Category record must be an object"}, result.Errors)
}
