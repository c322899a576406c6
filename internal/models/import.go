package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is an untrusted category object as submitted by the caller
type RawRecord = map[string]interface{}

// ExistingPolicy selects how categories that already exist are handled
type ExistingPolicy string

const (
	ExistingError   ExistingPolicy = "error"
	ExistingSkip    ExistingPolicy = "skip"
	ExistingReplace ExistingPolicy = "replace"
)

// ImportAction is the outcome of importing one category record
type ImportAction string

const (
	ActionCreated  ImportAction = "created"
	ActionUpdated  ImportAction = "updated"
	ActionSkipped  ImportAction = "skipped"
	ActionReplaced ImportAction = "replaced"
	ActionError    ImportAction = "error"
	ActionUnknown  ImportAction = "unknown"
)

// BatchStatus is the batch-level outcome tag
type BatchStatus string

const (
	BatchCompleted           BatchStatus = "completed"
	BatchAborted             BatchStatus = "aborted"
	BatchCompletedWithErrors BatchStatus = "completed-with-errors"
	BatchRejected            BatchStatus = "rejected"
)

var ErrInvalidOptions = errors.New("invalid import options")

// CategoryRecord is a validated and normalized category submitted for import
type CategoryRecord struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	Description *string         `json:"description,omitempty"`
	Image       *string         `json:"image,omitempty"`
	IsActive    bool            `json:"isActive"`
	SortOrder   *int            `json:"sortOrder,omitempty"`
	Products    []ProductRecord `json:"products,omitempty"`
}

// ProductRecord is a product nested under a category record.
// CategoryID is never read from input.
type ProductRecord struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Price           *decimal.Decimal       `json:"price,omitempty"`
	SKU             string                 `json:"sku,omitempty"`
	Barcode         string                 `json:"barcode,omitempty"`
	Weight          *decimal.Decimal       `json:"weight,omitempty"`
	Dimensions      map[string]interface{} `json:"dimensions,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	CostPrice       *decimal.Decimal       `json:"costPrice,omitempty"`
	ComparePrice    *decimal.Decimal       `json:"comparePrice,omitempty"`
	SalePrice       *decimal.Decimal       `json:"salePrice,omitempty"`
	SaleEndDate     *time.Time             `json:"saleEndDate,omitempty"`
	IsFeatured      bool                   `json:"isFeatured"`
	IsOnSale        bool                   `json:"isOnSale"`
	MetaTitle       string                 `json:"metaTitle,omitempty"`
	MetaDescription string                 `json:"metaDescription,omitempty"`
	Variants        []VariantRecord        `json:"variants,omitempty"`
	Images          []ImageRecord          `json:"images,omitempty"`
	// RejectedItems counts variants and images dropped during validation
	RejectedItems int `json:"-"`
}

// VariantRecord is a variant nested under a product record
type VariantRecord struct {
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	ColorCode string `json:"colorCode,omitempty"`
	Stock     int    `json:"stock"`
	SKU       string `json:"sku,omitempty"`
}

// ImageRecord is an image nested under a product record
type ImageRecord struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	Color     string `json:"color,omitempty"`
	SortOrder *int   `json:"sortOrder,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

// ValidationResult is the field validation outcome for one record.
// Valid is false exactly when Errors is non-empty.
type ValidationResult struct {
	Index    int             `json:"index"`
	Valid    bool            `json:"valid"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
	Data     *CategoryRecord `json:"data"`
}

// ValidationSummary counts valid and invalid records
type ValidationSummary struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// ImportOptions are the operator-selected execution options
type ImportOptions struct {
	SkipDuplicates     bool           `json:"skipDuplicates"`
	UpdateExisting     bool           `json:"updateExisting"`
	GenerateSlugs      *bool          `json:"generateSlugs,omitempty"`
	GenerateSortOrder  *bool          `json:"generateSortOrder,omitempty"`
	ImportProducts     *bool          `json:"importProducts,omitempty"`
	ExistingCategories ExistingPolicy `json:"existingCategories,omitempty"`
	RequireAllValid    bool           `json:"requireAllValid"`
}

// Policy returns the effective conflict policy. An omitted policy falls
// back to skip when skipDuplicates is set.
func (o ImportOptions) Policy() ExistingPolicy {
	if o.ExistingCategories != "" {
		return o.ExistingCategories
	}
	if o.SkipDuplicates {
		return ExistingSkip
	}
	return ExistingError
}

func (o ImportOptions) ShouldGenerateSlugs() bool {
	return o.GenerateSlugs == nil || *o.GenerateSlugs
}

func (o ImportOptions) ShouldGenerateSortOrder() bool {
	return o.GenerateSortOrder == nil || *o.GenerateSortOrder
}

func (o ImportOptions) ShouldImportProducts() bool {
	return o.ImportProducts == nil || *o.ImportProducts
}

// Validate checks option combinations. updateExisting is only defined for
// the skip policy.
func (o ImportOptions) Validate() error {
	switch o.Policy() {
	case ExistingError, ExistingSkip, ExistingReplace:
	default:
		return fmt.Errorf("%w: existingCategories must be one of error, skip, replace", ErrInvalidOptions)
	}
	if o.UpdateExisting && o.Policy() != ExistingSkip {
		return fmt.Errorf("%w: updateExisting is only supported with existingCategories=skip", ErrInvalidOptions)
	}
	return nil
}

// ImportResult reports the outcome for one category record.
// Success is false exactly when Action is "error".
type ImportResult struct {
	Index            int          `json:"index"`
	Success          bool         `json:"success"`
	Action           ImportAction `json:"action"`
	ID               *string      `json:"id"`
	Message          string       `json:"message"`
	Data             interface{}  `json:"data"`
	ProductsImported int          `json:"productsImported"`
	ProductsErrors   int          `json:"productsErrors"`
}

// BatchSummary folds the per-record results of one batch
type BatchSummary struct {
	Total            int                  `json:"total"`
	Counts           map[ImportAction]int `json:"counts"`
	ProductsImported int                  `json:"productsImported"`
	ProductsErrors   int                  `json:"productsErrors"`
	Status           BatchStatus          `json:"status"`
}

// Conflict names a submitted record that collides with a stored category
type Conflict struct {
	Index      int    `json:"index"`
	ExistingID string `json:"existingId"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

// ValidateRequest is the body of the validate endpoint
type ValidateRequest struct {
	Categories []RawRecord `json:"categories"`
}

// ValidateResponse is returned by the validate endpoint
type ValidateResponse struct {
	ValidationResults []ValidationResult `json:"validationResults"`
	Summary           ValidationSummary  `json:"summary"`
}

// ExecuteRequest is the body of the execute endpoint
type ExecuteRequest struct {
	Categories []RawRecord   `json:"categories"`
	Options    ImportOptions `json:"options"`
}

// ExecuteResponse is the Result Report returned by the execute endpoint
type ExecuteResponse struct {
	Success           bool               `json:"success"`
	Results           []ImportResult     `json:"results"`
	Summary           BatchSummary       `json:"summary"`
	Message           string             `json:"message"`
	Conflicts         []Conflict         `json:"conflicts,omitempty"`
	ValidationResults []ValidationResult `json:"validationResults,omitempty"`
}

// ImportTemplateField documents one field of the import payload
type ImportTemplateField struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity        string                `json:"entity"`
	Version       string                `json:"version"`
	Fields        []ImportTemplateField `json:"fields"`
	ProductFields []ImportTemplateField `json:"productFields"`
	Sample        RawRecord             `json:"sample"`
}
