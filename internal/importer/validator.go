package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"catalog-import-service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field length limits
const (
	maxNameLength               = 100
	maxSlugLength               = 100
	maxDescriptionLength        = 500
	maxProductNameLength        = 200
	maxProductDescriptionLength = 5000
	maxSKULength                = 100
	maxBarcodeLength            = 100
	maxMetaTitleLength          = 200
	maxMetaDescriptionLength    = 500
	maxVariantFieldLength       = 50
	maxImageAltLength           = 200
)

// FieldValidator checks raw category records without touching storage
type FieldValidator struct {
	validate *validator.Validate
}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{validate: validator.New()}
}

// ValidateBatch validates every record of a batch in order
func (v *FieldValidator) ValidateBatch(records []models.RawRecord) ([]models.ValidationResult, models.ValidationSummary) {
	results := make([]models.ValidationResult, len(records))
	var summary models.ValidationSummary
	for i, raw := range records {
		results[i] = v.Validate(i, raw, records)
		if results[i].Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}
	return results, summary
}

// Validate checks one record. batch is only consulted to warn about
// duplicate names and slugs within the same submission.
func (v *FieldValidator) Validate(index int, raw models.RawRecord, batch []models.RawRecord) models.ValidationResult {
	c := &collector{}
	record := &models.CategoryRecord{IsActive: true}

	if raw == nil {
		c.fail("Category record must be an object")
		return c.result(index, record)
	}

	if name, ok := c.str(raw, "name", "Name", maxNameLength); ok {
		record.Name = strings.TrimSpace(name)
	}
	if record.Name == "" && c.lastFieldOK {
		c.fail("Name is required")
	}

	if slug, ok := c.str(raw, "slug", "Slug", maxSlugLength); ok {
		slug = strings.TrimSpace(slug)
		if slug != "" && !isValidSlug(slug) {
			normalized := Slugify(slug)
			if normalized == "" {
				c.warn(fmt.Sprintf("Slug '%s' has no usable characters and will be generated from the name", slug))
			} else {
				c.warn(fmt.Sprintf("Slug '%s' may only contain lowercase letters, numbers and hyphens; normalized to '%s'", slug, normalized))
			}
			slug = normalized
		}
		record.Slug = slug
	}

	if desc, ok := c.str(raw, "description", "Description", maxDescriptionLength); ok && desc != "" {
		record.Description = &desc
	}

	if image, ok := c.str(raw, "image", "Image", 0); ok && image != "" {
		if !strings.HasPrefix(image, "/") && v.validate.Var(image, "url") != nil {
			c.fail("Image must be a valid URL or a root-relative path")
		} else {
			record.Image = &image
		}
	}

	if active, ok := c.boolean(raw, "isActive", "isActive"); ok {
		record.IsActive = active
	}

	if order, ok := c.integer(raw, "sortOrder", "sortOrder"); ok {
		record.SortOrder = &order
	}

	if value, present := raw["products"]; present && value != nil {
		items, isArray := value.([]interface{})
		if !isArray {
			c.fail("products must be an array")
		} else {
			record.Products = make([]models.ProductRecord, 0, len(items))
			for i, item := range items {
				record.Products = append(record.Products, v.validateProduct(c, fmt.Sprintf("products[%d]", i), item))
			}
		}
	}

	v.warnBatchDuplicates(c, index, record, batch)

	return c.result(index, record)
}

func (v *FieldValidator) validateProduct(c *collector, path string, item interface{}) models.ProductRecord {
	var product models.ProductRecord
	raw, ok := item.(map[string]interface{})
	if !ok {
		c.warn(fmt.Sprintf("%s is not an object and will not be imported", path))
		return product
	}
	c = c.scoped(path)

	if name, ok := c.str(raw, "name", "name", maxProductNameLength); ok {
		product.Name = strings.TrimSpace(name)
	}
	if product.Name == "" && c.lastFieldOK {
		c.warn("name is required; product will not be imported")
	}
	if desc, ok := c.str(raw, "description", "description", maxProductDescriptionLength); ok {
		product.Description = strings.TrimSpace(desc)
	}
	if product.Description == "" && c.lastFieldOK {
		c.warn("description is required; product will not be imported")
	}

	if _, present := raw["price"]; !present || raw["price"] == nil {
		c.fail("price is required")
	} else if price, ok := c.amount(raw, "price", "price"); ok {
		product.Price = &price
	}

	if sku, ok := c.str(raw, "sku", "sku", maxSKULength); ok {
		product.SKU = strings.TrimSpace(sku)
	}
	if barcode, ok := c.str(raw, "barcode", "barcode", maxBarcodeLength); ok {
		product.Barcode = barcode
	}
	if weight, ok := c.amount(raw, "weight", "weight"); ok {
		product.Weight = &weight
	}
	if amount, ok := c.amount(raw, "costPrice", "costPrice"); ok {
		product.CostPrice = &amount
	}
	if amount, ok := c.amount(raw, "comparePrice", "comparePrice"); ok {
		product.ComparePrice = &amount
	}
	if amount, ok := c.amount(raw, "salePrice", "salePrice"); ok {
		product.SalePrice = &amount
	}
	if value, present := raw["dimensions"]; present && value != nil {
		if dims, ok := value.(map[string]interface{}); ok {
			product.Dimensions = dims
		} else {
			c.fail("dimensions must be an object")
		}
	}
	if value, present := raw["tags"]; present && value != nil {
		product.Tags = c.tags(value)
	}
	if value, present := raw["saleEndDate"]; present && value != nil {
		if end, ok := parseDate(value); ok {
			product.SaleEndDate = &end
		} else {
			c.fail("saleEndDate must be an RFC3339 timestamp or YYYY-MM-DD date")
		}
	}
	if featured, ok := c.boolean(raw, "isFeatured", "isFeatured"); ok {
		product.IsFeatured = featured
	}
	if onSale, ok := c.boolean(raw, "isOnSale", "isOnSale"); ok {
		product.IsOnSale = onSale
	}
	if title, ok := c.str(raw, "metaTitle", "metaTitle", maxMetaTitleLength); ok {
		product.MetaTitle = title
	}
	if desc, ok := c.str(raw, "metaDescription", "metaDescription", maxMetaDescriptionLength); ok {
		product.MetaDescription = desc
	}
	if _, present := raw["categoryId"]; present {
		c.warn("categoryId is ignored; products are linked to the imported category")
	}

	if value, present := raw["variants"]; present && value != nil {
		items, isArray := value.([]interface{})
		if !isArray {
			c.warn("variants must be an array; variants will not be imported")
			product.RejectedItems++
		} else {
			for i, item := range items {
				if variant, ok := c.variant(fmt.Sprintf("variants[%d]", i), item); ok {
					product.Variants = append(product.Variants, variant)
				} else {
					product.RejectedItems++
				}
			}
		}
	}
	if value, present := raw["images"]; present && value != nil {
		items, isArray := value.([]interface{})
		if !isArray {
			c.warn("images must be an array; images will not be imported")
			product.RejectedItems++
		} else {
			for i, item := range items {
				if image, ok := c.image(fmt.Sprintf("images[%d]", i), item); ok {
					product.Images = append(product.Images, image)
				} else {
					product.RejectedItems++
				}
			}
		}
	}
	return product
}

// variant reads one product variant. Problems are warnings: a bad variant is
// dropped and its product is still imported.
func (c *collector) variant(path string, item interface{}) (models.VariantRecord, bool) {
	var variant models.VariantRecord
	raw, ok := item.(map[string]interface{})
	if !ok {
		c.warn(path + " is not an object and will not be imported")
		return variant, false
	}
	c = c.lenientScope(path)
	if s, ok := c.str(raw, "size", "size", maxVariantFieldLength); ok {
		variant.Size = s
	}
	if s, ok := c.str(raw, "color", "color", maxVariantFieldLength); ok {
		variant.Color = s
	}
	if s, ok := c.str(raw, "colorCode", "colorCode", maxVariantFieldLength); ok {
		variant.ColorCode = s
	}
	if s, ok := c.str(raw, "sku", "sku", maxSKULength); ok {
		variant.SKU = strings.TrimSpace(s)
	}
	if stock, ok := c.integer(raw, "stock", "stock"); ok {
		if stock < 0 {
			c.fail("stock must be a non-negative integer")
		} else {
			variant.Stock = stock
		}
	}
	return variant, !c.rejected
}

func (c *collector) image(path string, item interface{}) (models.ImageRecord, bool) {
	var image models.ImageRecord
	raw, ok := item.(map[string]interface{})
	if !ok {
		c.warn(path + " is not an object and will not be imported")
		return image, false
	}
	c = c.lenientScope(path)
	if url, ok := c.str(raw, "url", "url", 0); ok {
		image.URL = strings.TrimSpace(url)
	}
	if image.URL == "" && c.lastFieldOK {
		c.fail("url is required")
	}
	if s, ok := c.str(raw, "alt", "alt", maxImageAltLength); ok {
		image.Alt = s
	}
	if s, ok := c.str(raw, "color", "color", maxVariantFieldLength); ok {
		image.Color = s
	}
	if order, ok := c.integer(raw, "sortOrder", "sortOrder"); ok {
		image.SortOrder = &order
	}
	if primary, ok := c.boolean(raw, "isPrimary", "isPrimary"); ok {
		image.IsPrimary = primary
	}
	return image, !c.rejected
}

func (v *FieldValidator) warnBatchDuplicates(c *collector, index int, record *models.CategoryRecord, batch []models.RawRecord) {
	if record.Name == "" && record.Slug == "" {
		return
	}
	for j, other := range batch {
		if j == index || other == nil {
			continue
		}
		if name, ok := other["name"].(string); ok && record.Name != "" &&
			strings.EqualFold(strings.TrimSpace(name), record.Name) {
			c.warn(fmt.Sprintf("Duplicate name '%s' also appears at index %d", record.Name, j))
		}
		if slug, ok := other["slug"].(string); ok && record.Slug != "" {
			slug = strings.TrimSpace(slug)
			if !isValidSlug(slug) {
				slug = Slugify(slug)
			}
			if slug == record.Slug {
				c.warn(fmt.Sprintf("Duplicate slug '%s' also appears at index %d", record.Slug, j))
			}
		}
	}
}

// collector accumulates errors and warnings in field order
type collector struct {
	prefix   string
	errors   *[]string
	warnings *[]string
	// lastFieldOK is false when the last field read was present with a wrong type
	lastFieldOK bool
	// lenient collectors report failures as warnings and set rejected
	lenient  bool
	rejected bool
}

func (c *collector) init() {
	if c.errors == nil {
		c.errors = &[]string{}
		c.warnings = &[]string{}
	}
}

func (c *collector) scoped(path string) *collector {
	c.init()
	return &collector{prefix: c.prefix + path + ": ", errors: c.errors, warnings: c.warnings}
}

// lenientScope is scoped for nested items that are dropped instead of
// failing the record
func (c *collector) lenientScope(path string) *collector {
	nested := c.scoped(path)
	nested.lenient = true
	return nested
}

func (c *collector) fail(msg string) {
	c.init()
	if c.lenient {
		c.rejected = true
		*c.warnings = append(*c.warnings, c.prefix+msg+"; it will not be imported")
		return
	}
	*c.errors = append(*c.errors, c.prefix+msg)
}

func (c *collector) warn(msg string) {
	c.init()
	*c.warnings = append(*c.warnings, c.prefix+msg)
}

func (c *collector) result(index int, record *models.CategoryRecord) models.ValidationResult {
	c.init()
	return models.ValidationResult{
		Index:    index,
		Valid:    len(*c.errors) == 0,
		Errors:   *c.errors,
		Warnings: *c.warnings,
		Data:     record,
	}
}

// str reads an optional string field. ok is false when the field is absent,
// null or invalid; invalid values are reported.
func (c *collector) str(raw map[string]interface{}, key, label string, maxLen int) (string, bool) {
	c.lastFieldOK = true
	value, present := raw[key]
	if !present || value == nil {
		return "", false
	}
	s, isString := value.(string)
	if !isString {
		c.lastFieldOK = false
		c.fail(fmt.Sprintf("%s must be a string", label))
		return "", false
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		c.lastFieldOK = false
		c.fail(fmt.Sprintf("%s must be at most %d characters", label, maxLen))
		return "", false
	}
	return s, true
}

func (c *collector) boolean(raw map[string]interface{}, key, label string) (bool, bool) {
	value, present := raw[key]
	if !present || value == nil {
		return false, false
	}
	b, isBool := value.(bool)
	if !isBool {
		c.fail(fmt.Sprintf("%s must be a boolean", label))
		return false, false
	}
	return b, true
}

func (c *collector) integer(raw map[string]interface{}, key, label string) (int, bool) {
	value, present := raw[key]
	if !present || value == nil {
		return 0, false
	}
	n, ok := toInt(value)
	if !ok {
		c.fail(fmt.Sprintf("%s must be an integer", label))
		return 0, false
	}
	return n, true
}

// amount reads an optional non-negative number. Numeric strings are accepted.
func (c *collector) amount(raw map[string]interface{}, key, label string) (decimal.Decimal, bool) {
	value, present := raw[key]
	if !present || value == nil {
		return decimal.Zero, false
	}
	d, ok := toDecimal(value)
	if !ok || d.IsNegative() {
		c.fail(fmt.Sprintf("%s must be a non-negative number", label))
		return decimal.Zero, false
	}
	return d, true
}

func (c *collector) tags(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		c.fail("tags must be an array of strings")
		return nil
	}
	seen := make(map[string]bool, len(items))
	tags := make([]string, 0, len(items))
	for _, item := range items {
		tag, ok := item.(string)
		if !ok {
			c.fail("tags must be an array of strings")
			return nil
		}
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func toInt(value interface{}) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func toDecimal(value interface{}) (decimal.Decimal, bool) {
	switch n := value.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}

func parseDate(value interface{}) (time.Time, bool) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
