package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/metrics"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

const batchIDHeader = "X-Import-Batch-ID"

// GatewayFactory returns a persistence gateway scoped to one tenant and caller
type GatewayFactory func(tenantID, userID string) importer.Gateway

// EventPublisher publishes the outcome of an executed batch
type EventPublisher interface {
	PublishImportResults(ctx context.Context, tenantID, actorID, batchID string, resp *models.ExecuteResponse) error
}

// CategoryCache drops cached reads of a category after it was written
type CategoryCache interface {
	InvalidateCategory(ctx context.Context, tenantID, id string)
}

type ImportHandler struct {
	pipeline      *importer.Pipeline
	gateways      GatewayFactory
	publisher     EventPublisher
	cache         CategoryCache
	maxCategories int
	logger        *logrus.Entry
}

// NewImportHandler wires the import endpoints. publisher and cache may be nil.
func NewImportHandler(pipeline *importer.Pipeline, gateways GatewayFactory, publisher EventPublisher, cache CategoryCache, maxCategories int, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		pipeline:      pipeline,
		gateways:      gateways,
		publisher:     publisher,
		cache:         cache,
		maxCategories: maxCategories,
		logger:        logger.WithField("component", "handlers.import"),
	}
}

// CategoryImportTemplate returns the template definition for category imports
func CategoryImportTemplate() models.ImportTemplate {
	return models.ImportTemplate{
		Entity:  "categories",
		Version: "2.0",
		Fields: []models.ImportTemplateField{
			{Name: "name", Description: "Category name", Required: true, Type: "string", Example: "Phone Cases"},
			{Name: "slug", Description: "URL-friendly slug (generated from name if empty)", Required: false, Type: "string", Example: "phone-cases"},
			{Name: "description", Description: "Category description", Required: false, Type: "string", Example: "Protective cases for every phone"},
			{Name: "image", Description: "Category image URL or root-relative path", Required: false, Type: "string", Example: "https://cdn.example.com/phone-cases.jpg"},
			{Name: "isActive", Description: "Whether category is active (true/false)", Required: false, Type: "boolean", Example: "true"},
			{Name: "sortOrder", Description: "Display order (next free position if empty)", Required: false, Type: "number", Example: "1"},
		},
		ProductFields: []models.ImportTemplateField{
			{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Slim Case"},
			{Name: "description", Description: "Product description", Required: true, Type: "string", Example: "Thin polycarbonate shell"},
			{Name: "price", Description: "Price, non-negative", Required: true, Type: "number", Example: "19.99"},
			{Name: "sku", Description: "Stock keeping unit (generated from name if empty)", Required: false, Type: "string", Example: "SLIM-CASE"},
			{Name: "barcode", Description: "Barcode", Required: false, Type: "string", Example: "0123456789012"},
			{Name: "weight", Description: "Weight", Required: false, Type: "number", Example: "0.05"},
			{Name: "dimensions", Description: "Dimensions object", Required: false, Type: "object", Example: `{"length":15,"width":8,"height":1}`},
			{Name: "tags", Description: "Tags, array or comma-separated", Required: false, Type: "array", Example: "case,slim"},
			{Name: "costPrice", Description: "Cost price", Required: false, Type: "number", Example: "6.50"},
			{Name: "comparePrice", Description: "Compare-at price", Required: false, Type: "number", Example: "24.99"},
			{Name: "salePrice", Description: "Sale price", Required: false, Type: "number", Example: "14.99"},
			{Name: "saleEndDate", Description: "Sale end, RFC3339 or YYYY-MM-DD", Required: false, Type: "date", Example: "2026-12-31"},
			{Name: "isFeatured", Description: "Featured flag", Required: false, Type: "boolean", Example: "false"},
			{Name: "isOnSale", Description: "On-sale flag", Required: false, Type: "boolean", Example: "true"},
			{Name: "metaTitle", Description: "SEO title", Required: false, Type: "string", Example: "Slim Phone Case"},
			{Name: "metaDescription", Description: "SEO description", Required: false, Type: "string", Example: "A thin case that fits every pocket"},
			{Name: "variants", Description: "Variants: size, color, colorCode, stock, sku", Required: false, Type: "array", Example: `[{"size":"M","color":"Black","stock":10}]`},
			{Name: "images", Description: "Images: url, alt, color, sortOrder, isPrimary", Required: false, Type: "array", Example: `[{"url":"https://cdn.example.com/slim.jpg","isPrimary":true}]`},
		},
		Sample: models.RawRecord{
			"name":        "Phone Cases",
			"slug":        "phone-cases",
			"description": "Protective cases for every phone",
			"image":       "https://cdn.example.com/phone-cases.jpg",
			"isActive":    true,
			"sortOrder":   1,
			"products": []interface{}{
				map[string]interface{}{
					"name":        "Slim Case",
					"description": "Thin polycarbonate shell",
					"price":       19.99,
					"tags":        []interface{}{"case", "slim"},
					"variants": []interface{}{
						map[string]interface{}{"size": "M", "color": "Black", "stock": 10},
					},
					"images": []interface{}{
						map[string]interface{}{"url": "https://cdn.example.com/slim.jpg", "isPrimary": true},
					},
				},
			},
		},
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/categories/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := CategoryImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

func sampleCell(sample models.RawRecord, field string) string {
	if v, ok := sample[field]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// generateCSVTemplate generates and downloads a CSV template. Files carry
// flat category rows only; nested products are JSON-only.
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=categories_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Fields))
	row := make([]string, len(template.Fields))
	for i, field := range template.Fields {
		headers[i] = field.Name
		row[i] = sampleCell(template.Sample, field.Name)
	}
	if err := writer.Write(headers); err != nil {
		h.logger.WithError(err).Warn("Failed to write CSV template")
		return
	}
	_ = writer.Write(row)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Categories"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, field := range template.Fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := field.Name
		style := headerStyle
		if field.Required {
			headerText = field.Name + " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, headerText)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)

		sample, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheetName, sample, sampleCell(template.Sample, field.Name))
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Category Import Instructions")
	f.SetCellValue("Instructions", "A2", "Spreadsheets import categories only. Use the JSON execute endpoint to import nested products.")
	f.SetCellValue("Instructions", "A3", "Column Definitions:")

	row := 4
	for _, field := range template.Fields {
		writeInstructionRow(f, row, field)
		row++
	}
	row++
	f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), "Product fields (JSON only):")
	row++
	for _, field := range template.ProductFields {
		writeInstructionRow(f, row, field)
		row++
	}

	f.SetColWidth("Instructions", "A", "A", 20)
	f.SetColWidth("Instructions", "B", "B", 50)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=categories_import_template.xlsx")

	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Warn("Failed to write XLSX template")
	}
}

func writeInstructionRow(f *excelize.File, row int, field models.ImportTemplateField) {
	required := "Optional"
	if field.Required {
		required = "Required"
	}
	f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), field.Name)
	f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), field.Description)
	f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
	f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), field.Type)
	f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), field.Example)
}

// ValidateImport checks a batch without writing anything
// POST /api/v1/categories/import/validate
func (h *ImportHandler) ValidateImport(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !h.checkBatchSize(c, len(req.Categories)) {
		return
	}

	resp := h.pipeline.Validate(req.Categories)
	metrics.ObserveValidation(resp.Summary)
	c.JSON(http.StatusOK, resp)
}

// ExecuteImport imports a batch of categories with nested products
// POST /api/v1/categories/import/execute
func (h *ImportHandler) ExecuteImport(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	var req models.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !h.checkBatchSize(c, len(req.Categories)) {
		return
	}

	h.execute(c, tenantID, req.Categories, req.Options)
}

func (h *ImportHandler) execute(c *gin.Context, tenantID string, records []models.RawRecord, opts models.ImportOptions) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	batchID := uuid.New().String()
	c.Header(batchIDHeader, batchID)

	log := h.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"batch_id":  batchID,
	})

	started := time.Now()
	resp, err := h.pipeline.Execute(ctx, h.gateways(tenantID, userID), records, opts)
	switch {
	case errors.Is(err, models.ErrInvalidOptions):
		respondError(c, http.StatusBadRequest, "INVALID_OPTIONS", err.Error())
		return
	case errors.Is(err, importer.ErrBatchInvalid):
		metrics.ObserveBatch(resp, time.Since(started))
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	case err != nil:
		log.WithError(err).Error("Import failed before any write")
		respondError(c, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to import categories")
		return
	}

	metrics.ObserveBatch(resp, time.Since(started))
	if resp.Summary.Status != models.BatchAborted {
		h.afterImport(context.WithoutCancel(ctx), log, tenantID, userID, batchID, resp)
	}

	c.JSON(statusFor(resp.Summary.Status), resp)
}

// afterImport drops cached reads of written categories and publishes events.
// Both are best-effort.
func (h *ImportHandler) afterImport(ctx context.Context, log *logrus.Entry, tenantID, userID, batchID string, resp *models.ExecuteResponse) {
	if h.cache != nil {
		for _, result := range resp.Results {
			if result.ID != nil && result.Action != models.ActionSkipped && result.Action != models.ActionError {
				h.cache.InvalidateCategory(ctx, tenantID, *result.ID)
			}
		}
	}
	if h.publisher != nil {
		if err := h.publisher.PublishImportResults(ctx, tenantID, userID, batchID, resp); err != nil {
			log.WithError(err).Warn("Failed to publish import events")
		}
	}
}

func statusFor(status models.BatchStatus) int {
	switch status {
	case models.BatchAborted:
		return http.StatusConflict
	case models.BatchRejected:
		return http.StatusUnprocessableEntity
	case models.BatchCompletedWithErrors:
		return http.StatusMultiStatus
	default:
		return http.StatusOK
	}
}

func (h *ImportHandler) checkBatchSize(c *gin.Context, n int) bool {
	if n == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_REQUEST", "At least one category is required")
		return false
	}
	if h.maxCategories > 0 && n > h.maxCategories {
		respondError(c, http.StatusBadRequest, "TOO_MANY_ITEMS", fmt.Sprintf("At most %d categories can be imported at once", h.maxCategories))
		return false
	}
	return true
}

// ImportFile imports categories from a CSV or Excel file
// POST /api/v1/categories/import/file
func (h *ImportHandler) ImportFile(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return
	}
	defer file.Close()

	filename := strings.ToLower(header.Filename)
	var rows []map[string]string
	var parseErr error
	switch {
	case strings.HasSuffix(filename, ".csv"):
		rows, parseErr = parseCSV(file)
	case strings.HasSuffix(filename, ".xlsx"):
		rows, parseErr = parseXLSX(file)
	default:
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and XLSX files are supported")
		return
	}
	if parseErr != nil {
		respondError(c, http.StatusBadRequest, "PARSE_ERROR", parseErr.Error())
		return
	}
	if len(rows) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_FILE", "The file contains no data rows")
		return
	}
	if !h.checkBatchSize(c, len(rows)) {
		return
	}

	records := make([]models.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = rowToRecord(row)
	}

	if c.DefaultPostForm("validateOnly", "false") == "true" {
		resp := h.pipeline.Validate(records)
		metrics.ObserveValidation(resp.Summary)
		c.JSON(http.StatusOK, resp)
		return
	}

	opts := models.ImportOptions{
		SkipDuplicates:     c.DefaultPostForm("skipDuplicates", "false") == "true",
		UpdateExisting:     c.DefaultPostForm("updateExisting", "false") == "true",
		RequireAllValid:    c.DefaultPostForm("requireAllValid", "false") == "true",
		ExistingCategories: models.ExistingPolicy(c.PostForm("existingCategories")),
		GenerateSlugs:      formBool(c, "generateSlugs"),
		GenerateSortOrder:  formBool(c, "generateSortOrder"),
		ImportProducts:     formBool(c, "importProducts"),
	}
	h.execute(c, tenantID, records, opts)
}

func formBool(c *gin.Context, key string) *bool {
	value, ok := c.GetPostForm(key)
	if !ok || value == "" {
		return nil
	}
	b := value == "true"
	return &b
}

// fileColumns maps lowercased spreadsheet headers to record fields
var fileColumns = map[string]string{
	"name":        "name",
	"slug":        "slug",
	"description": "description",
	"image":       "image",
	"imageurl":    "image",
	"isactive":    "isActive",
	"sortorder":   "sortOrder",
	"position":    "sortOrder",
}

// rowToRecord turns a flat spreadsheet row into a raw record. Typed cells
// that do not parse are passed through as text so validation reports them.
func rowToRecord(row map[string]string) models.RawRecord {
	record := models.RawRecord{}
	for column, value := range row {
		field, ok := fileColumns[column]
		if !ok || value == "" {
			continue
		}
		switch field {
		case "isActive":
			if b, err := strconv.ParseBool(value); err == nil {
				record[field] = b
				continue
			}
		case "sortOrder":
			if n, err := strconv.Atoi(value); err == nil {
				record[field] = n
				continue
			}
		}
		record[field] = value
	}
	return record
}

func normalizeHeaders(headers []string) {
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}
}

func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	normalizeHeaders(headers)

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

func parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Categories") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	normalizeHeaders(headers)

	var rows []map[string]string
	for _, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		empty := true
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
				if row[headers[i]] != "" {
					empty = false
				}
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
