package importer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"catalog-import-service/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome is what happened to one category record. Exactly one of Created,
// Updated, Skipped, Replaced or Failed.
type Outcome interface {
	isOutcome()
}

type Created struct{ ID string }

type Updated struct{ ID string }

type Skipped struct{ ID string }

type Replaced struct {
	ID         string
	PreviousID string
}

type Failed struct{ Reason string }

func (Created) isOutcome()  {}
func (Updated) isOutcome()  {}
func (Skipped) isOutcome()  {}
func (Replaced) isOutcome() {}
func (Failed) isOutcome()   {}

// ProductTally counts nested entities for one category
type ProductTally struct {
	Imported int
	Errors   int
}

// RecordOutcome pairs an outcome with the batch position and data it belongs to
type RecordOutcome struct {
	Index    int
	Outcome  Outcome
	Products ProductTally
	Data     *models.CategoryRecord
}

// Result renders the outcome as a report entry
func (r RecordOutcome) Result() models.ImportResult {
	result := models.ImportResult{
		Index:            r.Index,
		Success:          true,
		Data:             r.Data,
		ProductsImported: r.Products.Imported,
		ProductsErrors:   r.Products.Errors,
	}
	id := func(s string) *string { return &s }

	switch o := r.Outcome.(type) {
	case Created:
		result.Action = models.ActionCreated
		result.ID = id(o.ID)
		result.Message = "Category created"
	case Updated:
		result.Action = models.ActionUpdated
		result.ID = id(o.ID)
		result.Message = "Existing category updated"
	case Skipped:
		result.Action = models.ActionSkipped
		result.ID = id(o.ID)
		result.Message = "Category already exists, skipped"
	case Replaced:
		result.Action = models.ActionReplaced
		result.ID = id(o.ID)
		result.Message = fmt.Sprintf("Existing category %s replaced", o.PreviousID)
	case Failed:
		result.Action = models.ActionError
		result.Success = false
		result.Message = o.Reason
	default:
		result.Action = models.ActionUnknown
		result.Message = "No outcome recorded"
	}
	if result.Success && (r.Products.Imported > 0 || r.Products.Errors > 0) {
		result.Message = fmt.Sprintf("%s; %d product(s) imported, %d error(s)", result.Message, r.Products.Imported, r.Products.Errors)
	}
	return result
}

var (
	errProductName        = errors.New("product name is required")
	errProductDescription = errors.New("product description is required")
	errProductPrice       = errors.New("product price is required and must be non-negative")
)

// productReady checks the fields a product must have to be written
func productReady(product models.ProductRecord) error {
	switch {
	case product.Name == "":
		return errProductName
	case product.Description == "":
		return errProductDescription
	case product.Price == nil || product.Price.IsNegative():
		return errProductPrice
	}
	return nil
}

// Executor applies prepared plans through the gateway, one category at a time
type Executor struct {
	gw                 Gateway
	logger             *logrus.Entry
	importProducts     bool
	productConcurrency int
}

func NewExecutor(gw Gateway, logger *logrus.Entry, importProducts bool, productConcurrency int) *Executor {
	if productConcurrency < 1 {
		productConcurrency = 1
	}
	return &Executor{
		gw:                 gw,
		logger:             logger,
		importProducts:     importProducts,
		productConcurrency: productConcurrency,
	}
}

// Run processes plans in order. It never stops early; every plan yields an
// outcome.
func (e *Executor) Run(ctx context.Context, plans []plan) []RecordOutcome {
	outcomes := make([]RecordOutcome, 0, len(plans))
	for i := range plans {
		outcomes = append(outcomes, e.runOne(ctx, &plans[i]))
	}
	return outcomes
}

func (e *Executor) runOne(ctx context.Context, p *plan) (out RecordOutcome) {
	record := p.Record
	out = RecordOutcome{Index: p.Index, Data: &record}
	log := e.logger.WithFields(logrus.Fields{"index": p.Index, "plan": p.Kind.String()})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Category import panicked")
			out.Outcome = Failed{Reason: fmt.Sprintf("Unexpected error: %v", r)}
		}
	}()

	if p.Err != nil {
		out.Outcome = Failed{Reason: p.Err.Error()}
		return out
	}

	var categoryID string
	switch p.Kind {
	case planCreate:
		id, err := e.gw.CreateCategory(ctx, record)
		if err != nil {
			log.WithError(err).Warn("Failed to create category")
			out.Outcome = Failed{Reason: fmt.Sprintf("Failed to create category: %v", err)}
			return out
		}
		categoryID = id
		out.Outcome = Created{ID: id}
	case planSkip:
		categoryID = p.Existing.ID
		out.Outcome = Skipped{ID: categoryID}
	case planUpdate:
		if err := e.gw.UpdateCategory(ctx, p.Existing.ID, record); err != nil {
			log.WithError(err).Warn("Failed to update category")
			out.Outcome = Failed{Reason: fmt.Sprintf("Failed to update category: %v", err)}
			return out
		}
		categoryID = p.Existing.ID
		out.Outcome = Updated{ID: categoryID}
	case planReplace:
		if err := e.gw.DeleteCategoryCascade(ctx, p.Existing.ID); err != nil {
			log.WithError(err).Warn("Failed to delete category for replacement")
			out.Outcome = Failed{Reason: fmt.Sprintf("Failed to delete existing category %s: %v", p.Existing.ID, err)}
			return out
		}
		id, err := e.gw.CreateCategory(ctx, record)
		if err != nil {
			log.WithError(err).Error("Existing category deleted but replacement failed")
			out.Outcome = Failed{Reason: fmt.Sprintf("Existing category %s was deleted but the replacement could not be created: %v", p.Existing.ID, err)}
			return out
		}
		categoryID = id
		out.Outcome = Replaced{ID: id, PreviousID: p.Existing.ID}
	default:
		out.Outcome = Failed{Reason: fmt.Sprintf("unsupported plan %s", p.Kind)}
		return out
	}

	if e.importProducts && len(record.Products) > 0 {
		out.Products = e.importCategoryProducts(ctx, categoryID, record.Products, log)
	}
	return out
}

// importCategoryProducts writes products concurrently. A product failure is
// counted and never affects its siblings or the parent category.
func (e *Executor) importCategoryProducts(ctx context.Context, categoryID string, products []models.ProductRecord, log *logrus.Entry) ProductTally {
	var imported, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.productConcurrency)
	for i, product := range products {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{"product": i, "panic": r}).Error("Product import panicked")
					failed.Add(1)
				}
			}()

			if err := productReady(product); err != nil {
				log.WithField("product", i).Debug(err.Error())
				failed.Add(1)
				return nil
			}
			productID, err := e.gw.CreateProduct(ctx, categoryID, product)
			if err != nil {
				log.WithError(err).WithField("product", i).Warn("Failed to create product")
				failed.Add(1)
				return nil
			}
			imported.Add(1)
			failed.Add(int64(product.RejectedItems))

			for _, variant := range product.Variants {
				if _, err := e.gw.CreateVariant(ctx, productID, variant); err != nil {
					log.WithError(err).WithField("product", i).Warn("Failed to create variant")
					failed.Add(1)
				}
			}
			for _, image := range product.Images {
				if _, err := e.gw.CreateImage(ctx, productID, image); err != nil {
					log.WithError(err).WithField("product", i).Warn("Failed to create image")
					failed.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return ProductTally{Imported: int(imported.Load()), Errors: int(failed.Load())}
}
