package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"catalog-import-service/internal/models"

	"github.com/sirupsen/logrus"
)

var ErrBatchInvalid = errors.New("batch contains invalid records")

// Pipeline runs validate, scan, derive, execute and summarize for one batch
type Pipeline struct {
	validator          *FieldValidator
	logger             *logrus.Entry
	productConcurrency int
}

func New(logger *logrus.Logger, productConcurrency int) *Pipeline {
	return &Pipeline{
		validator:          NewFieldValidator(),
		logger:             logger.WithField("component", "importer"),
		productConcurrency: productConcurrency,
	}
}

// Validate checks every record without touching storage
func (p *Pipeline) Validate(records []models.RawRecord) *models.ValidateResponse {
	results, summary := p.validator.ValidateBatch(records)
	return &models.ValidateResponse{ValidationResults: results, Summary: summary}
}

// Execute imports a batch. A returned error means nothing was written: the
// options were rejected, the batch failed requireAllValid (the response is
// still returned), or a pre-write lookup failed. Once writes start every
// record is reported and the error is nil.
func (p *Pipeline) Execute(ctx context.Context, gw Gateway, records []models.RawRecord, opts models.ImportOptions) (*models.ExecuteResponse, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	policy := opts.Policy()
	log := p.logger.WithFields(logrus.Fields{"records": len(records), "policy": policy})

	validation, counts := p.validator.ValidateBatch(records)
	if opts.RequireAllValid && counts.Invalid > 0 {
		log.WithField("invalid", counts.Invalid).Info("Batch rejected by validation")
		return &models.ExecuteResponse{
			Success:           false,
			Results:           []models.ImportResult{},
			Summary:           RejectedSummary(),
			Message:           fmt.Sprintf("%d of %d categories failed validation; nothing was imported", counts.Invalid, len(records)),
			ValidationResults: validation,
		}, ErrBatchInvalid
	}

	candidates := make([]Candidate, 0, counts.Valid)
	var outcomes []RecordOutcome
	for _, v := range validation {
		if v.Valid {
			candidates = append(candidates, Candidate{Index: v.Index, Record: *v.Data})
			continue
		}
		outcomes = append(outcomes, RecordOutcome{
			Index:   v.Index,
			Outcome: Failed{Reason: "Validation failed: " + strings.Join(v.Errors, "; ")},
			Data:    v.Data,
		})
	}

	decision, err := Scan(ctx, gw, candidates, policy)
	if err != nil {
		return nil, err
	}

	var proceed Proceed
	switch d := decision.(type) {
	case Abort:
		log.WithField("conflicts", len(d.Conflicts)).Info("Batch aborted by existing categories")
		return &models.ExecuteResponse{
			Success:   false,
			Results:   []models.ImportResult{},
			Summary:   AbortedSummary(len(records)),
			Message:   AbortMessage(d.Conflicts),
			Conflicts: d.Conflicts,
		}, nil
	case Proceed:
		proceed = d
	default:
		return nil, fmt.Errorf("unexpected scan decision %T", decision)
	}

	// From here on the batch runs to completion even if the caller goes away
	runCtx := context.WithoutCancel(ctx)

	plans := buildPlans(candidates, proceed.Matches, opts)
	if err := NewGenerator(gw, opts).Assign(runCtx, plans); err != nil {
		return nil, err
	}

	executor := NewExecutor(gw, log, opts.ShouldImportProducts(), p.productConcurrency)
	outcomes = append(outcomes, executor.Run(runCtx, plans)...)
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	results := make([]models.ImportResult, len(outcomes))
	succeeded := 0
	for i, o := range outcomes {
		results[i] = o.Result()
		if results[i].Success {
			succeeded++
		}
	}
	summary := Summarize(results)

	log.WithFields(logrus.Fields{
		"status":            summary.Status,
		"created":           summary.Counts[models.ActionCreated],
		"skipped":           summary.Counts[models.ActionSkipped],
		"replaced":          summary.Counts[models.ActionReplaced],
		"errors":            summary.Counts[models.ActionError],
		"products_imported": summary.ProductsImported,
		"duration_ms":       time.Since(started).Milliseconds(),
	}).Info("Batch import finished")

	return &models.ExecuteResponse{
		Success:   len(results) == 0 || succeeded > 0,
		Results:   results,
		Summary:   summary,
		Message:   completionMessage(summary, proceed),
		Conflicts: proceed.Conflicts,
	}, nil
}

func completionMessage(summary models.BatchSummary, proceed Proceed) string {
	msg := fmt.Sprintf("Processed %d categories: %d created, %d updated, %d skipped, %d replaced, %d failed; %d products imported",
		summary.Total,
		summary.Counts[models.ActionCreated],
		summary.Counts[models.ActionUpdated],
		summary.Counts[models.ActionSkipped],
		summary.Counts[models.ActionReplaced],
		summary.Counts[models.ActionError],
		summary.ProductsImported)
	if summary.ProductsErrors > 0 {
		msg += fmt.Sprintf(", %d product errors", summary.ProductsErrors)
	}
	if proceed.Status == ScanPartial {
		msg += fmt.Sprintf(" (%d existing categories matched)", len(proceed.Conflicts))
	}
	return msg
}
