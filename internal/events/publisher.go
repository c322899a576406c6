package events

import (
	"context"
	"errors"
	"time"

	"catalog-import-service/internal/models"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/sirupsen/logrus"
)

// Import event types
const (
	CategoryImported       = "category.imported"
	CategoryImportComplete = "category.import.completed"
)

const streamName = "CATEGORY_EVENTS"

// CategoryImportedEvent is published for every category written by an import
type CategoryImportedEvent struct {
	events.BaseEvent
	BatchID          string `json:"batchId"`
	CategoryID       string `json:"categoryId"`
	CategoryName     string `json:"categoryName"`
	Slug             string `json:"slug,omitempty"`
	Action           string `json:"action"`
	ProductsImported int    `json:"productsImported"`
	ProductsErrors   int    `json:"productsErrors"`
	ActorID          string `json:"actorId,omitempty"`
}

func (e *CategoryImportedEvent) GetSubject() string {
	return e.EventType
}

func (e *CategoryImportedEvent) GetStream() string {
	return streamName
}

// ImportCompletedEvent summarizes one executed batch
type ImportCompletedEvent struct {
	events.BaseEvent
	BatchID          string                      `json:"batchId"`
	Status           string                      `json:"status"`
	Total            int                         `json:"total"`
	Counts           map[models.ImportAction]int `json:"counts"`
	ProductsImported int                         `json:"productsImported"`
	ProductsErrors   int                         `json:"productsErrors"`
	ActorID          string                      `json:"actorId,omitempty"`
}

func (e *ImportCompletedEvent) GetSubject() string {
	return e.EventType
}

func (e *ImportCompletedEvent) GetStream() string {
	return streamName
}

// Publisher wraps the shared events publisher for import events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher creates a new import events publisher. An empty natsURL uses
// the in-cluster NATS service.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = "nats://nats.nats.svc.cluster.local:4222"
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-import-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := publisher.EnsureStream(ctx, streamName, []string{"category.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure CATEGORY_EVENTS stream")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "events.publisher"),
	}, nil
}

// PublishCategoryImported publishes one category.imported event
func (p *Publisher) PublishCategoryImported(ctx context.Context, tenantID, actorID, batchID string, result models.ImportResult) error {
	if result.ID == nil {
		return nil
	}
	event := &CategoryImportedEvent{
		BaseEvent: events.BaseEvent{
			EventType: CategoryImported,
			TenantID:  tenantID,
			SourceID:  *result.ID,
			Timestamp: time.Now().UTC(),
		},
		BatchID:          batchID,
		CategoryID:       *result.ID,
		Action:           string(result.Action),
		ProductsImported: result.ProductsImported,
		ProductsErrors:   result.ProductsErrors,
		ActorID:          actorID,
	}
	if record, ok := result.Data.(*models.CategoryRecord); ok && record != nil {
		event.CategoryName = record.Name
		event.Slug = record.Slug
	}
	return p.publisher.Publish(ctx, event)
}

// PublishImportCompleted publishes the batch summary event
func (p *Publisher) PublishImportCompleted(ctx context.Context, tenantID, actorID, batchID string, summary models.BatchSummary) error {
	event := &ImportCompletedEvent{
		BaseEvent: events.BaseEvent{
			EventType: CategoryImportComplete,
			TenantID:  tenantID,
			SourceID:  batchID,
			Timestamp: time.Now().UTC(),
		},
		BatchID:          batchID,
		Status:           string(summary.Status),
		Total:            summary.Total,
		Counts:           summary.Counts,
		ProductsImported: summary.ProductsImported,
		ProductsErrors:   summary.ProductsErrors,
		ActorID:          actorID,
	}
	return p.publisher.Publish(ctx, event)
}

// PublishImportResults publishes an event for every written category and
// one for the batch. Skipped and failed records are not announced.
func (p *Publisher) PublishImportResults(ctx context.Context, tenantID, actorID, batchID string, resp *models.ExecuteResponse) error {
	var errs []error
	for _, result := range resp.Results {
		switch result.Action {
		case models.ActionCreated, models.ActionUpdated, models.ActionReplaced:
			if err := p.PublishCategoryImported(ctx, tenantID, actorID, batchID, result); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := p.PublishImportCompleted(ctx, tenantID, actorID, batchID, resp.Summary); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		p.logger.WithFields(logrus.Fields{"batch_id": batchID, "failed": len(errs)}).Warn("Some import events were not published")
	}
	return errors.Join(errs...)
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.publisher.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	p.publisher.Close()
}
