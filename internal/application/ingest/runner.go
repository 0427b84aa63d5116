package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/application/recon"
	"github.com/procure/reconciler/internal/domain/shared"
)

// Source supplies tabular documents and archives the ones that were ingested.
// The runner never touches files itself.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
	Consume(ctx context.Context, doc Document) error
}

// Reconciler computes the reconciliation bundle for one purchase order
type Reconciler interface {
	Reconcile(ctx context.Context, poID string) (*recon.Bundle, error)
}

// Runner drives one batch: classify every document, ingest purchase orders
// before invoices, then drain the dirty set and reconcile each touched
// purchase order exactly once. Per-document failures are logged and skipped;
// failures after ingestion has committed abort the run.
type Runner struct {
	source     Source
	service    *Service
	reconciler Reconciler
	sink       recon.Sink
	eventBus   shared.EventPublisher
	logger     *zap.Logger
}

// NewRunner creates a new batch Runner
func NewRunner(
	source Source,
	service *Service,
	reconciler Reconciler,
	sink recon.Sink,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		source:     source,
		service:    service,
		reconciler: reconciler,
		sink:       sink,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Run processes one batch end to end
func (r *Runner) Run(ctx context.Context) error {
	docs, err := r.source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var orders, invoices []Document
	for _, doc := range docs {
		switch Classify(doc) {
		case KindPurchaseOrder:
			orders = append(orders, doc)
		case KindInvoice:
			invoices = append(invoices, doc)
		default:
			r.logger.Info("skipping unsupported document", zap.String("document", doc.Name))
			r.publishUnsupported(ctx, doc.Name)
		}
	}

	dirty := NewDirtySet()
	ingested := 0
	// Purchase orders first: invoices reference them and are never retried.
	for _, doc := range orders {
		if r.ingestOne(ctx, doc, KindPurchaseOrder, dirty) {
			ingested++
		}
	}
	for _, doc := range invoices {
		if r.ingestOne(ctx, doc, KindInvoice, dirty) {
			ingested++
		}
	}
	r.logger.Info("batch ingestion finished",
		zap.Int("documents", len(docs)),
		zap.Int("ingested", ingested),
		zap.Int("dirty_purchase_orders", dirty.Len()))

	for {
		poID, ok := dirty.Dequeue()
		if !ok {
			break
		}
		bundle, err := r.reconciler.Reconcile(ctx, poID)
		if err != nil {
			return fmt.Errorf("reconciliation of %s failed: %w", poID, err)
		}
		if err := r.sink.Write(ctx, bundle); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", poID, err)
		}
	}
	return nil
}

// ingestOne persists a single document, isolating its failure from the rest
// of the batch. Returns whether the document was ingested.
func (r *Runner) ingestOne(ctx context.Context, doc Document, kind Kind, dirty *DirtySet) bool {
	poID, err := r.service.Ingest(ctx, doc, kind)
	if err != nil {
		r.logger.Warn("document skipped",
			zap.String("document", doc.Name),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false
	}
	if poID != "" {
		dirty.Enqueue(poID)
	}
	if err := r.source.Consume(ctx, doc); err != nil {
		r.logger.Warn("failed to archive document",
			zap.String("document", doc.Name),
			zap.Error(err))
	}
	return true
}

func (r *Runner) publishUnsupported(ctx context.Context, name string) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.Publish(ctx, shared.NewDocumentUnsupportedEvent(name)); err != nil {
		r.logger.Warn("failed to publish document event",
			zap.String("document", name),
			zap.Error(err))
	}
}
