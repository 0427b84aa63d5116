package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/domain/shared"
)

// AuditLogHandler writes every document lifecycle event to the log, giving an
// operator a per-document trail of the batch.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("document", event.DocumentID()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	switch e := event.(type) {
	case *shared.DocumentIngestedEvent:
		fields = append(fields, zap.String("kind", e.Kind), zap.String("purchase_order", e.PurchaseOrderID))
	case *shared.DocumentIngestFailedEvent:
		fields = append(fields, zap.String("kind", e.Kind), zap.String("reason", e.Reason))
	case *shared.DocumentIngestingEvent:
		fields = append(fields, zap.String("kind", e.Kind))
	}
	h.logger.Info(event.EventType(), fields...)
	return nil
}

// EventTypes implements shared.EventHandler
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		shared.EventDocumentUnsupported,
		shared.EventDocumentIngesting,
		shared.EventDocumentIngested,
		shared.EventDocumentIngestFailed,
	}
}
