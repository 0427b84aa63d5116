package ingest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/domain/procurement"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/procure/reconciler/internal/infrastructure/telemetry"
)

// Service persists one classified document as a single atomic operation.
// Duplicate and referential failures are surfaced by the store's own
// constraints; the service maps them, it never pre-checks its way around them.
type Service struct {
	poRepo                procurement.PurchaseOrderRepository
	invoiceRepo           procurement.InvoiceRepository
	eventBus              shared.EventPublisher
	logger                *zap.Logger
	allowUnlinkedInvoices bool
}

// NewService creates a new ingestion Service
func NewService(
	poRepo procurement.PurchaseOrderRepository,
	invoiceRepo procurement.InvoiceRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
	allowUnlinkedInvoices bool,
) *Service {
	return &Service{
		poRepo:                poRepo,
		invoiceRepo:           invoiceRepo,
		eventBus:              eventBus,
		logger:                logger,
		allowUnlinkedInvoices: allowUnlinkedInvoices,
	}
}

// Ingest persists one document of the given kind. On success it returns the
// affected purchase order id, which is empty only for an unlinked invoice.
// On failure nothing is persisted and the error carries the cause.
func (s *Service) Ingest(ctx context.Context, doc Document, kind Kind) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.document",
		attribute.String("document", doc.Name),
		attribute.String("kind", string(kind)))
	defer span.End()

	s.publish(ctx, shared.NewDocumentIngestingEvent(doc.Name, string(kind)))

	var (
		poID string
		err  error
	)
	switch kind {
	case KindPurchaseOrder:
		poID, err = s.ingestPurchaseOrder(ctx, doc)
	case KindInvoice:
		poID, err = s.ingestInvoice(ctx, doc)
	default:
		err = shared.NewDomainError("UNSUPPORTED_KIND", fmt.Sprintf("Cannot ingest document of kind %q", kind))
	}

	if err != nil {
		telemetry.RecordError(span, err)
		s.publish(ctx, shared.NewDocumentIngestFailedEvent(doc.Name, string(kind), err.Error()))
		return "", err
	}
	s.publish(ctx, shared.NewDocumentIngestedEvent(doc.Name, string(kind), poID))
	return poID, nil
}

func (s *Service) ingestPurchaseOrder(ctx context.Context, doc Document) (string, error) {
	lines := make([]procurement.LineInput, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		line, err := parseLine(row, "Ordered Qty")
		if err != nil {
			return "", err
		}
		line.LineNumber = i + 1
		lines = append(lines, line)
	}

	po, err := procurement.NewPurchaseOrder(doc.Rows[0]["PO Number"], lines)
	if err != nil {
		return "", err
	}
	if err := s.poRepo.Create(ctx, po); err != nil {
		return "", err
	}
	return po.ID, nil
}

func (s *Service) ingestInvoice(ctx context.Context, doc Document) (string, error) {
	lines := make([]procurement.LineInput, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		line, err := parseLine(row, "Invoiced Qty")
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	poID := doc.Rows[0]["PO Number"]
	if poID == "" && !s.allowUnlinkedInvoices {
		return "", shared.NewDomainError("UNLINKED_INVOICE", "Invoice does not reference a purchase order")
	}
	// Friendly pre-check; the FK constraint remains the authority under races.
	if poID != "" {
		exists, err := s.poRepo.Exists(ctx, poID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fmt.Errorf("purchase order %s: %w", poID, shared.ErrPurchaseOrderMissing)
		}
	}

	inv, err := procurement.NewInvoice(doc.Rows[0]["Invoice Number"], poID, lines)
	if err != nil {
		return "", err
	}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		return "", err
	}
	return poID, nil
}

// parseLine converts one raw row into line input values. The classifier has
// already vetted the rules; a parse failure here still fails the document.
func parseLine(row Row, qtyColumn string) (procurement.LineInput, error) {
	qty, err := decimal.NewFromString(row[qtyColumn])
	if err != nil || !qty.IsInteger() {
		return procurement.LineInput{}, shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Quantity %q is not an integer", row[qtyColumn]))
	}
	unitPrice, err := decimal.NewFromString(row["Unit Price"])
	if err != nil {
		return procurement.LineInput{}, shared.NewDomainError("INVALID_PRICE",
			fmt.Sprintf("Unit price %q is not a number", row["Unit Price"]))
	}
	totalPrice, err := decimal.NewFromString(row["Total Amount"])
	if err != nil {
		return procurement.LineInput{}, shared.NewDomainError("INVALID_PRICE",
			fmt.Sprintf("Total amount %q is not a number", row["Total Amount"]))
	}
	return procurement.LineInput{
		ItemCode:    row["Item Code"],
		Description: row["Description"],
		Quantity:    qty.IntPart(),
		UnitPrice:   unitPrice,
		TotalPrice:  totalPrice,
	}, nil
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document event",
			zap.String("event_type", event.EventType()),
			zap.String("document", event.DocumentID()),
			zap.Error(err))
	}
}
