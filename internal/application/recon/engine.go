package recon

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/domain/procurement"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/procure/reconciler/internal/infrastructure/telemetry"
)

// Engine computes the reconciliation dataset for one purchase order from
// persisted state. All reads and the single Report write happen inside one
// repeatable snapshot, so a concurrent writer can never make the detail table
// disagree with the raw projections.
type Engine struct {
	repo   procurement.ReconciliationRepository
	logger *zap.Logger
}

// NewEngine creates a new reconciliation Engine
func NewEngine(repo procurement.ReconciliationRepository, logger *zap.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// Reconcile builds the reconciliation bundle for poID and records a Report
// linking every invoice covered by the aggregation. Errors here are fatal to
// the caller's run; ingestion has already committed.
func (e *Engine) Reconcile(ctx context.Context, poID string) (*Bundle, error) {
	ctx, span := telemetry.StartSpan(ctx, "recon.reconcile",
		attribute.String("purchase_order", poID))
	defer span.End()

	var bundle *Bundle
	err := e.repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
		poLines, err := view.PurchaseOrderLines(poID)
		if err != nil {
			return err
		}
		if len(poLines) == 0 {
			return shared.ErrNotFound
		}
		aggregated, err := view.AggregatedInvoiceItems(poID)
		if err != nil {
			return err
		}
		invoiceLines, err := view.InvoiceLines(poID)
		if err != nil {
			return err
		}
		invoiceIDs, err := view.InvoiceIDs(poID)
		if err != nil {
			return err
		}

		report, err := procurement.NewReport(poID, invoiceIDs)
		if err != nil {
			return err
		}
		if err := view.CreateReport(report); err != nil {
			return err
		}

		bundle = &Bundle{
			PurchaseOrderID:     poID,
			ReportID:            report.ID,
			GeneratedAt:         report.CreatedAt,
			Detail:              buildDetail(poLines, aggregated, invoiceLines),
			InvoiceItemsNotInPO: invoiceItemsNotInPO(poLines, invoiceLines),
			POLinesNotInvoiced:  poLinesNotInvoiced(poLines, aggregated),
			RawPOLines:          poLines,
			RawInvoiceLines:     invoiceLines,
		}
		bundle.Summary = buildSummary(bundle.Detail)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.logger.Info("reconciliation computed",
		zap.String("purchase_order", poID),
		zap.Int("detail_rows", len(bundle.Detail)),
		zap.Int("mismatches", bundle.Summary.MismatchCount))
	return bundle, nil
}

// buildDetail performs the full outer join on item code. Purchase order lines
// come first in line-number order, then invoice-only items by item code.
func buildDetail(
	poLines []procurement.PurchaseOrderLine,
	aggregated []procurement.AggregatedInvoiceItem,
	invoiceLines []procurement.InvoiceLine,
) []Line {
	invoiced := make(map[string]procurement.AggregatedInvoiceItem, len(aggregated))
	for _, item := range aggregated {
		invoiced[item.ItemCode] = item
	}
	descriptions := make(map[string]string, len(invoiceLines))
	for _, l := range invoiceLines {
		if _, ok := descriptions[l.ItemCode]; !ok {
			descriptions[l.ItemCode] = l.Description
		}
	}

	detail := make([]Line, 0, len(poLines)+len(aggregated))
	matched := make(map[string]struct{}, len(poLines))
	for _, poLine := range poLines {
		row := Line{
			ItemCode:     poLine.ItemCode,
			Description:  poLine.Description,
			OrderedQty:   int64Ptr(poLine.Quantity),
			OrderedPrice: decimalPtr(poLine.TotalPrice),
		}
		if item, ok := invoiced[poLine.ItemCode]; ok {
			matched[poLine.ItemCode] = struct{}{}
			row.InvoicedQty = int64Ptr(item.Quantity)
			row.InvoicedPrice = decimalPtr(item.TotalPrice)
			row.QtyVariance = int64Ptr(item.Quantity - poLine.Quantity)
			row.PriceVariance = decimalPtr(item.TotalPrice.Sub(poLine.TotalPrice))
		}
		row.Status = classify(row.QtyVariance)
		detail = append(detail, row)
	}

	extras := make([]procurement.AggregatedInvoiceItem, 0)
	for _, item := range aggregated {
		if _, ok := matched[item.ItemCode]; !ok {
			extras = append(extras, item)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].ItemCode < extras[j].ItemCode })
	for _, item := range extras {
		row := Line{
			ItemCode:      item.ItemCode,
			Description:   descriptions[item.ItemCode],
			InvoicedQty:   int64Ptr(item.Quantity),
			InvoicedPrice: decimalPtr(item.TotalPrice),
		}
		row.Status = classify(row.QtyVariance)
		detail = append(detail, row)
	}
	return detail
}

func classify(qtyVariance *int64) Status {
	switch {
	case qtyVariance == nil:
		return StatusItemNotInPO
	case *qtyVariance < 0:
		return StatusUnderInvoiced
	case *qtyVariance > 0:
		return StatusOverInvoiced
	default:
		return StatusFullyMatched
	}
}

func buildSummary(detail []Line) Summary {
	s := Summary{
		TotalOrderedPrice:  decimal.Zero,
		TotalInvoicedPrice: decimal.Zero,
	}
	for _, row := range detail {
		if row.OrderedPrice != nil {
			s.TotalOrderedPrice = s.TotalOrderedPrice.Add(*row.OrderedPrice)
		}
		if row.InvoicedPrice != nil {
			s.TotalInvoicedPrice = s.TotalInvoicedPrice.Add(*row.InvoicedPrice)
		}
		if row.OrderedQty == nil || row.InvoicedQty == nil || *row.OrderedQty != *row.InvoicedQty {
			s.MismatchCount++
		}
	}
	s.TotalPriceVariance = s.TotalInvoicedPrice.Sub(s.TotalOrderedPrice)
	return s
}

// invoiceItemsNotInPO is the anti-join of raw invoice lines against the
// purchase order's item codes.
func invoiceItemsNotInPO(
	poLines []procurement.PurchaseOrderLine,
	invoiceLines []procurement.InvoiceLine,
) []procurement.InvoiceLine {
	ordered := make(map[string]struct{}, len(poLines))
	for _, l := range poLines {
		ordered[l.ItemCode] = struct{}{}
	}
	extras := make([]procurement.InvoiceLine, 0)
	for _, l := range invoiceLines {
		if _, ok := ordered[l.ItemCode]; !ok {
			extras = append(extras, l)
		}
	}
	return extras
}

// poLinesNotInvoiced is the anti-join of purchase order lines against every
// invoiced item code.
func poLinesNotInvoiced(
	poLines []procurement.PurchaseOrderLine,
	aggregated []procurement.AggregatedInvoiceItem,
) []procurement.PurchaseOrderLine {
	invoiced := make(map[string]struct{}, len(aggregated))
	for _, item := range aggregated {
		invoiced[item.ItemCode] = struct{}{}
	}
	missing := make([]procurement.PurchaseOrderLine, 0)
	for _, l := range poLines {
		if _, ok := invoiced[l.ItemCode]; !ok {
			missing = append(missing, l)
		}
	}
	return missing
}

func int64Ptr(v int64) *int64 { return &v }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
