package recon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procure/reconciler/internal/domain/procurement"
)

// Status classifies one reconciliation row, driven solely by the quantity
// variance. A row with an absent side has no variance and is "Item not in PO".
type Status string

const (
	StatusItemNotInPO   Status = "Item not in PO"
	StatusUnderInvoiced Status = "Under-Invoiced"
	StatusOverInvoiced  Status = "Over-Invoiced"
	StatusFullyMatched  Status = "Fully Matched"
)

// Line is one row of the reconciliation table: a full outer join of the
// purchase order's lines with the aggregated invoice view on item code. Nil
// pointers mark the absent side.
type Line struct {
	ItemCode      string
	Description   string
	OrderedQty    *int64
	OrderedPrice  *decimal.Decimal
	InvoicedQty   *int64
	InvoicedPrice *decimal.Decimal
	QtyVariance   *int64
	PriceVariance *decimal.Decimal
	Status        Status
}

// Summary aggregates one reconciliation run. MismatchCount counts rows whose
// ordered and invoiced quantities differ, an absent side counting as a
// mismatch.
type Summary struct {
	TotalOrderedPrice  decimal.Decimal
	TotalInvoicedPrice decimal.Decimal
	TotalPriceVariance decimal.Decimal
	MismatchCount      int
}

// Bundle carries the six artifacts of one reconciliation snapshot for one
// purchase order.
type Bundle struct {
	PurchaseOrderID string
	ReportID        uuid.UUID
	GeneratedAt     time.Time

	Summary             Summary
	Detail              []Line
	InvoiceItemsNotInPO []procurement.InvoiceLine
	POLinesNotInvoiced  []procurement.PurchaseOrderLine
	RawPOLines          []procurement.PurchaseOrderLine
	RawInvoiceLines     []procurement.InvoiceLine
}

// Sink renders a reconciliation bundle. Rendering format and null display are
// the sink's concern.
type Sink interface {
	Write(ctx context.Context, bundle *Bundle) error
}
