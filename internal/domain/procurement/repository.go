package procurement

import (
	"context"

	"github.com/shopspring/decimal"
)

// PurchaseOrderRepository persists purchase orders
type PurchaseOrderRepository interface {
	// Create persists the purchase order and all of its lines in one
	// transaction. A natural-key collision (order id, line number or item
	// code) fails the whole operation with shared.ErrAlreadyExists.
	Create(ctx context.Context, po *PurchaseOrder) error

	// Exists reports whether a purchase order with the given id is persisted
	Exists(ctx context.Context, id string) (bool, error)
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	// Create persists the invoice and all of its lines in one transaction.
	// A missing referenced purchase order fails with
	// shared.ErrPurchaseOrderMissing, a duplicate (invoice id, item code)
	// with shared.ErrAlreadyExists.
	Create(ctx context.Context, inv *Invoice) error
}

// AggregatedInvoiceItem is the per-item-code sum of all invoice lines across
// every invoice referencing one purchase order
type AggregatedInvoiceItem struct {
	ItemCode   string
	Quantity   int64
	TotalPrice decimal.Decimal
}

// ReconciliationView exposes the reads and the single write of one
// reconciliation cycle. All methods observe the same repeatable snapshot of
// the store.
type ReconciliationView interface {
	PurchaseOrderLines(poID string) ([]PurchaseOrderLine, error)
	AggregatedInvoiceItems(poID string) ([]AggregatedInvoiceItem, error)
	InvoiceLines(poID string) ([]InvoiceLine, error)
	InvoiceIDs(poID string) ([]string, error)
	CreateReport(report *Report) error
}

// ReconciliationRepository runs a function against an isolated, repeatable
// snapshot of purchase order and invoice state
type ReconciliationRepository interface {
	Snapshot(ctx context.Context, fn func(view ReconciliationView) error) error
}
