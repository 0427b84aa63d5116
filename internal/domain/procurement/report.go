package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/procure/reconciler/internal/domain/shared"
)

// Report records that a reconciliation snapshot was generated for one
// purchase order, and which invoices were covered by the aggregation at that
// moment.
type Report struct {
	ID              uuid.UUID
	PurchaseOrderID string
	CreatedAt       time.Time
	InvoiceIDs      []string
}

// NewReport creates a Report covering the given invoices
func NewReport(purchaseOrderID string, invoiceIDs []string) (*Report, error) {
	if purchaseOrderID == "" {
		return nil, shared.NewDomainError("INVALID_PO_ID", "Purchase order identifier cannot be empty")
	}
	return &Report{
		ID:              uuid.New(),
		PurchaseOrderID: purchaseOrderID,
		CreatedAt:       time.Now(),
		InvoiceIDs:      invoiceIDs,
	}, nil
}
