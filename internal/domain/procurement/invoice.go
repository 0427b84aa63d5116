package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is a supplier's bill, optionally referencing one purchase order.
// Like purchase orders, invoices are append-only.
type Invoice struct {
	ID              string
	PurchaseOrderID *string
	CreatedAt       time.Time
	Lines           []InvoiceLine
}

// InvoiceLine is one billed item of an invoice
type InvoiceLine struct {
	ID          uuid.UUID
	InvoiceID   string
	ItemCode    string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInvoice builds an Invoice and enforces its invariants: distinct item
// codes and exact per-line totals. purchaseOrderID may be empty only when the
// caller's policy allows unlinked invoices; referential existence of the
// purchase order is the store's concern, not the constructor's.
func NewInvoice(id string, purchaseOrderID string, lines []LineInput) (*Invoice, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Invoice identifier cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_INVOICE", "Invoice must have at least one line")
	}

	now := time.Now()
	inv := &Invoice{
		ID:        id,
		CreatedAt: now,
		Lines:     make([]InvoiceLine, 0, len(lines)),
	}
	if purchaseOrderID != "" {
		inv.PurchaseOrderID = &purchaseOrderID
	}

	seenCodes := make(map[string]struct{}, len(lines))
	for _, in := range lines {
		if err := validateLineValues(in.ItemCode, in.Quantity, in.UnitPrice, in.TotalPrice); err != nil {
			return nil, err
		}
		if _, dup := seenCodes[in.ItemCode]; dup {
			return nil, shared.NewDomainError("DUPLICATE_ITEM_CODE",
				fmt.Sprintf("Item code %q appears more than once", in.ItemCode))
		}
		seenCodes[in.ItemCode] = struct{}{}

		inv.Lines = append(inv.Lines, InvoiceLine{
			ID:          uuid.New(),
			InvoiceID:   id,
			ItemCode:    in.ItemCode,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TotalPrice:  in.TotalPrice,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return inv, nil
}
