package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is the buyer's commitment to specific items, quantities and
// prices. It is append-only: once created it is never updated or merged.
type PurchaseOrder struct {
	ID        string
	CreatedAt time.Time
	Lines     []PurchaseOrderLine
}

// PurchaseOrderLine is one ordered item of a purchase order
type PurchaseOrderLine struct {
	ID              uuid.UUID
	PurchaseOrderID string
	LineNumber      int
	ItemCode        string
	Description     string
	Quantity        int64
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineInput carries the raw values of one document row
type LineInput struct {
	LineNumber  int
	ItemCode    string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// NewPurchaseOrder builds a PurchaseOrder and enforces its invariants:
// line numbers form the contiguous run 1..N, item codes are distinct,
// quantities are non-negative and every total equals quantity x unit price
// to the cent.
func NewPurchaseOrder(id string, lines []LineInput) (*PurchaseOrder, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_PO_ID", "Purchase order identifier cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_PO", "Purchase order must have at least one line")
	}

	now := time.Now()
	po := &PurchaseOrder{
		ID:        id,
		CreatedAt: now,
		Lines:     make([]PurchaseOrderLine, 0, len(lines)),
	}

	seenCodes := make(map[string]struct{}, len(lines))
	for i, in := range lines {
		if in.LineNumber != i+1 {
			return nil, shared.NewDomainError("NONCONTIGUOUS_LINES",
				fmt.Sprintf("Line numbers must run 1..%d without gaps, got %d at position %d", len(lines), in.LineNumber, i+1))
		}
		if err := validateLineValues(in.ItemCode, in.Quantity, in.UnitPrice, in.TotalPrice); err != nil {
			return nil, err
		}
		if _, dup := seenCodes[in.ItemCode]; dup {
			return nil, shared.NewDomainError("DUPLICATE_ITEM_CODE",
				fmt.Sprintf("Item code %q appears more than once", in.ItemCode))
		}
		seenCodes[in.ItemCode] = struct{}{}

		po.Lines = append(po.Lines, PurchaseOrderLine{
			ID:              uuid.New(),
			PurchaseOrderID: id,
			LineNumber:      in.LineNumber,
			ItemCode:        in.ItemCode,
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			TotalPrice:      in.TotalPrice,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return po, nil
}

// validateLineValues checks the value-level invariants shared by purchase
// order and invoice lines.
func validateLineValues(itemCode string, quantity int64, unitPrice, totalPrice decimal.Decimal) error {
	if itemCode == "" {
		return shared.NewDomainError("INVALID_ITEM_CODE", "Item code cannot be empty")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if !unitPrice.Equal(unitPrice.Round(2)) || !totalPrice.Equal(totalPrice.Round(2)) {
		return shared.NewDomainError("INVALID_PRICE_SCALE", "Prices must have at most two decimal places")
	}
	if !decimal.NewFromInt(quantity).Mul(unitPrice).Equal(totalPrice) {
		return shared.NewDomainError("TOTAL_MISMATCH",
			fmt.Sprintf("Total price %s does not equal %d x %s", totalPrice, quantity, unitPrice))
	}
	return nil
}
