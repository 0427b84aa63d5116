package procurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procure/reconciler/internal/domain/shared"
)

func invLine(code string, qty int64, unit, total string) LineInput {
	l := poLine(0, code, qty, unit, total)
	return l
}

func TestNewInvoice(t *testing.T) {
	t.Run("linked invoice", func(t *testing.T) {
		inv, err := NewInvoice("INV-2001", "PO-1001", []LineInput{
			invLine("ITEM-A", 8, "2.50", "20.00"),
		})
		require.NoError(t, err)
		require.NotNil(t, inv.PurchaseOrderID)
		assert.Equal(t, "PO-1001", *inv.PurchaseOrderID)
		require.Len(t, inv.Lines, 1)
		assert.Equal(t, "INV-2001", inv.Lines[0].InvoiceID)
	})

	t.Run("unlinked invoice keeps nil reference", func(t *testing.T) {
		inv, err := NewInvoice("INV-2002", "", []LineInput{
			invLine("ITEM-A", 1, "1.00", "1.00"),
		})
		require.NoError(t, err)
		assert.Nil(t, inv.PurchaseOrderID)
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, err := NewInvoice("", "PO-1001", []LineInput{
			invLine("ITEM-A", 1, "1.00", "1.00"),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INVOICE_ID", domainErr.Code)
	})

	t.Run("no lines", func(t *testing.T) {
		_, err := NewInvoice("INV-2001", "PO-1001", nil)
		require.Error(t, err)
	})

	t.Run("duplicate item code", func(t *testing.T) {
		_, err := NewInvoice("INV-2001", "PO-1001", []LineInput{
			invLine("ITEM-A", 1, "1.00", "1.00"),
			invLine("ITEM-A", 2, "1.00", "2.00"),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_ITEM_CODE", domainErr.Code)
	})

	t.Run("line value invariants are shared with purchase orders", func(t *testing.T) {
		_, err := NewInvoice("INV-2001", "PO-1001", []LineInput{
			invLine("ITEM-A", 2, "3.00", "6.50"),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOTAL_MISMATCH", domainErr.Code)
	})
}

func TestNewReport(t *testing.T) {
	t.Run("valid report", func(t *testing.T) {
		rep, err := NewReport("PO-1001", []string{"INV-2001", "INV-2002"})
		require.NoError(t, err)
		assert.Equal(t, "PO-1001", rep.PurchaseOrderID)
		assert.Len(t, rep.InvoiceIDs, 2)
		assert.NotZero(t, rep.ID)
	})

	t.Run("empty purchase order identifier", func(t *testing.T) {
		_, err := NewReport("", nil)
		require.Error(t, err)
	})

	t.Run("report with no invoices", func(t *testing.T) {
		rep, err := NewReport("PO-1001", nil)
		require.NoError(t, err)
		assert.Empty(t, rep.InvoiceIDs)
	})
}
