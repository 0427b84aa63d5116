package ingest

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Classify matches a document against the known purchase order and invoice
// layouts and their business rules. It is a pure function over the document:
// no side effects, no store access. A document failing any rule of the layout
// it matched is Unsupported as a whole, there is no partial acceptance.
func Classify(doc Document) Kind {
	switch {
	case columnsEqual(doc.Columns, purchaseOrderColumns):
		if validPurchaseOrderRows(doc.Rows) {
			return KindPurchaseOrder
		}
	case columnsEqual(doc.Columns, invoiceColumns):
		if validInvoiceRows(doc.Rows) {
			return KindInvoice
		}
	}
	return KindUnsupported
}

func columnsEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func validPurchaseOrderRows(rows []Row) bool {
	if len(rows) == 0 {
		return false
	}
	if !constantColumn(rows, "PO Number") {
		return false
	}
	if !contiguousLineNumbers(rows, "PO Line") {
		return false
	}
	if !distinctItemCodes(rows) {
		return false
	}
	return validLineValues(rows, "Ordered Qty")
}

func validInvoiceRows(rows []Row) bool {
	if len(rows) == 0 {
		return false
	}
	if !constantColumn(rows, "Invoice Number") {
		return false
	}
	// An empty but constant PO Number is left to the unlinked-invoice policy
	if !uniformColumn(rows, "PO Number") {
		return false
	}
	if !distinctItemCodes(rows) {
		return false
	}
	return validLineValues(rows, "Invoiced Qty")
}

// constantColumn reports whether every row carries the same non-empty value.
// The identifying columns of a document name exactly one business record.
func constantColumn(rows []Row, column string) bool {
	if rows[0][column] == "" {
		return false
	}
	return uniformColumn(rows, column)
}

func uniformColumn(rows []Row, column string) bool {
	first := rows[0][column]
	for _, row := range rows[1:] {
		if row[column] != first {
			return false
		}
	}
	return true
}

// contiguousLineNumbers requires the column to be exactly 1,2,...,N in order
func contiguousLineNumbers(rows []Row, column string) bool {
	for i, row := range rows {
		n, err := strconv.Atoi(row[column])
		if err != nil || n != i+1 {
			return false
		}
	}
	return true
}

func distinctItemCodes(rows []Row) bool {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		code := row["Item Code"]
		if code == "" {
			return false
		}
		if _, dup := seen[code]; dup {
			return false
		}
		seen[code] = struct{}{}
	}
	return true
}

// validLineValues checks the per-row value rules: integral non-negative
// quantity, prices with at most two decimals, and quantity x unit price equal
// to the total to the cent.
func validLineValues(rows []Row, qtyColumn string) bool {
	for _, row := range rows {
		qty, err := decimal.NewFromString(row[qtyColumn])
		if err != nil || !qty.IsInteger() || qty.IsNegative() {
			return false
		}
		unitPrice, err := decimal.NewFromString(row["Unit Price"])
		if err != nil || !unitPrice.Equal(unitPrice.Round(2)) {
			return false
		}
		totalPrice, err := decimal.NewFromString(row["Total Amount"])
		if err != nil || !totalPrice.Equal(totalPrice.Round(2)) {
			return false
		}
		if !qty.Mul(unitPrice).Equal(totalPrice) {
			return false
		}
	}
	return true
}
