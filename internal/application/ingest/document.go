package ingest

// Kind is the classification outcome for one tabular document. Unsupported is
// a normal outcome, not an error.
type Kind string

const (
	KindPurchaseOrder Kind = "purchase_order"
	KindInvoice       Kind = "invoice"
	KindUnsupported   Kind = "unsupported"
)

// Row maps a column name to the raw cell value of one document row
type Row map[string]string

// Document is one unit of work from a tabular document source. Columns keeps
// the source's column order; the classifier compares it position by position.
type Document struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Column layouts a document must match exactly, in order, to be classified
var (
	purchaseOrderColumns = []string{
		"PO Number", "PO Line", "Item Code", "Description",
		"Ordered Qty", "Unit Price", "Total Amount",
	}
	invoiceColumns = []string{
		"Invoice Number", "PO Number", "Item Code", "Description",
		"Invoiced Qty", "Unit Price", "Total Amount",
	}
)

// PurchaseOrderColumns returns the column layout of a purchase order document
func PurchaseOrderColumns() []string {
	cols := make([]string, len(purchaseOrderColumns))
	copy(cols, purchaseOrderColumns)
	return cols
}

// InvoiceColumns returns the column layout of an invoice document
func InvoiceColumns() []string {
	cols := make([]string, len(invoiceColumns))
	copy(cols, invoiceColumns)
	return cols
}
