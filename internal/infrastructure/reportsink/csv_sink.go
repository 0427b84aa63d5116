package reportsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/application/recon"
	"github.com/procure/reconciler/internal/domain/procurement"
)

// NullCell is the display convention for an absent value
const NullCell = "--"

// CSVSink renders a reconciliation bundle as six CSV artifacts under one
// directory per snapshot.
type CSVSink struct {
	baseDir string
	logger  *zap.Logger
}

// NewCSVSink creates a new CSVSink rooted at baseDir
func NewCSVSink(baseDir string, logger *zap.Logger) *CSVSink {
	return &CSVSink{baseDir: baseDir, logger: logger}
}

// Write renders all six artifacts of one bundle. Any failure here is fatal to
// the caller's run, so errors are returned as-is.
func (s *CSVSink) Write(_ context.Context, bundle *recon.Bundle) error {
	dir := filepath.Join(s.baseDir,
		fmt.Sprintf("report_%s_%s", bundle.PurchaseOrderID, bundle.GeneratedAt.Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	artifacts := []struct {
		name string
		rows [][]string
	}{
		{"summary.csv", summaryRows(bundle)},
		{"reconciliation.csv", detailRows(bundle.Detail)},
		{"invoice_items_not_in_po.csv", invoiceLineRows(bundle.InvoiceItemsNotInPO)},
		{"po_lines_not_invoiced.csv", poLineRows(bundle.POLinesNotInvoiced)},
		{"raw_po_lines.csv", poLineRows(bundle.RawPOLines)},
		{"raw_invoice_lines.csv", invoiceLineRows(bundle.RawInvoiceLines)},
	}
	for _, artifact := range artifacts {
		if err := writeCSV(filepath.Join(dir, artifact.name), artifact.rows); err != nil {
			return err
		}
	}

	s.logger.Info("report written",
		zap.String("purchase_order", bundle.PurchaseOrderID),
		zap.String("directory", dir))
	return nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	// WriteAll flushes and reports any buffered write error
	if err := csv.NewWriter(file).WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func summaryRows(bundle *recon.Bundle) [][]string {
	return [][]string{
		{"PO Number", "Total Ordered", "Total Invoiced", "Price Variance", "Mismatched Lines", "Generated At"},
		{
			bundle.PurchaseOrderID,
			bundle.Summary.TotalOrderedPrice.StringFixed(2),
			bundle.Summary.TotalInvoicedPrice.StringFixed(2),
			bundle.Summary.TotalPriceVariance.StringFixed(2),
			strconv.Itoa(bundle.Summary.MismatchCount),
			bundle.GeneratedAt.Format("2006-01-02 15:04:05"),
		},
	}
}

func detailRows(detail []recon.Line) [][]string {
	rows := [][]string{{
		"Item Code", "Description", "Ordered Qty", "Ordered Total",
		"Invoiced Qty", "Invoiced Total", "Qty Variance", "Price Variance", "Status",
	}}
	for _, line := range detail {
		rows = append(rows, []string{
			line.ItemCode,
			line.Description,
			intCell(line.OrderedQty),
			decimalCell(line.OrderedPrice),
			intCell(line.InvoicedQty),
			decimalCell(line.InvoicedPrice),
			intCell(line.QtyVariance),
			decimalCell(line.PriceVariance),
			string(line.Status),
		})
	}
	return rows
}

func poLineRows(lines []procurement.PurchaseOrderLine) [][]string {
	rows := [][]string{{"PO Number", "PO Line", "Item Code", "Description", "Ordered Qty", "Unit Price", "Total Amount"}}
	for _, l := range lines {
		rows = append(rows, []string{
			l.PurchaseOrderID,
			strconv.Itoa(l.LineNumber),
			l.ItemCode,
			l.Description,
			strconv.FormatInt(l.Quantity, 10),
			l.UnitPrice.StringFixed(2),
			l.TotalPrice.StringFixed(2),
		})
	}
	return rows
}

func invoiceLineRows(lines []procurement.InvoiceLine) [][]string {
	rows := [][]string{{"Invoice Number", "Item Code", "Description", "Invoiced Qty", "Unit Price", "Total Amount"}}
	for _, l := range lines {
		rows = append(rows, []string{
			l.InvoiceID,
			l.ItemCode,
			l.Description,
			strconv.FormatInt(l.Quantity, 10),
			l.UnitPrice.StringFixed(2),
			l.TotalPrice.StringFixed(2),
		})
	}
	return rows
}

func intCell(v *int64) string {
	if v == nil {
		return NullCell
	}
	return strconv.FormatInt(*v, 10)
}

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return NullCell
	}
	return d.StringFixed(2)
}

var _ recon.Sink = (*CSVSink)(nil)
