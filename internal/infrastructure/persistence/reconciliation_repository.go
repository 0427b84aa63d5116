package persistence

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/procure/reconciler/internal/domain/procurement"
	"github.com/procure/reconciler/internal/infrastructure/persistence/models"
)

// GormReconciliationRepository implements procurement.ReconciliationRepository
// using GORM. On postgres the snapshot transaction runs at repeatable read so
// the detail table, side reports and raw projections all observe the same
// state; other dialects fall back to their default isolation.
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// Snapshot runs fn inside one transaction over a consistent view of the store
func (r *GormReconciliationRepository) Snapshot(ctx context.Context, fn func(view procurement.ReconciliationView) error) error {
	run := func(tx *gorm.DB) error {
		return fn(&gormReconciliationView{tx: tx})
	}
	if r.db.Dialector.Name() == "postgres" {
		return r.db.WithContext(ctx).Transaction(run, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	}
	return r.db.WithContext(ctx).Transaction(run)
}

type gormReconciliationView struct {
	tx *gorm.DB
}

// PurchaseOrderLines returns the order's lines in line-number order
func (v *gormReconciliationView) PurchaseOrderLines(poID string) ([]procurement.PurchaseOrderLine, error) {
	var lineModels []models.PurchaseOrderLineModel
	if err := v.tx.
		Where("purchase_order_id = ?", poID).
		Order("line_number").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	lines := make([]procurement.PurchaseOrderLine, len(lineModels))
	for i, m := range lineModels {
		lines[i] = m.ToDomain()
	}
	return lines, nil
}

// AggregatedInvoiceItems groups every invoice line referencing the order by
// item code, summing quantity and total price in SQL.
func (v *gormReconciliationView) AggregatedInvoiceItems(poID string) ([]procurement.AggregatedInvoiceItem, error) {
	var items []procurement.AggregatedInvoiceItem
	err := v.tx.
		Model(&models.InvoiceLineModel{}).
		Select("invoice_lines.item_code AS item_code, SUM(invoice_lines.quantity) AS quantity, SUM(invoice_lines.total_price) AS total_price").
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id").
		Where("invoices.purchase_order_id = ?", poID).
		Group("invoice_lines.item_code").
		Order("invoice_lines.item_code").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// InvoiceLines returns the raw lines of every invoice referencing the order
func (v *gormReconciliationView) InvoiceLines(poID string) ([]procurement.InvoiceLine, error) {
	var lineModels []models.InvoiceLineModel
	err := v.tx.
		Model(&models.InvoiceLineModel{}).
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id").
		Where("invoices.purchase_order_id = ?", poID).
		Order("invoice_lines.invoice_id, invoice_lines.item_code").
		Find(&lineModels).Error
	if err != nil {
		return nil, err
	}
	lines := make([]procurement.InvoiceLine, len(lineModels))
	for i, m := range lineModels {
		lines[i] = m.ToDomain()
	}
	return lines, nil
}

// InvoiceIDs returns the ids of every invoice referencing the order
func (v *gormReconciliationView) InvoiceIDs(poID string) ([]string, error) {
	var ids []string
	err := v.tx.
		Model(&models.InvoiceModel{}).
		Where("purchase_order_id = ?", poID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateReport persists the report and its invoice links inside the snapshot
// transaction, so the recorded coverage matches the computed dataset exactly.
func (v *gormReconciliationView) CreateReport(report *procurement.Report) error {
	return v.tx.Create(models.FromDomainReport(report)).Error
}

var _ procurement.ReconciliationRepository = (*GormReconciliationRepository)(nil)
