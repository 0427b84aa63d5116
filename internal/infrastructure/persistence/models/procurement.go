package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procure/reconciler/internal/domain/procurement"
)

// PurchaseOrderModel is the persistence model for purchase orders. The
// business identifier is the primary key; orders are never updated.
type PurchaseOrderModel struct {
	ID        string                   `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time                `gorm:"not null"`
	Lines     []PurchaseOrderLineModel `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for PurchaseOrderModel
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderLineModel is the persistence model for purchase order lines.
// Line numbers and item codes are each unique within one order; the store's
// constraints are the authoritative duplicate signal.
type PurchaseOrderLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseOrderID string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_po_lines_line_number;uniqueIndex:ux_po_lines_item_code"`
	LineNumber      int             `gorm:"not null;uniqueIndex:ux_po_lines_line_number"`
	ItemCode        string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_po_lines_item_code"`
	Description     string          `gorm:"type:varchar(255)"`
	Quantity        int64           `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for PurchaseOrderLineModel
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// InvoiceModel is the persistence model for invoices. The purchase order
// reference is nullable; when set it must name an existing order.
type InvoiceModel struct {
	ID              string              `gorm:"type:varchar(64);primaryKey"`
	PurchaseOrderID *string             `gorm:"type:varchar(64);index"`
	PurchaseOrder   *PurchaseOrderModel `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"not null"`
	Lines           []InvoiceLineModel  `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for InvoiceModel
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineModel is the persistence model for invoice lines
type InvoiceLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoice_lines_item_code"`
	ItemCode    string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoice_lines_item_code"`
	Description string          `gorm:"type:varchar(255)"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for InvoiceLineModel
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ReportModel records one reconciliation snapshot for a purchase order
type ReportModel struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey"`
	PurchaseOrderID string               `gorm:"type:varchar(64);not null;index"`
	PurchaseOrder   *PurchaseOrderModel  `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"not null"`
	Invoices        []ReportInvoiceModel `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for ReportModel
func (ReportModel) TableName() string {
	return "reports"
}

// ReportInvoiceModel links a report to one invoice covered by its aggregation
type ReportInvoiceModel struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ReportID  uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:ux_report_invoices"`
	InvoiceID string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_report_invoices"`
	Invoice   *InvoiceModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for ReportInvoiceModel
func (ReportInvoiceModel) TableName() string {
	return "report_invoices"
}

// FromDomainPurchaseOrder converts a domain purchase order to its model
func FromDomainPurchaseOrder(po *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		ID:        po.ID,
		CreatedAt: po.CreatedAt,
		Lines:     make([]PurchaseOrderLineModel, len(po.Lines)),
	}
	for i, l := range po.Lines {
		m.Lines[i] = PurchaseOrderLineModel{
			ID:              l.ID,
			PurchaseOrderID: l.PurchaseOrderID,
			LineNumber:      l.LineNumber,
			ItemCode:        l.ItemCode,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.TotalPrice,
			CreatedAt:       l.CreatedAt,
			UpdatedAt:       l.UpdatedAt,
		}
	}
	return m
}

// ToDomain converts PurchaseOrderModel to a domain purchase order
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	po := &procurement.PurchaseOrder{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Lines:     make([]procurement.PurchaseOrderLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		po.Lines[i] = l.ToDomain()
	}
	return po
}

// ToDomain converts PurchaseOrderLineModel to a domain line
func (m *PurchaseOrderLineModel) ToDomain() procurement.PurchaseOrderLine {
	return procurement.PurchaseOrderLine{
		ID:              m.ID,
		PurchaseOrderID: m.PurchaseOrderID,
		LineNumber:      m.LineNumber,
		ItemCode:        m.ItemCode,
		Description:     m.Description,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		TotalPrice:      m.TotalPrice,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomainInvoice converts a domain invoice to its model
func FromDomainInvoice(inv *procurement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		ID:              inv.ID,
		PurchaseOrderID: inv.PurchaseOrderID,
		CreatedAt:       inv.CreatedAt,
		Lines:           make([]InvoiceLineModel, len(inv.Lines)),
	}
	for i, l := range inv.Lines {
		m.Lines[i] = InvoiceLineModel{
			ID:          l.ID,
			InvoiceID:   l.InvoiceID,
			ItemCode:    l.ItemCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.TotalPrice,
			CreatedAt:   l.CreatedAt,
			UpdatedAt:   l.UpdatedAt,
		}
	}
	return m
}

// ToDomain converts InvoiceModel to a domain invoice
func (m *InvoiceModel) ToDomain() *procurement.Invoice {
	inv := &procurement.Invoice{
		ID:              m.ID,
		PurchaseOrderID: m.PurchaseOrderID,
		CreatedAt:       m.CreatedAt,
		Lines:           make([]procurement.InvoiceLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		inv.Lines[i] = l.ToDomain()
	}
	return inv
}

// ToDomain converts InvoiceLineModel to a domain line
func (m *InvoiceLineModel) ToDomain() procurement.InvoiceLine {
	return procurement.InvoiceLine{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		ItemCode:    m.ItemCode,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalPrice:  m.TotalPrice,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomainReport converts a domain report to its model
func FromDomainReport(r *procurement.Report) *ReportModel {
	m := &ReportModel{
		ID:              r.ID,
		PurchaseOrderID: r.PurchaseOrderID,
		CreatedAt:       r.CreatedAt,
		Invoices:        make([]ReportInvoiceModel, len(r.InvoiceIDs)),
	}
	for i, invoiceID := range r.InvoiceIDs {
		m.Invoices[i] = ReportInvoiceModel{
			ID:        uuid.New(),
			ReportID:  r.ID,
			InvoiceID: invoiceID,
		}
	}
	return m
}
