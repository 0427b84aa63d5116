package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/procure/reconciler/internal/domain/procurement"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/procure/reconciler/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements procurement.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create persists the invoice and all of its lines in one transaction. A
// missing referenced purchase order surfaces the store's foreign key
// violation as shared.ErrPurchaseOrderMissing; a duplicate invoice id or
// (invoice, item code) pair as shared.ErrAlreadyExists. Nothing is visible
// after a failure.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *procurement.Invoice) error {
	model := models.FromDomainInvoice(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return shared.ErrPurchaseOrderMissing
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

var _ procurement.InvoiceRepository = (*GormInvoiceRepository)(nil)
