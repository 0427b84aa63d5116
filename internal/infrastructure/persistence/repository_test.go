package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/procure/reconciler/internal/domain/procurement"
	"github.com/procure/reconciler/internal/domain/shared"
	"github.com/procure/reconciler/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.PurchaseOrderModel{},
		&models.PurchaseOrderLineModel{},
		&models.InvoiceModel{},
		&models.InvoiceLineModel{},
		&models.ReportModel{},
		&models.ReportInvoiceModel{},
	)
	require.NoError(t, err)

	return db
}

func newPO(t *testing.T, id string, lines ...procurement.LineInput) *procurement.PurchaseOrder {
	t.Helper()
	po, err := procurement.NewPurchaseOrder(id, lines)
	require.NoError(t, err)
	return po
}

func newInvoice(t *testing.T, id, poID string, lines ...procurement.LineInput) *procurement.Invoice {
	t.Helper()
	inv, err := procurement.NewInvoice(id, poID, lines)
	require.NoError(t, err)
	return inv
}

func line(n int, code string, qty int64, unit, total string) procurement.LineInput {
	return procurement.LineInput{
		LineNumber:  n,
		ItemCode:    code,
		Description: "desc " + code,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(unit),
		TotalPrice:  decimal.RequireFromString(total),
	}
}

func TestGormPurchaseOrderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPurchaseOrderRepository(db)

		po := newPO(t, "PO-1",
			line(1, "A", 10, "2.00", "20.00"),
			line(2, "B", 3, "1.50", "4.50"),
		)
		require.NoError(t, repo.Create(ctx, po))

		got, err := repo.Get(ctx, "PO-1")
		require.NoError(t, err)
		assert.Equal(t, "PO-1", got.ID)
		require.Len(t, got.Lines, 2)
		assert.Equal(t, "A", got.Lines[0].ItemCode)
		assert.Equal(t, int64(10), got.Lines[0].Quantity)
		assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.RequireFromString("2.00")))
	})

	t.Run("duplicate id is rejected atomically", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPurchaseOrderRepository(db)

		require.NoError(t, repo.Create(ctx, newPO(t, "PO-1", line(1, "A", 1, "1.00", "1.00"))))

		again := newPO(t, "PO-1",
			line(1, "C", 1, "1.00", "1.00"),
			line(2, "D", 1, "1.00", "1.00"),
		)
		err := repo.Create(ctx, again)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)

		// Nothing from the rejected document is visible
		var lineCount int64
		require.NoError(t, db.Model(&models.PurchaseOrderLineModel{}).Count(&lineCount).Error)
		assert.Equal(t, int64(1), lineCount)
	})

	t.Run("exists", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPurchaseOrderRepository(db)

		ok, err := repo.Exists(ctx, "PO-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.Create(ctx, newPO(t, "PO-1", line(1, "A", 1, "1.00", "1.00"))))

		ok, err = repo.Exists(ctx, "PO-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("get missing order", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPurchaseOrderRepository(db)

		_, err := repo.Get(ctx, "PO-404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create linked invoice", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, NewGormPurchaseOrderRepository(db).Create(ctx,
			newPO(t, "PO-1", line(1, "A", 10, "2.00", "20.00"))))

		repo := NewGormInvoiceRepository(db)
		require.NoError(t, repo.Create(ctx, newInvoice(t, "INV-1", "PO-1", line(0, "A", 8, "2.00", "16.00"))))

		var count int64
		require.NoError(t, db.Model(&models.InvoiceLineModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing purchase order is a referential error", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)

		err := repo.Create(ctx, newInvoice(t, "INV-1", "PO-404", line(0, "A", 1, "1.00", "1.00")))
		assert.ErrorIs(t, err, shared.ErrPurchaseOrderMissing)

		var count int64
		require.NoError(t, db.Model(&models.InvoiceModel{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("duplicate invoice id is rejected atomically", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, NewGormPurchaseOrderRepository(db).Create(ctx,
			newPO(t, "PO-1", line(1, "A", 10, "2.00", "20.00"))))

		repo := NewGormInvoiceRepository(db)
		require.NoError(t, repo.Create(ctx, newInvoice(t, "INV-1", "PO-1", line(0, "A", 1, "2.00", "2.00"))))

		err := repo.Create(ctx, newInvoice(t, "INV-1", "PO-1", line(0, "B", 1, "1.00", "1.00")))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)

		var count int64
		require.NoError(t, db.Model(&models.InvoiceLineModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unlinked invoice persists with null reference", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)

		require.NoError(t, repo.Create(ctx, newInvoice(t, "INV-1", "", line(0, "A", 1, "1.00", "1.00"))))

		var model models.InvoiceModel
		require.NoError(t, db.First(&model, "id = ?", "INV-1").Error)
		assert.Nil(t, model.PurchaseOrderID)
	})
}

func TestGormReconciliationRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *gorm.DB {
		db := setupTestDB(t)
		require.NoError(t, NewGormPurchaseOrderRepository(db).Create(ctx, newPO(t, "PO-1",
			line(1, "A", 10, "2.00", "20.00"),
			line(2, "B", 5, "1.00", "5.00"),
		)))
		invRepo := NewGormInvoiceRepository(db)
		require.NoError(t, invRepo.Create(ctx, newInvoice(t, "INV-1", "PO-1",
			line(0, "A", 4, "2.00", "8.00"),
		)))
		require.NoError(t, invRepo.Create(ctx, newInvoice(t, "INV-2", "PO-1",
			line(0, "A", 3, "2.00", "6.00"),
			line(0, "C", 2, "4.00", "8.00"),
		)))
		// An unrelated order must never leak into PO-1's view
		require.NoError(t, NewGormPurchaseOrderRepository(db).Create(ctx, newPO(t, "PO-2",
			line(1, "A", 1, "9.00", "9.00"),
		)))
		require.NoError(t, invRepo.Create(ctx, newInvoice(t, "INV-3", "PO-2",
			line(0, "A", 1, "9.00", "9.00"),
		)))
		return db
	}

	t.Run("aggregates invoice items across invoices", func(t *testing.T) {
		repo := NewGormReconciliationRepository(seed(t))

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			items, err := view.AggregatedInvoiceItems("PO-1")
			require.NoError(t, err)
			require.Len(t, items, 2)

			assert.Equal(t, "A", items[0].ItemCode)
			assert.Equal(t, int64(7), items[0].Quantity)
			assert.True(t, items[0].TotalPrice.Equal(decimal.RequireFromString("14.00")))

			assert.Equal(t, "C", items[1].ItemCode)
			assert.Equal(t, int64(2), items[1].Quantity)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("reads order lines, invoice lines and invoice ids", func(t *testing.T) {
		repo := NewGormReconciliationRepository(seed(t))

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			poLines, err := view.PurchaseOrderLines("PO-1")
			require.NoError(t, err)
			require.Len(t, poLines, 2)
			assert.Equal(t, 1, poLines[0].LineNumber)

			invLines, err := view.InvoiceLines("PO-1")
			require.NoError(t, err)
			assert.Len(t, invLines, 3)

			ids, err := view.InvoiceIDs("PO-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"INV-1", "INV-2"}, ids)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("creates the report with its invoice links", func(t *testing.T) {
		db := seed(t)
		repo := NewGormReconciliationRepository(db)

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			report, err := procurement.NewReport("PO-1", []string{"INV-1", "INV-2"})
			require.NoError(t, err)
			return view.CreateReport(report)
		})
		require.NoError(t, err)

		var reportCount, linkCount int64
		require.NoError(t, db.Model(&models.ReportModel{}).Count(&reportCount).Error)
		require.NoError(t, db.Model(&models.ReportInvoiceModel{}).Count(&linkCount).Error)
		assert.Equal(t, int64(1), reportCount)
		assert.Equal(t, int64(2), linkCount)
	})

	t.Run("snapshot error rolls the report back", func(t *testing.T) {
		db := seed(t)
		repo := NewGormReconciliationRepository(db)

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			report, err := procurement.NewReport("PO-1", []string{"INV-1"})
			require.NoError(t, err)
			if err := view.CreateReport(report); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		var count int64
		require.NoError(t, db.Model(&models.ReportModel{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("deleting an order sweeps its invoices, reports and links", func(t *testing.T) {
		db := seed(t)
		repo := NewGormReconciliationRepository(db)

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			report, err := procurement.NewReport("PO-1", []string{"INV-1", "INV-2"})
			require.NoError(t, err)
			return view.CreateReport(report)
		})
		require.NoError(t, err)

		require.NoError(t, db.Delete(&models.PurchaseOrderModel{ID: "PO-1"}).Error)

		counts := map[string]int64{}
		for name, model := range map[string]interface{}{
			"po_lines":        &models.PurchaseOrderLineModel{},
			"invoices":        &models.InvoiceModel{},
			"invoice_lines":   &models.InvoiceLineModel{},
			"reports":         &models.ReportModel{},
			"report_invoices": &models.ReportInvoiceModel{},
		} {
			var count int64
			require.NoError(t, db.Model(model).Count(&count).Error)
			counts[name] = count
		}

		// PO-1's rows are gone all the way down; PO-2 and INV-3 are untouched
		assert.Equal(t, int64(1), counts["po_lines"])
		assert.Equal(t, int64(1), counts["invoices"])
		assert.Equal(t, int64(1), counts["invoice_lines"])
		assert.Zero(t, counts["reports"])
		assert.Zero(t, counts["report_invoices"])
	})

	t.Run("unknown order yields empty view", func(t *testing.T) {
		repo := NewGormReconciliationRepository(seed(t))

		err := repo.Snapshot(ctx, func(view procurement.ReconciliationView) error {
			poLines, err := view.PurchaseOrderLines("PO-404")
			require.NoError(t, err)
			assert.Empty(t, poLines)
			return nil
		})
		require.NoError(t, err)
	})
}
