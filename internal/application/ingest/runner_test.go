package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/application/recon"
	"github.com/procure/reconciler/internal/domain/shared"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Documents(ctx context.Context) ([]Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockSource) Consume(ctx context.Context, doc Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, poID string) (*recon.Bundle, error) {
	args := m.Called(ctx, poID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recon.Bundle), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Write(ctx context.Context, bundle *recon.Bundle) error {
	args := m.Called(ctx, bundle)
	return args.Error(0)
}

func newTestRunner(source *MockSource, poRepo *MockPurchaseOrderRepository, invRepo *MockInvoiceRepository, reconciler *MockReconciler, sink *MockSink) *Runner {
	svc := newTestService(poRepo, invRepo, nil, false)
	return NewRunner(source, svc, reconciler, sink, nil, zap.NewNop())
}

func TestRunnerRun(t *testing.T) {
	poDocument := poDoc(poRow("PO-1", "1", "A", "10", "2.00", "20.00"))
	invDocument := invDoc(invRow("INV-1", "PO-1", "A", "8", "2.00", "16.00"))
	secondInvoice := invDoc(invRow("INV-2", "PO-1", "A", "2", "2.00", "4.00"))
	unsupported := Document{Name: "noise.csv", Columns: []string{"Foo"}, Rows: []Row{{"Foo": "x"}}}

	t.Run("orders before invoices, one reconciliation per touched order", func(t *testing.T) {
		source := new(MockSource)
		// Invoice listed first; the runner must still ingest the order first.
		source.On("Documents", mock.Anything).Return([]Document{invDocument, poDocument, secondInvoice, unsupported}, nil)
		source.On("Consume", mock.Anything, mock.Anything).Return(nil)

		var calls []string
		poRepo := new(MockPurchaseOrderRepository)
		poRepo.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			calls = append(calls, "po")
		}).Return(nil)
		poRepo.On("Exists", mock.Anything, "PO-1").Return(true, nil)
		invRepo := new(MockInvoiceRepository)
		invRepo.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			calls = append(calls, "invoice")
		}).Return(nil)

		reconciler := new(MockReconciler)
		reconciler.On("Reconcile", mock.Anything, "PO-1").Return(&recon.Bundle{PurchaseOrderID: "PO-1"}, nil).Once()
		sink := new(MockSink)
		sink.On("Write", mock.Anything, mock.Anything).Return(nil).Once()

		runner := newTestRunner(source, poRepo, invRepo, reconciler, sink)
		require.NoError(t, runner.Run(context.Background()))

		assert.Equal(t, []string{"po", "invoice", "invoice"}, calls)
		reconciler.AssertExpectations(t)
		sink.AssertExpectations(t)
		source.AssertNumberOfCalls(t, "Consume", 3)
	})

	t.Run("failed document is skipped, not consumed, and does not stop the batch", func(t *testing.T) {
		source := new(MockSource)
		source.On("Documents", mock.Anything).Return([]Document{poDocument, invDocument}, nil)
		source.On("Consume", mock.Anything, invDocument).Return(nil)

		poRepo := new(MockPurchaseOrderRepository)
		poRepo.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists)
		poRepo.On("Exists", mock.Anything, "PO-1").Return(true, nil)
		invRepo := new(MockInvoiceRepository)
		invRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		reconciler := new(MockReconciler)
		reconciler.On("Reconcile", mock.Anything, "PO-1").Return(&recon.Bundle{PurchaseOrderID: "PO-1"}, nil)
		sink := new(MockSink)
		sink.On("Write", mock.Anything, mock.Anything).Return(nil)

		runner := newTestRunner(source, poRepo, invRepo, reconciler, sink)
		require.NoError(t, runner.Run(context.Background()))

		source.AssertNotCalled(t, "Consume", mock.Anything, poDocument)
		source.AssertNumberOfCalls(t, "Consume", 1)
	})

	t.Run("reconciliation failure is fatal", func(t *testing.T) {
		source := new(MockSource)
		source.On("Documents", mock.Anything).Return([]Document{poDocument}, nil)
		source.On("Consume", mock.Anything, mock.Anything).Return(nil)

		poRepo := new(MockPurchaseOrderRepository)
		poRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		reconciler := new(MockReconciler)
		reconciler.On("Reconcile", mock.Anything, "PO-1").Return(nil, errors.New("store gone"))
		sink := new(MockSink)

		runner := newTestRunner(source, poRepo, new(MockInvoiceRepository), reconciler, sink)
		err := runner.Run(context.Background())
		require.Error(t, err)
		sink.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
	})

	t.Run("sink failure is fatal", func(t *testing.T) {
		source := new(MockSource)
		source.On("Documents", mock.Anything).Return([]Document{poDocument}, nil)
		source.On("Consume", mock.Anything, mock.Anything).Return(nil)

		poRepo := new(MockPurchaseOrderRepository)
		poRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		reconciler := new(MockReconciler)
		reconciler.On("Reconcile", mock.Anything, "PO-1").Return(&recon.Bundle{PurchaseOrderID: "PO-1"}, nil)
		sink := new(MockSink)
		sink.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		runner := newTestRunner(source, poRepo, new(MockInvoiceRepository), reconciler, sink)
		require.Error(t, runner.Run(context.Background()))
	})

	t.Run("source listing failure is fatal", func(t *testing.T) {
		source := new(MockSource)
		source.On("Documents", mock.Anything).Return(nil, errors.New("unreadable"))

		runner := newTestRunner(source, new(MockPurchaseOrderRepository), new(MockInvoiceRepository), new(MockReconciler), new(MockSink))
		require.Error(t, runner.Run(context.Background()))
	})
}
