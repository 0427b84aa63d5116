package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/procure/reconciler/internal/domain/shared"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed handlers only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		ingested := &recordingHandler{types: []string{shared.EventDocumentIngested}}
		failed := &recordingHandler{types: []string{shared.EventDocumentIngestFailed}}
		bus.Subscribe(ingested)
		bus.Subscribe(failed)

		require.NoError(t, bus.Publish(ctx, shared.NewDocumentIngestedEvent("po.csv", "purchase_order", "PO-1")))

		require.Len(t, ingested.received, 1)
		assert.Equal(t, "po.csv", ingested.received[0].DocumentID())
		assert.Empty(t, failed.received)
	})

	t.Run("handler error does not stop delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{shared.EventDocumentUnsupported}, err: errors.New("boom")}
		healthy := &recordingHandler{types: []string{shared.EventDocumentUnsupported}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, shared.NewDocumentUnsupportedEvent("noise.csv")))
		assert.Len(t, healthy.received, 1)
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(&recordingHandler{types: []string{shared.EventDocumentIngesting}, panics: true})

		assert.NotPanics(t, func() {
			_ = bus.Publish(ctx, shared.NewDocumentIngestingEvent("po.csv", "purchase_order"))
		})
	})
}

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := NewAuditLogHandler(zap.New(core))

	require.NoError(t, handler.Handle(context.Background(),
		shared.NewDocumentIngestFailedEvent("inv.csv", "invoice", "duplicate")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, shared.EventDocumentIngestFailed, entry.Message)
	assert.Equal(t, "inv.csv", entry.ContextMap()["document"])
	assert.Equal(t, "duplicate", entry.ContextMap()["reason"])
}
