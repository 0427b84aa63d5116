package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document lifecycle event types. Events are advisory: subscribers observe
// the ingestion pipeline but never influence its control flow.
const (
	EventDocumentUnsupported  = "document.unsupported"
	EventDocumentIngesting    = "document.ingesting"
	EventDocumentIngested     = "document.ingested"
	EventDocumentIngestFailed = "document.ingest_failed"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	DocumentID() string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler handles domain events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	DocID     string    `json:"document_id"`
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, documentID string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		DocID:     documentID,
	}
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// DocumentID returns the identifier of the document the event refers to
func (e *BaseDomainEvent) DocumentID() string {
	return e.DocID
}

// DocumentUnsupportedEvent signals that a document matched neither known schema
type DocumentUnsupportedEvent struct {
	BaseDomainEvent
}

// NewDocumentUnsupportedEvent creates a DocumentUnsupportedEvent
func NewDocumentUnsupportedEvent(documentID string) *DocumentUnsupportedEvent {
	return &DocumentUnsupportedEvent{NewBaseDomainEvent(EventDocumentUnsupported, documentID)}
}

// DocumentIngestingEvent signals that ingestion of a document has started
type DocumentIngestingEvent struct {
	BaseDomainEvent
	Kind string `json:"kind"`
}

// NewDocumentIngestingEvent creates a DocumentIngestingEvent
func NewDocumentIngestingEvent(documentID, kind string) *DocumentIngestingEvent {
	return &DocumentIngestingEvent{NewBaseDomainEvent(EventDocumentIngesting, documentID), kind}
}

// DocumentIngestedEvent signals that a document was persisted successfully
type DocumentIngestedEvent struct {
	BaseDomainEvent
	Kind            string `json:"kind"`
	PurchaseOrderID string `json:"purchase_order_id"`
}

// NewDocumentIngestedEvent creates a DocumentIngestedEvent
func NewDocumentIngestedEvent(documentID, kind, purchaseOrderID string) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{NewBaseDomainEvent(EventDocumentIngested, documentID), kind, purchaseOrderID}
}

// DocumentIngestFailedEvent signals that ingestion of a document failed
type DocumentIngestFailedEvent struct {
	BaseDomainEvent
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// NewDocumentIngestFailedEvent creates a DocumentIngestFailedEvent
func NewDocumentIngestFailedEvent(documentID, kind, reason string) *DocumentIngestFailedEvent {
	return &DocumentIngestFailedEvent{NewBaseDomainEvent(EventDocumentIngestFailed, documentID), kind, reason}
}
