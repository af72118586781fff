package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
	"github.com/google/uuid"
)

const (
	EnvelopeVersion  = 1
	EnvelopeProducer = "event-service"
)

// Routing keys of the integration events written to the outbox.
const (
	RKEventPublished    = "event.published"
	RKEventRejected     = "event.rejected"
	RKEventCanceled     = "event.canceled"
	RKRequestCreated    = "request.created"
	RKRequestCanceled   = "request.canceled"
	RKRequestsModerated = "request.moderated"
)

// DomainEventEnvelope is the stable contract for everything this service emits.
type DomainEventEnvelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

// NewOutboxMessage wraps payload in an envelope ready for Tx.InsertOutbox.
func NewOutboxMessage[T any](ctx context.Context, routingKey string, payload T, now time.Time) (OutboxMessage, error) {
	id := uuid.NewString()
	body, err := json.Marshal(DomainEventEnvelope[T]{
		Version:    EnvelopeVersion,
		Producer:   EnvelopeProducer,
		MessageID:  id,
		TraceID:    requestctx.GetRequestID(ctx),
		OccurredAt: now.UTC(),
		Payload:    payload,
	})
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{MessageID: id, RoutingKey: routingKey, Body: body, CreatedAt: now.UTC()}, nil
}
