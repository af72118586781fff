package ports

import "context"

// Publisher delivers an outbox message to the broker.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}
