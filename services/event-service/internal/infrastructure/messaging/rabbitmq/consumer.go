package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	dlxName        = "ewm.events.dlx"
	queueName      = "event-service.cache-invalidation"
	retryQueueName = queueName + ".retry"
	dlqName        = queueName + ".dlq"

	maxRetries = 3
	retryTTLms = 5000
)

// Invalidator drops derived copies of an event (the public details cache).
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID string) error
}

// invalidationKeys are the routing keys after which a cached event is stale.
var invalidationKeys = []string{
	ports.RKEventPublished,
	ports.RKEventRejected,
	ports.RKEventCanceled,
}

type eventEnvelope struct {
	MessageID string `json:"message_id"`
	TraceID   string `json:"trace_id"`
	Payload   struct {
		EventID string `json:"event_id"`
	} `json:"payload"`
}

// Consumer listens to event.* state changes and invalidates the shared cache.
// The synchronous invalidation on the write path is best-effort, this is
// the backstop. Failures go through a TTL retry queue, then to a DLQ.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	exchange string
	target   Invalidator

	// retry republishes a delivery to the retry queue.
	retry func(ctx context.Context, msg amqp.Publishing) error
}

func NewConsumer(rabbitURL, exchange string, target Invalidator) (*Consumer, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Consumer{conn: conn, channel: ch, exchange: exchange, target: target}
	if err := c.declareTopology(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.retry = func(ctx context.Context, msg amqp.Publishing) error {
		return ch.PublishWithContext(ctx, "", retryQueueName, false, false, msg)
	}
	return c, nil
}

func (c *Consumer) declareTopology() error {
	ch := c.channel

	if err := declareExchange(ch, c.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlxName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx: %w", err)
	}

	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlq: %w", err)
	}
	if err := ch.QueueBind(dlqName, "", dlxName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlxName,
	})
	if err != nil {
		return fmt.Errorf("failed to declare main queue: %w", err)
	}

	_, err = ch.QueueDeclare(retryQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queueName,
		"x-message-ttl":             retryTTLms,
	})
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	for _, key := range invalidationKeys {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}
	c.queue = q.Name
	return nil
}

// Start consumes until ctx is canceled or the channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(10, 0, false); err != nil {
		return err
	}
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	go c.consume(ctx, msgs)
	log.Info().
		Str("queue", c.queue).
		Str("exchange", c.exchange).
		Msg("cache invalidation consumer started")
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("consumer shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Msg("consumer channel closed")
				return
			}
			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	routingKey := msg.RoutingKey
	if val, ok := msg.Headers["x-original-routing-key"].(string); ok {
		routingKey = val
	}

	var env eventEnvelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageId).Msg("failed to unmarshal event envelope")
		_ = msg.Nack(false, false) // poison -> DLQ
		return
	}
	if _, err := uuid.Parse(env.Payload.EventID); err != nil {
		log.Error().Err(err).Str("event_id", env.Payload.EventID).Msg("invalid event_id")
		_ = msg.Nack(false, false)
		return
	}

	l := log.With().
		Str("routing_key", routingKey).
		Str("message_id", msg.MessageId).
		Str("event_id", env.Payload.EventID).
		Str("trace_id", env.TraceID).
		Logger()

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.target.InvalidateEvent(hctx, env.Payload.EventID)
	if err == nil {
		l.Debug().Msg("event cache invalidated")
		_ = msg.Ack(false)
		return
	}

	retryCount := 0
	if val, ok := msg.Headers["x-retry-count"].(int32); ok {
		retryCount = int(val)
	}
	if retryCount >= maxRetries {
		l.Error().Err(err).Msg("max retries reached, sending to DLQ")
		_ = msg.Nack(false, false)
		return
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = int32(retryCount + 1)
	headers["x-original-routing-key"] = routingKey

	pubErr := c.retry(hctx, amqp.Publishing{
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Headers:     headers,
		MessageId:   msg.MessageId,
	})
	if pubErr != nil {
		l.Error().Err(pubErr).Msg("failed to publish to retry queue")
		_ = msg.Nack(false, false)
		return
	}
	l.Warn().Err(err).Int("retry_count", retryCount).Msg("invalidation failed, scheduled retry")
	_ = msg.Ack(false)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
