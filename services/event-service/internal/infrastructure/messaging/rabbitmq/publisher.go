package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "ewm.events"

	// How long to wait for the broker confirm when ctx has no deadline.
	confirmWait = 2 * time.Second
)

var (
	ErrNoRoute = errors.New("rabbitmq: message returned, no route")
	ErrNack    = errors.New("rabbitmq: publish nacked")
)

// Publisher sends outbox messages to a durable topic exchange with
// mandatory delivery and publisher confirms. A broken channel is
// re-dialed on the next publish.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

var _ ports.Publisher = (*Publisher)(nil)

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishEvent publishes one envelope body and waits for the broker's verdict.
// messageID must be stable across retries (event_outbox.message_id) so
// consumers can deduplicate.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}

	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	wait := time.NewTimer(confirmWait)
	defer wait.Stop()

	// The broker sends basic.return before the confirm of the same message.
	select {
	case ret := <-p.returnCh:
		select {
		case <-p.confirmCh:
		case <-wait.C:
			p.closeLocked()
		}
		return fmt.Errorf("%w: %s", ErrNoRoute, ret.RoutingKey)
	case conf := <-p.confirmCh:
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("%w: %s", ErrNoRoute, ret.RoutingKey)
		default:
		}
		if !conf.Ack {
			return ErrNack
		}
		return nil
	case <-wait.C:
		// The channel state is unknown; drop it so the next publish starts clean.
		p.closeLocked()
		return errors.New("rabbitmq: confirm timeout")
	case <-ctx.Done():
		p.closeLocked()
		return ctx.Err()
	}
}
