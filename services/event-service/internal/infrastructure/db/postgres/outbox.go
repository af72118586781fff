package postgres

import (
	"context"
	"database/sql"
	"math"
	"math/rand"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/audit"
	zlog "github.com/rs/zerolog/log"
)

type outboxRow struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Body       []byte
	Attempts   int
}

// SKIP LOCKED lets several relay instances share the table.
const selectOutboxClaimsSQL = `
SELECT id, message_id, routing_key, body, attempts
FROM event_outbox
WHERE status = 'pending'
  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
ORDER BY next_retry_at ASC, created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED
`

const updateOutboxClaimSQL = `
UPDATE event_outbox
SET next_retry_at = $2,
    status = 'processing'
WHERE id = $1
`

const markOutboxSentSQL = `
UPDATE event_outbox
SET status = 'sent',
    sent_at = $2,
    last_error = NULL
WHERE id = $1
`

const markOutboxFailedSQL = `
UPDATE event_outbox
SET status = 'pending',
    attempts = attempts + 1,
    next_retry_at = $2,
    last_error = $3
WHERE id = $1
`

const markOutboxDeadSQL = `
UPDATE event_outbox
SET status = 'dead',
    attempts = attempts + 1,
    last_error = $2
WHERE id = $1
`

// Rows stuck in 'processing' past their reservation go back to the pool.
const releaseStaleClaimsSQL = `
UPDATE event_outbox
SET status = 'pending'
WHERE status = 'processing' AND next_retry_at <= NOW()
`

const maxAttempts = 10

// OutboxRelay moves committed outbox rows to the broker:
// claim rows in a short tx, publish without holding locks, then record the result.
type OutboxRelay struct {
	db       *sql.DB
	pub      ports.Publisher
	audit    *audit.Logger
	interval time.Duration
	jitter   time.Duration
	batch    int
}

func NewOutboxRelay(db *sql.DB, pub ports.Publisher, al *audit.Logger) *OutboxRelay {
	if al == nil {
		al = audit.Default()
	}
	return &OutboxRelay{db: db, pub: pub, audit: al, interval: 500 * time.Millisecond, jitter: time.Second, batch: 20}
}

// Start polls until ctx is canceled.
func (o *OutboxRelay) Start(ctx context.Context) {
	go o.run(ctx)
}

func (o *OutboxRelay) run(ctx context.Context) {
	// Jitter so instances started together do not poll in lockstep.
	if o.jitter > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(rand.Int63n(int64(o.jitter)))):
		}
	}
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				zlog.Error().Err(err).Msg("outbox relay batch failed")
			}
		}
	}
}

// ProcessBatch handles one claim/publish round and returns how many rows it claimed.
func (o *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := o.db.ExecContext(claimCtx, releaseStaleClaimsSQL); err != nil {
		return 0, err
	}

	tx, err := o.db.BeginTx(claimCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(claimCtx, selectOutboxClaimsSQL, o.batch)
	if err != nil {
		return 0, err
	}
	var batch []outboxRow
	for rows.Next() {
		var item outboxRow
		if err := rows.Scan(&item.ID, &item.MessageID, &item.RoutingKey, &item.Body, &item.Attempts); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(batch) == 0 {
		return 0, tx.Commit()
	}

	reservation := time.Now().UTC().Add(30 * time.Second)
	for _, item := range batch {
		if _, err := tx.ExecContext(claimCtx, updateOutboxClaimSQL, item.ID, reservation); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, item := range batch {
		o.publishOne(ctx, item)
	}
	return len(batch), nil
}

func (o *OutboxRelay) publishOne(ctx context.Context, item outboxRow) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := o.pub.PublishEvent(pubCtx, item.RoutingKey, item.MessageID, item.Body)

	resCtx, cancelRes := context.WithTimeout(ctx, 3*time.Second)
	defer cancelRes()

	if err == nil {
		if _, err := o.db.ExecContext(resCtx, markOutboxSentSQL, item.ID, time.Now().UTC()); err != nil {
			zlog.Warn().Err(err).Str("message_id", item.MessageID).Msg("outbox mark sent failed")
		}
		return
	}

	log := zlog.Warn().Err(err).Str("message_id", item.MessageID).Str("routing_key", item.RoutingKey)
	if item.Attempts+1 >= maxAttempts {
		log.Msg("outbox publish failed, giving up")
		o.audit.OutboxMessageDead(item.MessageID, item.RoutingKey, item.Attempts+1)
		_, _ = o.db.ExecContext(resCtx, markOutboxDeadSQL, item.ID, err.Error())
		return
	}

	backoff := time.Duration(math.Pow(2, float64(item.Attempts))) * time.Second
	backoff += time.Duration(rand.Intn(1000)) * time.Millisecond
	log.Dur("retry_in", backoff).Msg("outbox publish failed")
	_, _ = o.db.ExecContext(resCtx, markOutboxFailedSQL, item.ID, time.Now().UTC().Add(backoff), err.Error())
}
