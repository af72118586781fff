package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (r *Repo) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	if err != nil {
		return err
	}

	defer func() {
		// Safety: in case fn panics, rollback to avoid leaked tx.
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txRepo{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepo struct {
	tx *sql.Tx
}

var _ ports.Tx = (*txRepo)(nil)

func (r *txRepo) ResolveLocation(ctx context.Context, lat, lon float64) (domain.Location, error) {
	loc := domain.Location{Lat: lat, Lon: lon}
	err := r.tx.QueryRowContext(ctx, resolveLocationSQL, uuid.NewString(), lat, lon).Scan(&loc.ID)
	if err != nil {
		return domain.Location{}, fmt.Errorf("resolve location: %w", err)
	}
	return loc, nil
}

func (r *txRepo) InsertEvent(ctx context.Context, e *domain.Event) error {
	_, err := r.tx.ExecContext(ctx, insertEventSQL,
		e.ID, e.Title, e.Annotation, e.Description, e.Category.ID, e.Location.ID, e.Initiator.ID,
		e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State),
		e.CreatedOn, e.PublishedOn, e.EventDate,
	)
	return err
}

func (r *txRepo) GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, r.tx, getEventForUpdateSQL, id)
}

func (r *txRepo) UpdateEvent(ctx context.Context, e *domain.Event) error {
	return execOne(ctx, r.tx, "event", updateEventSQL,
		e.ID, e.Title, e.Annotation, e.Description, e.Category.ID, e.Location.ID,
		e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State),
		e.PublishedOn, e.EventDate,
	)
}

func (r *txRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx, countConfirmedSQL, eventID).Scan(&n)
	return n, err
}

func (r *txRepo) GetRequestForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	return getRequest(ctx, r.tx, getRequestForUpdateSQL, id)
}

func (r *txRepo) RequestExists(ctx context.Context, eventID, requesterID string) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx, requestExistsSQL, eventID, requesterID).Scan(&exists)
	return exists, err
}

func (r *txRepo) InsertRequest(ctx context.Context, req *domain.Request) error {
	_, err := r.tx.ExecContext(ctx, insertRequestSQL,
		req.ID, req.EventID, req.RequesterID, req.Created, string(req.Status),
	)
	if isUniqueViolation(err) {
		return domain.ErrForbidden("participation request already exists")
	}
	return err
}

func (r *txRepo) GetRequestsByIDs(ctx context.Context, ids []string) ([]*domain.Request, error) {
	return queryRequests(ctx, r.tx, requestsByIDsForUpdateSQL, pq.Array(ids))
}

func (r *txRepo) ListRequestsByStatus(ctx context.Context, eventID string, st domain.RequestStatus) ([]*domain.Request, error) {
	return queryRequests(ctx, r.tx, requestsByStatusForUpdateSQL, eventID, string(st))
}

func (r *txRepo) SetRequestStatus(ctx context.Context, ids []string, st domain.RequestStatus) error {
	res, err := r.tx.ExecContext(ctx, setRequestStatusSQL, string(st), pq.Array(ids))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return domain.ErrNotFound("request not found")
	}
	return nil
}

func (r *txRepo) InsertOutbox(ctx context.Context, msg ports.OutboxMessage) error {
	// Store JSON as text cast to jsonb for lib/pq compatibility.
	// next_retry_at = created_at makes the row immediately eligible for polling.
	_, err := r.tx.ExecContext(ctx, insertOutboxSQL,
		msg.MessageID,
		msg.RoutingKey,
		string(msg.Body),
		msg.CreatedAt.UTC(),
	)
	return err
}
