package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct {
	db *sql.DB
}

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func scanEvent(s scanner) (*domain.Event, error) {
	var e domain.Event
	var state string
	err := s.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &state, &e.CreatedOn, &e.PublishedOn, &e.EventDate,
		&e.Category.ID, &e.Category.Name, &e.Initiator.ID, &e.Initiator.Name,
		&e.Location.ID, &e.Location.Lat, &e.Location.Lon,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	if !e.State.Valid() {
		return nil, domain.ErrInvalidState("invalid event state in db")
	}
	e.CreatedOn = e.CreatedOn.UTC()
	e.EventDate = e.EventDate.UTC()
	if e.PublishedOn != nil {
		t := e.PublishedOn.UTC()
		e.PublishedOn = &t
	}
	return &e, nil
}

func getEvent(ctx context.Context, q querier, query, id string) (*domain.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]*domain.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, r.db, getEventSQL, id)
}

func (r *Repo) ListByInitiator(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.Event, error) {
	page = page.Normalize()
	return queryEvents(ctx, r.db, listByInitiatorSQL, initiatorID, page.Size, page.From)
}

// SearchEvents builds the WHERE clause from whichever predicates are set.
func (r *Repo) SearchEvents(ctx context.Context, f ports.EventFilter) ([]*domain.Event, error) {
	query, args := buildSearch(f)
	return queryEvents(ctx, r.db, query, args...)
}

func buildSearch(f ports.EventFilter) (string, []any) {
	var where []string
	var args []any
	add := func(condFmt string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(condFmt, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if len(f.Initiators) > 0 {
		add("e.initiator_id = ANY($?::uuid[])", pq.Array(f.Initiators))
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		add("e.state = ANY($?)", pq.Array(states))
	}
	if len(f.Categories) > 0 {
		add("e.category_id = ANY($?::uuid[])", pq.Array(f.Categories))
	}
	if f.RangeStart != nil {
		add("e.event_date >= $?", f.RangeStart.UTC())
	}
	if f.RangeEnd != nil {
		add("e.event_date <= $?", f.RangeEnd.UTC())
	}
	if f.Text != "" {
		add("(e.annotation ILIKE $? OR e.description ILIKE $?)", "%"+escapeLike(f.Text)+"%")
	}
	if f.Paid != nil {
		add("e.paid = $?", *f.Paid)
	}

	var b strings.Builder
	b.WriteString(eventSelectSQL)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	page := f.Page.Normalize()
	args = append(args, page.Size, page.From)
	fmt.Fprintf(&b, "\nORDER BY e.created_on, e.id\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repo) ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	if len(eventIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, confirmedCountsSQL, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
