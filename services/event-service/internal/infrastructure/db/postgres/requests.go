package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

func scanRequest(s scanner) (*domain.Request, error) {
	var r domain.Request
	var status string
	if err := s.Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Created, &status); err != nil {
		return nil, err
	}
	r.Status = domain.RequestStatus(status)
	if !r.Status.Valid() {
		return nil, domain.ErrInvalidState("invalid request status in db")
	}
	r.Created = r.Created.UTC()
	return &r, nil
}

func queryRequests(ctx context.Context, q querier, query string, args ...any) ([]*domain.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *Repo) ListRequestsByRequester(ctx context.Context, requesterID string) ([]*domain.Request, error) {
	return queryRequests(ctx, r.db, requestsByRequesterSQL, requesterID)
}

func (r *Repo) ListRequestsByEvent(ctx context.Context, eventID string) ([]*domain.Request, error) {
	return queryRequests(ctx, r.db, requestsByEventSQL, eventID)
}

func getRequest(ctx context.Context, q querier, query, id string) (*domain.Request, error) {
	req, err := scanRequest(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("request not found")
	}
	return req, err
}
