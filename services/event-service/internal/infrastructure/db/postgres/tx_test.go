package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF e")).
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", "PENDING", nil))
	mock.ExpectExec("UPDATE events SET").
		WithArgs("ev-1", "Jazz night", sqlmock.AnyArg(), sqlmock.AnyArg(), "cat-1", "loc-1",
			false, 5, true, "PUBLISHED", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO event_outbox").
		WithArgs("m-1", "event.published", `{"x":1}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithTx(ctx, func(tx ports.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, "ev-1")
		if err != nil {
			return err
		}
		if err := ev.ApplyAdminAction(domain.PublishEvent, time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		return tx.InsertOutbox(ctx, ports.OutboxMessage{
			MessageID: "m-1", RoutingKey: "event.published", Body: []byte(`{"x":1}`), CreatedAt: time.Now(),
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	repo, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(tx ports.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = repo.WithTx(context.Background(), func(tx ports.Tx) error { panic("bad") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRepo_Requests(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	created := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	reqCols := []string{"id", "event_id", "requester_id", "created", "status"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO requests").
		WithArgs("r1", "ev-1", "u1", created, "PENDING").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.WithTx(ctx, func(tx ports.Tx) error {
		return tx.InsertRequest(ctx, &domain.Request{ID: "r1", EventID: "ev-1", RequesterID: "u1", Created: created, Status: domain.RequestPending})
	})
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err), "unique (event, requester) maps to forbidden")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1::uuid[])")).
		WithArgs(pq.Array([]string{"r1", "r2"})).
		WillReturnRows(sqlmock.NewRows(reqCols).
			AddRow("r1", "ev-1", "u1", created, "PENDING").
			AddRow("r2", "ev-1", "u2", created, "PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status = $1")).
		WithArgs("CONFIRMED", pq.Array([]string{"r1", "r2"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = repo.WithTx(ctx, func(tx ports.Tx) error {
		reqs, err := tx.GetRequestsByIDs(ctx, []string{"r1", "r2"})
		if err != nil {
			return err
		}
		require.Len(t, reqs, 2)
		assert.Equal(t, domain.RequestPending, reqs[1].Status)
		return tx.SetRequestStatus(ctx, []string{"r1", "r2"}, domain.RequestConfirmed)
	})
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err), "partial update is reported and rolled back")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM requests")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO locations")).
		WithArgs(sqlmock.AnyArg(), 1.5, 2.5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("loc-9"))
	mock.ExpectCommit()

	err = repo.WithTx(ctx, func(tx ports.Tx) error {
		n, err := tx.CountConfirmed(ctx, "ev-1")
		if err != nil {
			return err
		}
		assert.Equal(t, 3, n)
		loc, err := tx.ResolveLocation(ctx, 1.5, 2.5)
		if err != nil {
			return err
		}
		assert.Equal(t, domain.Location{ID: "loc-9", Lat: 1.5, Lon: 2.5}, loc)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
