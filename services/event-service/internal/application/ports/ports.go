// Package ports declares what the application services need from storage,
// the stats collaborator and the outside world.
package ports

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}

// Tx is a read-write unit of work. Everything done through one Tx commits or
// rolls back together.
type Tx interface {
	ResolveLocation(ctx context.Context, lat, lon float64) (domain.Location, error)
	InsertEvent(ctx context.Context, e *domain.Event) error
	// GetEventForUpdate locks the event row until the transaction ends, which
	// serialises capacity checks for the same event.
	GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error)
	UpdateEvent(ctx context.Context, e *domain.Event) error
	CountConfirmed(ctx context.Context, eventID string) (int, error)

	GetRequestForUpdate(ctx context.Context, id string) (*domain.Request, error)
	RequestExists(ctx context.Context, eventID, requesterID string) (bool, error)
	InsertRequest(ctx context.Context, r *domain.Request) error
	GetRequestsByIDs(ctx context.Context, ids []string) ([]*domain.Request, error)
	ListRequestsByStatus(ctx context.Context, eventID string, st domain.RequestStatus) ([]*domain.Request, error)
	SetRequestStatus(ctx context.Context, ids []string, st domain.RequestStatus) error

	InsertOutbox(ctx context.Context, m OutboxMessage) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// EventFilter is a conjunction of optional predicates; empty slices and nil
// pointers are ignored.
type EventFilter struct {
	Initiators []string
	States     []domain.EventState
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	Text       string
	Paid       *bool
	Page       domain.Page
}

type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListByInitiator(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.Event, error)
	SearchEvents(ctx context.Context, f EventFilter) ([]*domain.Event, error)
}

type ConfirmedCounter interface {
	// ConfirmedCounts returns a sparse map: events without confirmed requests are absent.
	ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int64, error)
}

type RequestReader interface {
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]*domain.Request, error)
	ListRequestsByEvent(ctx context.Context, eventID string) ([]*domain.Request, error)
}

type Users interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type Categories interface {
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
}

type Hit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

type ViewStat struct {
	App  string
	URI  string
	Hits int64
}

type StatsClient interface {
	AddHit(ctx context.Context, h Hit) error
	ViewCounts(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ViewStat, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
