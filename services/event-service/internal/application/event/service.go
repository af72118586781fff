package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/aggregate"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type Deps struct {
	Tx         ports.TxRunner
	Events     ports.EventReader
	Users      ports.Users
	Categories ports.Categories
	Aggregator *aggregate.Aggregator
	Stats      ports.StatsClient
	Cache      ports.Cache // optional
	Clock      ports.Clock
	Audit      *audit.Logger

	// AppName is reported to the stats collaborator with every hit.
	AppName    string
	TTLDetails time.Duration
}

type Service struct {
	tx     ports.TxRunner
	events ports.EventReader
	users  ports.Users
	cats   ports.Categories
	agg    *aggregate.Aggregator
	stats  ports.StatsClient
	cache  ports.Cache
	clock  ports.Clock
	audit  *audit.Logger

	app        string
	ttlDetails time.Duration
}

func New(d Deps) *Service {
	if d.TTLDetails == 0 {
		d.TTLDetails = 5 * time.Minute
	}
	if d.AppName == "" {
		d.AppName = "ewm-main-service"
	}
	if d.Audit == nil {
		d.Audit = audit.Default()
	}
	return &Service{
		tx:         d.Tx,
		events:     d.Events,
		users:      d.Users,
		cats:       d.Categories,
		agg:        d.Aggregator,
		stats:      d.Stats,
		cache:      d.Cache,
		clock:      d.Clock,
		audit:      d.Audit,
		app:        d.AppName,
		ttlDetails: d.TTLDetails,
	}
}

// View is an event with its aggregate counters filled in.
type View struct {
	Event             *domain.Event
	ConfirmedRequests int64
	Views             int64
}

func (s *Service) enrich(ctx context.Context, events []*domain.Event) ([]View, error) {
	c, err := s.agg.Collect(ctx, events)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(events))
	for _, e := range events {
		out = append(out, View{Event: e, ConfirmedRequests: c.ConfirmedOf(e.ID), Views: c.ViewsOf(e.ID)})
	}
	return out, nil
}

func (s *Service) enrichOne(ctx context.Context, e *domain.Event) (*View, error) {
	views, err := s.enrich(ctx, []*domain.Event{e})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }
