// Package aggregate computes the per-event counters shown next to every event:
// confirmed participation requests and public views.
package aggregate

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

const eventURIPrefix = "/events/"

// EventURI is the stats uri under which views of one event are recorded.
func EventURI(eventID string) string { return eventURIPrefix + eventID }

type Aggregator struct {
	counts ports.ConfirmedCounter
	stats  ports.StatsClient
	clock  ports.Clock
}

func New(counts ports.ConfirmedCounter, stats ports.StatsClient, clock ports.Clock) *Aggregator {
	return &Aggregator{counts: counts, stats: stats, clock: clock}
}

// Counters holds sparse maps keyed by event id; read them through the accessors.
type Counters struct {
	Confirmed map[string]int64
	Views     map[string]int64
}

func (c Counters) ConfirmedOf(id string) int64 { return c.Confirmed[id] }
func (c Counters) ViewsOf(id string) int64     { return c.Views[id] }

// Collect returns both counters for events. A stats failure is logged and
// reported as no views; a storage failure is returned.
func (a *Aggregator) Collect(ctx context.Context, events []*domain.Event) (Counters, error) {
	confirmed, err := a.ConfirmedRequests(ctx, events)
	if err != nil {
		return Counters{}, err
	}
	views, err := a.Views(ctx, events)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int("events", len(events)).Msg("view counts unavailable")
		views = map[string]int64{}
	}
	return Counters{Confirmed: confirmed, Views: views}, nil
}

// ConfirmedRequests counts CONFIRMED requests for published events only.
// Events that were never published are never queried.
func (a *Aggregator) ConfirmedRequests(ctx context.Context, events []*domain.Event) (map[string]int64, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.PublishedOn != nil {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}
	return a.counts.ConfirmedCounts(ctx, ids)
}

// Views asks the stats collaborator for hits on /events/{id} between the
// earliest publication among events and now.
func (a *Aggregator) Views(ctx context.Context, events []*domain.Event) (map[string]int64, error) {
	out := map[string]int64{}

	var start *domain.Event
	uris := make([]string, 0, len(events))
	for _, e := range events {
		uris = append(uris, EventURI(e.ID))
		if e.PublishedOn == nil {
			continue
		}
		if start == nil || e.PublishedOn.Before(*start.PublishedOn) {
			start = e
		}
	}
	if start == nil {
		return out, nil
	}

	stats, err := a.stats.ViewCounts(ctx, *start.PublishedOn, a.clock.Now().UTC(), uris, true)
	if err != nil {
		return nil, err
	}
	for _, s := range stats {
		id, ok := strings.CutPrefix(s.URI, eventURIPrefix)
		if !ok || id == "" {
			continue
		}
		out[id] += s.Hits
	}
	return out, nil
}
