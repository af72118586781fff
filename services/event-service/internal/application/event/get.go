package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/aggregate"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

// Visit identifies the public caller for view accounting.
type Visit struct {
	IP  string
	URI string
}

func (s *Service) OwnerEvent(ctx context.Context, initiatorID, eventID string) (*View, error) {
	if _, err := s.users.GetUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(initiatorID) {
		return nil, domain.ErrNotFound("event not found")
	}
	return s.enrichOne(ctx, ev)
}

// PublicEvent returns a published event and records one view of it.
func (s *Service) PublicEvent(ctx context.Context, eventID string, visit Visit) (*View, error) {
	log := logger.Ctx(ctx)
	key := cacheKeyEventDetails(eventID)

	var ev *domain.Event
	if s.cache != nil {
		var cached domain.Event
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if found {
			log.Debug().Str("key", key).Msg("cache hit")
			ev = &cached
		}
	}

	if ev == nil {
		var err error
		ev, err = s.events.GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if !ev.IsPublished() {
			return nil, domain.ErrNotFound("event not found")
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, ev, s.ttlDetails); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache set failed")
			}
		}
	}

	if visit.URI == "" {
		visit.URI = aggregate.EventURI(eventID)
	}
	s.recordHit(ctx, visit)

	return s.enrichOne(ctx, ev)
}

// Bump the version whenever the cached Event shape changes.
func cacheKeyEventDetails(id string) string { return "event:v2:details:" + id }

// recordHit is best-effort: a stats outage never fails a public read.
func (s *Service) recordHit(ctx context.Context, visit Visit) {
	err := s.stats.AddHit(ctx, ports.Hit{
		App:       s.app,
		URI:       visit.URI,
		IP:        visit.IP,
		Timestamp: s.now(),
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("uri", visit.URI).Msg("stats hit not recorded")
	}
}

// InvalidateEvent drops the cached public copy of an event.
func (s *Service) InvalidateEvent(ctx context.Context, eventID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKeyEventDetails(eventID))
}
