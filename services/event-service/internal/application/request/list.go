package request

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

func (s *Service) ListOwn(ctx context.Context, requesterID string) ([]*domain.Request, error) {
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.requests.ListRequestsByRequester(ctx, requesterID)
}

// ListForEvent returns every request on an event the caller initiated.
// Someone else's event is reported as missing.
func (s *Service) ListForEvent(ctx context.Context, ownerID, eventID string) ([]*domain.Request, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(ownerID) {
		return nil, domain.ErrNotFound("event not found")
	}
	return s.requests.ListRequestsByEvent(ctx, eventID)
}
