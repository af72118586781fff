package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type LocationInput struct {
	Lat float64
	Lon float64
}

type CreateCmd struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        string
	Location          LocationInput
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
	EventDate         time.Time
}

func (s *Service) Create(ctx context.Context, initiatorID string, cmd CreateCmd) (*View, error) {
	now := s.now()
	if err := domain.CheckEventDate(cmd.EventDate, now, domain.OwnerEventDateMargin); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	cat, err := s.cats.GetCategory(ctx, cmd.CategoryID)
	if err != nil {
		return nil, err
	}

	var ev *domain.Event
	err = s.tx.WithTx(ctx, func(tx ports.Tx) error {
		loc, err := tx.ResolveLocation(ctx, cmd.Location.Lat, cmd.Location.Lon)
		if err != nil {
			return err
		}
		ev, err = domain.NewEvent(domain.NewEventInput{
			Title:             cmd.Title,
			Annotation:        cmd.Annotation,
			Description:       cmd.Description,
			Category:          *cat,
			Location:          loc,
			Paid:              cmd.Paid,
			ParticipantLimit:  cmd.ParticipantLimit,
			RequestModeration: cmd.RequestModeration,
			EventDate:         cmd.EventDate,
			Initiator:         user.Short(),
		}, now)
		if err != nil {
			return err
		}
		return tx.InsertEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.audit.EventCreated(ctx, ev.ID, initiatorID)
	return &View{Event: ev}, nil
}
