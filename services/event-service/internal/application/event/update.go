package event

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

// PatchCmd carries the fields both owners and admins may change; nil means unchanged.
type PatchCmd struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *string
	Location          *LocationInput
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	EventDate         *time.Time
}

type OwnerPatchCmd struct {
	PatchCmd
	StateAction *domain.OwnerStateAction
}

type AdminPatchCmd struct {
	PatchCmd
	StateAction *domain.AdminStateAction
}

func (s *Service) PatchByOwner(ctx context.Context, initiatorID, eventID string, cmd OwnerPatchCmd) (*View, error) {
	if _, err := s.users.GetUser(ctx, initiatorID); err != nil {
		return nil, err
	}

	var from, to domain.EventState
	err := s.tx.WithTx(ctx, func(tx ports.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.OwnedBy(initiatorID) {
			return domain.ErrNotFound("event not found")
		}
		if err := ev.EnsureEditableByOwner(); err != nil {
			return err
		}
		if cmd.EventDate != nil {
			if err := domain.CheckEventDate(*cmd.EventDate, s.now(), domain.OwnerEventDateMargin); err != nil {
				return err
			}
		}

		patch, err := s.resolvePatch(ctx, tx, cmd.PatchCmd)
		if err != nil {
			return err
		}
		if err := patch.Apply(ev); err != nil {
			return err
		}

		from = ev.State
		if cmd.StateAction != nil {
			if err := ev.ApplyOwnerAction(*cmd.StateAction); err != nil {
				return err
			}
		}
		to = ev.State
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if from != to && to == domain.StateCanceled {
			return s.emitState(ctx, tx, ports.RKEventCanceled, ev, "initiator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != to {
		s.audit.EventStateChanged(ctx, eventID, "initiator", string(from), string(to))
	}

	return s.afterPatch(ctx, eventID)
}

func (s *Service) PatchByAdmin(ctx context.Context, eventID string, cmd AdminPatchCmd) (*View, error) {
	var from, to domain.EventState
	err := s.tx.WithTx(ctx, func(tx ports.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		now := s.now()
		if cmd.EventDate != nil {
			if err := domain.CheckEventDate(*cmd.EventDate, now, domain.AdminEventDateMargin); err != nil {
				return err
			}
		}
		if cmd.ParticipantLimit != nil && *cmd.ParticipantLimit > 0 {
			confirmed, err := tx.CountConfirmed(ctx, ev.ID)
			if err != nil {
				return err
			}
			if *cmd.ParticipantLimit < confirmed {
				return domain.ErrForbiddenMeta(
					fmt.Sprintf("participantLimit cannot be lower than %d confirmed requests", confirmed),
					map[string]string{"confirmedRequests": strconv.Itoa(confirmed)},
				)
			}
		}

		patch, err := s.resolvePatch(ctx, tx, cmd.PatchCmd)
		if err != nil {
			return err
		}
		if err := patch.Apply(ev); err != nil {
			return err
		}

		from = ev.State
		if cmd.StateAction != nil {
			if err := ev.ApplyAdminAction(*cmd.StateAction, now); err != nil {
				return err
			}
		}
		to = ev.State
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if from == to {
			return nil
		}

		rk := ports.RKEventRejected
		if to == domain.StatePublished {
			rk = ports.RKEventPublished
		}
		return s.emitState(ctx, tx, rk, ev, "admin")
	})
	if err != nil {
		return nil, err
	}
	if from != to {
		s.audit.EventStateChanged(ctx, eventID, "admin", string(from), string(to))
	}

	return s.afterPatch(ctx, eventID)
}

// resolvePatch turns ids and coordinates into the references the domain expects.
func (s *Service) resolvePatch(ctx context.Context, tx ports.Tx, cmd PatchCmd) (domain.EventPatch, error) {
	p := domain.EventPatch{
		Title:             cmd.Title,
		Annotation:        cmd.Annotation,
		Description:       cmd.Description,
		Paid:              cmd.Paid,
		ParticipantLimit:  cmd.ParticipantLimit,
		RequestModeration: cmd.RequestModeration,
		EventDate:         cmd.EventDate,
	}
	if cmd.CategoryID != nil {
		cat, err := s.cats.GetCategory(ctx, *cmd.CategoryID)
		if err != nil {
			return p, err
		}
		p.Category = cat
	}
	if cmd.Location != nil {
		loc, err := tx.ResolveLocation(ctx, cmd.Location.Lat, cmd.Location.Lon)
		if err != nil {
			return p, err
		}
		p.Location = &loc
	}
	return p, nil
}

func (s *Service) emitState(ctx context.Context, tx ports.Tx, routingKey string, ev *domain.Event, actor string) error {
	msg, err := ports.NewOutboxMessage(ctx, routingKey, EventStatePayload{
		EventID:     ev.ID,
		InitiatorID: ev.Initiator.ID,
		Title:       ev.Title,
		CategoryID:  ev.Category.ID,
		EventDate:   ev.EventDate,
		State:       string(ev.State),
		PublishedOn: ev.PublishedOn,
		Actor:       actor,
	}, s.now())
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, msg)
}

// afterPatch drops the cached public copy and returns a fresh, enriched read.
func (s *Service) afterPatch(ctx context.Context, eventID string) (*View, error) {
	if err := s.InvalidateEvent(ctx, eventID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event_id", eventID).Msg("cache invalidate failed")
	}

	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, ev)
}
