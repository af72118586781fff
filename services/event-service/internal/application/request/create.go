package request

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

func (s *Service) Create(ctx context.Context, requesterID, eventID string) (*domain.Request, error) {
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}

	var out *domain.Request
	err := s.tx.WithTx(ctx, func(tx ports.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := ev.CheckRequestable(requesterID); err != nil {
			return err
		}

		exists, err := tx.RequestExists(ctx, eventID, requesterID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrForbidden("participation request already exists")
		}

		confirmed, err := tx.CountConfirmed(ctx, eventID)
		if err != nil {
			return err
		}
		r, err := domain.NewRequest(ev, requesterID, confirmed, s.now())
		if err != nil {
			return err
		}
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}

		msg, err := ports.NewOutboxMessage(ctx, ports.RKRequestCreated, RequestPayload{
			RequestID:   r.ID,
			EventID:     r.EventID,
			RequesterID: r.RequesterID,
			Status:      string(r.Status),
		}, s.now())
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RequestCreated(ctx, out.ID, out.EventID, out.RequesterID, string(out.Status))
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, requesterID, requestID string) (*domain.Request, error) {
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}

	var out *domain.Request
	err := s.tx.WithTx(ctx, func(tx ports.Tx) error {
		r, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := r.Cancel(requesterID); err != nil {
			return err
		}
		if err := tx.SetRequestStatus(ctx, []string{r.ID}, r.Status); err != nil {
			return err
		}

		msg, err := ports.NewOutboxMessage(ctx, ports.RKRequestCanceled, RequestPayload{
			RequestID:   r.ID,
			EventID:     r.EventID,
			RequesterID: r.RequesterID,
			Status:      string(r.Status),
		}, s.now())
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RequestCanceled(ctx, out.ID, requesterID)
	return out, nil
}
