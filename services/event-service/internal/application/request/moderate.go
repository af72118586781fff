package request

import (
	"context"
	"fmt"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type ModerateCmd struct {
	RequestIDs []string
	Status     domain.RequestStatus // CONFIRMED or REJECTED
}

type ModerationResult struct {
	Confirmed []*domain.Request
	Rejected  []*domain.Request
}

func emptyResult() *ModerationResult {
	return &ModerationResult{Confirmed: []*domain.Request{}, Rejected: []*domain.Request{}}
}

// Moderate confirms or rejects a batch of PENDING requests for one event.
// Confirming up to the participant limit rejects every request still
// PENDING for that event in the same transaction.
func (s *Service) Moderate(ctx context.Context, ownerID, eventID string, cmd ModerateCmd) (*ModerationResult, error) {
	if cmd.Status != domain.RequestConfirmed && cmd.Status != domain.RequestRejected {
		return nil, domain.ErrValidationMeta("status must be CONFIRMED or REJECTED", map[string]string{"status": string(cmd.Status)})
	}
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	ids := dedupe(cmd.RequestIDs)
	res := emptyResult()
	cascaded := 0

	err := s.tx.WithTx(ctx, func(tx ports.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.OwnedBy(ownerID) {
			return domain.ErrForbidden("only the initiator can moderate requests")
		}
		if ev.AutoConfirms() || len(ids) == 0 {
			return nil
		}

		reqs, err := tx.GetRequestsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(reqs) != len(ids) {
			return domain.ErrNotFound("some requests were not found")
		}
		for _, r := range reqs {
			if r.EventID != eventID {
				return domain.ErrNotFoundMeta("request not found for this event", map[string]string{"requestId": r.ID})
			}
			if !r.IsPending() {
				return domain.ErrForbiddenMeta("only pending requests can be moderated", map[string]string{
					"requestId": r.ID,
					"status":    string(r.Status),
				})
			}
		}

		if cmd.Status == domain.RequestRejected {
			if err := tx.SetRequestStatus(ctx, ids, domain.RequestRejected); err != nil {
				return err
			}
			res.Rejected = withStatus(reqs, domain.RequestRejected)
			return s.emitModerated(ctx, tx, eventID, res)
		}

		confirmed, err := tx.CountConfirmed(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.LimitExceeded(confirmed, len(ids)) {
			return domain.ErrForbiddenMeta(
				fmt.Sprintf("participant limit reached: %d", ev.ParticipantLimit),
				map[string]string{
					"participantLimit":  strconv.Itoa(ev.ParticipantLimit),
					"confirmedRequests": strconv.Itoa(confirmed),
				},
			)
		}
		if err := tx.SetRequestStatus(ctx, ids, domain.RequestConfirmed); err != nil {
			return err
		}
		res.Confirmed = withStatus(reqs, domain.RequestConfirmed)

		if ev.LimitReached(confirmed + len(ids)) {
			// The batch above is already CONFIRMED, so it cannot show up here.
			rest, err := tx.ListRequestsByStatus(ctx, eventID, domain.RequestPending)
			if err != nil {
				return err
			}
			if len(rest) > 0 {
				if err := tx.SetRequestStatus(ctx, requestIDs(rest), domain.RequestRejected); err != nil {
					return err
				}
			}
			res.Rejected = withStatus(rest, domain.RequestRejected)
			cascaded = len(rest)
		}
		return s.emitModerated(ctx, tx, eventID, res)
	})
	if err != nil {
		return nil, err
	}

	if n := len(res.Confirmed) + len(res.Rejected); n > 0 {
		moderatedTotal.WithLabelValues("confirmed").Add(float64(len(res.Confirmed)))
		moderatedTotal.WithLabelValues("rejected").Add(float64(len(res.Rejected) - cascaded))
		moderatedTotal.WithLabelValues("cascade_rejected").Add(float64(cascaded))
		s.audit.RequestsModerated(ctx, eventID, ownerID, requestIDs(res.Confirmed), requestIDs(res.Rejected), cascaded)
	}
	return res, nil
}

func (s *Service) emitModerated(ctx context.Context, tx ports.Tx, eventID string, res *ModerationResult) error {
	msg, err := ports.NewOutboxMessage(ctx, ports.RKRequestsModerated, ModeratedPayload{
		EventID:   eventID,
		Confirmed: requestIDs(res.Confirmed),
		Rejected:  requestIDs(res.Rejected),
	}, s.now())
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, msg)
}

func withStatus(reqs []*domain.Request, st domain.RequestStatus) []*domain.Request {
	out := make([]*domain.Request, 0, len(reqs))
	for _, r := range reqs {
		cp := *r
		cp.Status = st
		out = append(out, &cp)
	}
	return out
}

func requestIDs(reqs []*domain.Request) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
