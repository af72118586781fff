package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Request is a user's application to attend an event.
type Request struct {
	ID          string
	EventID     string
	RequesterID string
	Created     time.Time
	Status      RequestStatus
}

// CheckRequestable covers the rules that depend only on the event and the requester.
func (e *Event) CheckRequestable(requesterID string) error {
	if e.OwnedBy(requesterID) {
		return ErrForbidden("initiator cannot request participation in own event")
	}
	if !e.IsPublished() {
		return ErrForbiddenMeta("event is not published", map[string]string{"state": string(e.State)})
	}
	return nil
}

// NewRequest builds a participation request given the event's current confirmed count.
func NewRequest(e *Event, requesterID string, confirmed int, now time.Time) (*Request, error) {
	if err := e.CheckRequestable(requesterID); err != nil {
		return nil, err
	}
	if e.LimitExceeded(confirmed, 1) {
		return nil, ErrForbiddenMeta(
			fmt.Sprintf("participant limit reached: %d", e.ParticipantLimit),
			map[string]string{"participantLimit": strconv.Itoa(e.ParticipantLimit)},
		)
	}

	status := RequestPending
	if e.AutoConfirms() {
		status = RequestConfirmed
	}
	return &Request{
		ID:          uuid.NewString(),
		EventID:     e.ID,
		RequesterID: requesterID,
		Created:     now.UTC(),
		Status:      status,
	}, nil
}

// Cancel is always allowed for the requester, whatever the current status.
func (r *Request) Cancel(requesterID string) error {
	if r.RequesterID != requesterID {
		return ErrForbidden("only the requester can cancel a request")
	}
	r.Status = RequestCanceled
	return nil
}

func (r *Request) IsPending() bool { return r.Status == RequestPending }
