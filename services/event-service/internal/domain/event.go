package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DateTimeLayout is the wire format for every timestamp crossing the HTTP boundary.
const DateTimeLayout = "2006-01-02 15:04:05"

const (
	OwnerEventDateMargin = 2 * time.Hour
	AdminEventDateMargin = 1 * time.Hour
)

type Location struct {
	ID  string
	Lat float64
	Lon float64
}

type Event struct {
	ID                string
	Title             string
	Annotation        string
	Description       string
	Category          Category
	Location          Location
	Paid              bool
	ParticipantLimit  int // 0 = unlimited
	RequestModeration bool

	State       EventState
	CreatedOn   time.Time
	PublishedOn *time.Time
	EventDate   time.Time

	Initiator UserShort
}

type NewEventInput struct {
	Title             string
	Annotation        string
	Description       string
	Category          Category
	Location          Location
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
	EventDate         time.Time
	Initiator         UserShort
}

func NewEvent(in NewEventInput, now time.Time) (*Event, error) {
	title, err := checkText("title", in.Title, 3, 120)
	if err != nil {
		return nil, err
	}
	annotation, err := checkText("annotation", in.Annotation, 20, 2000)
	if err != nil {
		return nil, err
	}
	description, err := checkText("description", in.Description, 20, 7000)
	if err != nil {
		return nil, err
	}
	if in.Category.ID == "" {
		return nil, ErrValidation("category is required")
	}
	if in.Initiator.ID == "" {
		return nil, ErrValidation("initiator is required")
	}
	if in.ParticipantLimit < 0 {
		return nil, ErrValidation("participantLimit must be >= 0 (0 means unlimited)")
	}
	if err := CheckEventDate(in.EventDate, now, OwnerEventDateMargin); err != nil {
		return nil, err
	}

	return &Event{
		ID:                uuid.NewString(),
		Title:             title,
		Annotation:        annotation,
		Description:       description,
		Category:          in.Category,
		Location:          in.Location,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: in.RequestModeration,
		State:             StatePending,
		CreatedOn:         now.UTC(),
		EventDate:         in.EventDate.UTC(),
		Initiator:         in.Initiator,
	}, nil
}

// CheckEventDate rejects dates closer to now than margin.
func CheckEventDate(date, now time.Time, margin time.Duration) error {
	if date.IsZero() {
		return ErrValidation("eventDate is required")
	}
	earliest := now.Add(margin)
	if date.Before(earliest) {
		return ErrForbiddenMeta(
			fmt.Sprintf("eventDate must be at least %s from now", margin),
			map[string]string{"eventDate": date.UTC().Format(DateTimeLayout)},
		)
	}
	return nil
}

func (e *Event) OwnedBy(userID string) bool { return userID != "" && e.Initiator.ID == userID }

func (e *Event) IsPublished() bool { return e.State == StatePublished }

// AutoConfirms reports whether requests skip the PENDING stage.
func (e *Event) AutoConfirms() bool { return !e.RequestModeration || e.ParticipantLimit == 0 }

// LimitExceeded reports whether confirming n more requests would overflow the limit.
func (e *Event) LimitExceeded(confirmed, n int) bool {
	return e.ParticipantLimit != 0 && confirmed+n > e.ParticipantLimit
}

// LimitReached reports whether total confirmations fill the event.
func (e *Event) LimitReached(total int) bool {
	return e.ParticipantLimit != 0 && total >= e.ParticipantLimit
}

// EnsureEditableByOwner guards every initiator-side mutation.
func (e *Event) EnsureEditableByOwner() error {
	if e.State == StatePublished {
		return ErrForbidden("only pending or canceled events can be changed")
	}
	return nil
}

func (e *Event) ApplyOwnerAction(a OwnerStateAction) error {
	switch a {
	case SendToReview:
		e.State = StatePending
	case CancelReview:
		e.State = StateCanceled
	default:
		return ErrValidationMeta("unknown stateAction", map[string]string{"stateAction": string(a)})
	}
	return nil
}

func (e *Event) ApplyAdminAction(a AdminStateAction, now time.Time) error {
	if e.State != StatePending {
		return ErrForbiddenMeta(
			fmt.Sprintf("cannot apply %s: event is not in the right state: %s", a, e.State),
			map[string]string{"state": string(e.State)},
		)
	}
	switch a {
	case PublishEvent:
		t := now.UTC()
		e.State = StatePublished
		e.PublishedOn = &t
	case RejectEvent:
		e.State = StateRejected
	default:
		return ErrValidationMeta("unknown stateAction", map[string]string{"stateAction": string(a)})
	}
	return nil
}

// EventPatch carries PATCH semantics: nil means unchanged.
// Category and Location must already be resolved by the caller.
type EventPatch struct {
	Title             *string
	Annotation        *string
	Description       *string
	Category          *Category
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	EventDate         *time.Time
}

// Apply validates every supplied field before touching e, so a rejected
// patch leaves the event unchanged.
func (p EventPatch) Apply(e *Event) error {
	next := *e

	if p.Title != nil {
		v, err := checkText("title", *p.Title, 3, 120)
		if err != nil {
			return err
		}
		next.Title = v
	}
	if p.Annotation != nil {
		v, err := checkText("annotation", *p.Annotation, 20, 2000)
		if err != nil {
			return err
		}
		next.Annotation = v
	}
	if p.Description != nil {
		v, err := checkText("description", *p.Description, 20, 7000)
		if err != nil {
			return err
		}
		next.Description = v
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Location != nil {
		next.Location = *p.Location
	}
	if p.Paid != nil {
		next.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		if *p.ParticipantLimit < 0 {
			return ErrValidation("participantLimit must be >= 0 (0 means unlimited)")
		}
		next.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		next.RequestModeration = *p.RequestModeration
	}
	if p.EventDate != nil {
		next.EventDate = p.EventDate.UTC()
	}

	*e = next
	return nil
}

func checkText(field, v string, min, max int) (string, error) {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	if n < min || n > max {
		return "", ErrValidationMeta(
			fmt.Sprintf("%s must be between %d and %d characters", field, min, max),
			map[string]string{"field": field},
		)
	}
	return v, nil
}
