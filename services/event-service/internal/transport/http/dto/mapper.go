package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/request"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

func FormatTime(t time.Time) string { return t.UTC().Format(domain.DateTimeLayout) }

// ParseTime reads a boundary timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(domain.DateTimeLayout, s, time.UTC)
}

func ToCategory(c *domain.Category) CategoryDto { return CategoryDto{ID: c.ID, Name: c.Name} }

func ToUser(u *domain.User) UserDto { return UserDto{ID: u.ID, Name: u.Name, Email: u.Email} }

func ToEventShort(v event.View) EventShortDto {
	e := v.Event
	return EventShortDto{
		ID:                e.ID,
		Annotation:        e.Annotation,
		Category:          CategoryDto{ID: e.Category.ID, Name: e.Category.Name},
		ConfirmedRequests: v.ConfirmedRequests,
		EventDate:         FormatTime(e.EventDate),
		Initiator:         UserShortDto{ID: e.Initiator.ID, Name: e.Initiator.Name},
		Paid:              e.Paid,
		Title:             e.Title,
		Views:             v.Views,
	}
}

func ToEventFull(v event.View) EventFullDto {
	e := v.Event
	out := EventFullDto{
		EventShortDto:     ToEventShort(v),
		CreatedOn:         FormatTime(e.CreatedOn),
		Description:       e.Description,
		Location:          LocationResp{Lat: e.Location.Lat, Lon: e.Location.Lon},
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		State:             string(e.State),
	}
	if e.PublishedOn != nil {
		s := FormatTime(*e.PublishedOn)
		out.PublishedOn = &s
	}
	return out
}

func ToEventShorts(vs []event.View) []EventShortDto {
	out := make([]EventShortDto, 0, len(vs))
	for _, v := range vs {
		out = append(out, ToEventShort(v))
	}
	return out
}

func ToEventFulls(vs []event.View) []EventFullDto {
	out := make([]EventFullDto, 0, len(vs))
	for _, v := range vs {
		out = append(out, ToEventFull(v))
	}
	return out
}

func ToRequest(r *domain.Request) ParticipationRequestDto {
	return ParticipationRequestDto{
		ID:        r.ID,
		Created:   FormatTime(r.Created),
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    string(r.Status),
	}
}

func ToRequests(rs []*domain.Request) []ParticipationRequestDto {
	out := make([]ParticipationRequestDto, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToRequest(r))
	}
	return out
}

func ToModerationResult(res *request.ModerationResult) RequestStatusUpdateResult {
	return RequestStatusUpdateResult{
		ConfirmedRequests: ToRequests(res.Confirmed),
		RejectedRequests:  ToRequests(res.Rejected),
	}
}
