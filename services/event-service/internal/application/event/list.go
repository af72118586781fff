package event

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type SortMode string

const (
	SortNone      SortMode = ""
	SortEventDate SortMode = "EVENT_DATE"
	SortViews     SortMode = "VIEWS"
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case SortNone, SortEventDate, SortViews:
		return m, nil
	}
	return "", domain.ErrValidationMeta("invalid query param", map[string]string{
		"sort": "must be one of: EVENT_DATE, VIEWS",
	})
}

type AdminQuery struct {
	Users      []string
	States     []domain.EventState
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	Page       domain.Page
}

type PublicQuery struct {
	Text          string
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          SortMode
	Page          domain.Page
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.ErrValidationMeta("invalid query param", map[string]string{
			"rangeEnd": "must not be before rangeStart",
		})
	}
	return nil
}

func (s *Service) OwnerEvents(ctx context.Context, initiatorID string, page domain.Page) ([]View, error) {
	if _, err := s.users.GetUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByInitiator(ctx, initiatorID, page.Normalize())
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, events)
}

func (s *Service) AdminSearch(ctx context.Context, q AdminQuery) ([]View, error) {
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}
	events, err := s.events.SearchEvents(ctx, ports.EventFilter{
		Initiators: q.Users,
		States:     q.States,
		Categories: q.Categories,
		RangeStart: q.RangeStart,
		RangeEnd:   q.RangeEnd,
		Page:       q.Page.Normalize(),
	})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, events)
}

// PublicSearch lists published events and records exactly one hit for visit,
// however many events are returned.
func (s *Service) PublicSearch(ctx context.Context, q PublicQuery, visit Visit) ([]View, error) {
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}

	f := ports.EventFilter{
		States:     []domain.EventState{domain.StatePublished},
		Categories: q.Categories,
		RangeStart: q.RangeStart,
		RangeEnd:   q.RangeEnd,
		Text:       strings.TrimSpace(q.Text),
		Paid:       q.Paid,
		Page:       q.Page.Normalize(),
	}
	if f.RangeStart == nil && f.RangeEnd == nil {
		now := s.now()
		f.RangeStart = &now
	}

	s.recordHit(ctx, visit)

	events, err := s.events.SearchEvents(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, events)
	if err != nil {
		return nil, err
	}

	if q.OnlyAvailable {
		views = onlyAvailable(views)
	}
	sortViews(views, q.Sort)
	return views, nil
}

func onlyAvailable(views []View) []View {
	out := views[:0]
	for _, v := range views {
		limit := int64(v.Event.ParticipantLimit)
		if limit == 0 || v.ConfirmedRequests < limit {
			out = append(out, v)
		}
	}
	return out
}

func sortViews(views []View, mode SortMode) {
	switch mode {
	case SortEventDate:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Event.EventDate.Before(views[j].Event.EventDate)
		})
	case SortViews:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Views > views[j].Views
		})
	case SortNone:
	}
}
