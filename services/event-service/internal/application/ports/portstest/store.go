// Package portstest provides in-memory implementations of the application
// ports for service-level tests.
package portstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/google/uuid"
)

// Store keeps events, requests, users and categories in maps. WithTx snapshots
// the maps and restores them when fn fails, mimicking a rollback.
type Store struct {
	mu sync.Mutex

	Events     map[string]*domain.Event
	Requests   map[string]*domain.Request
	Users      map[string]*domain.User
	Categories map[string]*domain.Category
	Locations  map[string]domain.Location
	Outbox     []ports.OutboxMessage

	order []string // event insertion order
}

func NewStore() *Store {
	return &Store{
		Events:     map[string]*domain.Event{},
		Requests:   map[string]*domain.Request{},
		Users:      map[string]*domain.User{},
		Categories: map[string]*domain.Category{},
		Locations:  map[string]domain.Location{},
	}
}

func (s *Store) AddUser(id, name string) *domain.User {
	u := &domain.User{ID: id, Name: name, Email: id + "@example.com"}
	s.Users[id] = u
	return u
}

func (s *Store) AddCategory(id, name string) *domain.Category {
	c := &domain.Category{ID: id, Name: name}
	s.Categories[id] = c
	return c
}

func (s *Store) PutEvent(e *domain.Event) {
	if _, ok := s.Events[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	cp := *e
	s.Events[e.ID] = &cp
}

func (s *Store) PutRequest(r *domain.Request) {
	cp := *r
	s.Requests[r.ID] = &cp
}

// RequestsWith returns stored requests of eventID in the given status, sorted by id.
func (s *Store) RequestsWith(eventID string, st domain.RequestStatus) []*domain.Request {
	var out []*domain.Request
	for _, r := range s.Requests {
		if r.EventID == eventID && r.Status == st {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) WithTx(ctx context.Context, fn func(ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	events    map[string]domain.Event
	requests  map[string]domain.Request
	locations map[string]domain.Location
	outbox    int
	order     int
}

func (s *Store) snapshot() snapshot {
	sn := snapshot{
		events:    map[string]domain.Event{},
		requests:  map[string]domain.Request{},
		locations: map[string]domain.Location{},
		outbox:    len(s.Outbox),
		order:     len(s.order),
	}
	for k, v := range s.Events {
		sn.events[k] = *v
	}
	for k, v := range s.Requests {
		sn.requests[k] = *v
	}
	for k, v := range s.Locations {
		sn.locations[k] = v
	}
	return sn
}

func (s *Store) restore(sn snapshot) {
	s.Events = map[string]*domain.Event{}
	for k, v := range sn.events {
		v := v
		s.Events[k] = &v
	}
	s.Requests = map[string]*domain.Request{}
	for k, v := range sn.requests {
		v := v
		s.Requests[k] = &v
	}
	s.Locations = sn.locations
	s.Outbox = s.Outbox[:sn.outbox]
	s.order = s.order[:sn.order]
}

// ---- ports.Tx ----

func (s *Store) ResolveLocation(ctx context.Context, lat, lon float64) (domain.Location, error) {
	key := fmt.Sprintf("%f:%f", lat, lon)
	if l, ok := s.Locations[key]; ok {
		return l, nil
	}
	l := domain.Location{ID: uuid.NewString(), Lat: lat, Lon: lon}
	s.Locations[key] = l
	return l, nil
}

func (s *Store) InsertEvent(ctx context.Context, e *domain.Event) error {
	s.PutEvent(e)
	return nil
}

func (s *Store) GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return s.getEvent(id)
}

func (s *Store) UpdateEvent(ctx context.Context, e *domain.Event) error {
	if _, ok := s.Events[e.ID]; !ok {
		return domain.ErrNotFound("event not found")
	}
	s.PutEvent(e)
	return nil
}

func (s *Store) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return len(s.RequestsWith(eventID, domain.RequestConfirmed)), nil
}

func (s *Store) GetRequestForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	r, ok := s.Requests[id]
	if !ok {
		return nil, domain.ErrNotFound("request not found")
	}
	cp := *r
	return &cp, nil
}

func (s *Store) RequestExists(ctx context.Context, eventID, requesterID string) (bool, error) {
	for _, r := range s.Requests {
		if r.EventID == eventID && r.RequesterID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) InsertRequest(ctx context.Context, r *domain.Request) error {
	s.PutRequest(r)
	return nil
}

func (s *Store) GetRequestsByIDs(ctx context.Context, ids []string) ([]*domain.Request, error) {
	var out []*domain.Request
	for _, id := range ids {
		if r, ok := s.Requests[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListRequestsByStatus(ctx context.Context, eventID string, st domain.RequestStatus) ([]*domain.Request, error) {
	return s.RequestsWith(eventID, st), nil
}

func (s *Store) SetRequestStatus(ctx context.Context, ids []string, st domain.RequestStatus) error {
	for _, id := range ids {
		r, ok := s.Requests[id]
		if !ok {
			return domain.ErrNotFound("request not found")
		}
		r.Status = st
	}
	return nil
}

func (s *Store) InsertOutbox(ctx context.Context, m ports.OutboxMessage) error {
	s.Outbox = append(s.Outbox, m)
	return nil
}

// RoutingKeys lists the routing keys written to the outbox, in order.
func (s *Store) RoutingKeys() []string {
	out := make([]string, 0, len(s.Outbox))
	for _, m := range s.Outbox {
		out = append(out, m.RoutingKey)
	}
	return out
}

// ---- readers ----

func (s *Store) getEvent(id string) (*domain.Event, error) {
	e, ok := s.Events[id]
	if !ok {
		return nil, domain.ErrNotFound("event not found")
	}
	cp := *e
	return &cp, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.getEvent(id)
}

func (s *Store) ListByInitiator(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.Event, error) {
	var all []*domain.Event
	for _, id := range s.order {
		if e := s.Events[id]; e.Initiator.ID == initiatorID {
			cp := *e
			all = append(all, &cp)
		}
	}
	return paginate(all, page), nil
}

func (s *Store) SearchEvents(ctx context.Context, f ports.EventFilter) ([]*domain.Event, error) {
	var all []*domain.Event
	for _, id := range s.order {
		e := s.Events[id]
		if !matches(e, f) {
			continue
		}
		cp := *e
		all = append(all, &cp)
	}
	return paginate(all, f.Page), nil
}

func matches(e *domain.Event, f ports.EventFilter) bool {
	if len(f.Initiators) > 0 && !contains(f.Initiators, e.Initiator.ID) {
		return false
	}
	if len(f.States) > 0 {
		ok := false
		for _, st := range f.States {
			ok = ok || st == e.State
		}
		if !ok {
			return false
		}
	}
	if len(f.Categories) > 0 && !contains(f.Categories, e.Category.ID) {
		return false
	}
	if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
		return false
	}
	if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
		return false
	}
	if f.Text != "" {
		t := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(e.Annotation), t) && !strings.Contains(strings.ToLower(e.Description), t) {
			return false
		}
	}
	if f.Paid != nil && e.Paid != *f.Paid {
		return false
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func paginate[T any](all []T, p domain.Page) []T {
	p = p.Normalize()
	if p.From >= len(all) {
		return nil
	}
	end := p.From + p.Size
	if end > len(all) {
		end = len(all)
	}
	return all[p.From:end]
}

func (s *Store) ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, r := range s.Requests {
		if r.Status == domain.RequestConfirmed && contains(eventIDs, r.EventID) {
			out[r.EventID]++
		}
	}
	return out, nil
}

func (s *Store) ListRequestsByRequester(ctx context.Context, requesterID string) ([]*domain.Request, error) {
	var out []*domain.Request
	for _, r := range s.Requests {
		if r.RequesterID == requesterID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListRequestsByEvent(ctx context.Context, eventID string) ([]*domain.Request, error) {
	var out []*domain.Request
	for _, r := range s.Requests {
		if r.EventID == eventID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := s.Users[id]
	if !ok {
		return nil, domain.ErrNotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, ok := s.Categories[id]
	if !ok {
		return nil, domain.ErrNotFound("category not found")
	}
	cp := *c
	return &cp, nil
}

// ---- clock, stats, cache ----

type Clock struct{ T time.Time }

func (c Clock) Now() time.Time { return c.T }

// Stats records hits and answers view counts from them.
type Stats struct {
	mu   sync.Mutex
	Hits []ports.Hit
	Err  error
}

func (s *Stats) AddHit(ctx context.Context, h ports.Hit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Hits = append(s.Hits, h)
	return nil
}

func (s *Stats) ViewCounts(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ports.ViewStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	counts := map[string]map[string]struct{}{}
	totals := map[string]int64{}
	for _, h := range s.Hits {
		if !contains(uris, h.URI) || h.Timestamp.Before(start) || h.Timestamp.After(end) {
			continue
		}
		if counts[h.URI] == nil {
			counts[h.URI] = map[string]struct{}{}
		}
		counts[h.URI][h.IP] = struct{}{}
		totals[h.URI]++
	}
	var out []ports.ViewStat
	for uri, total := range totals {
		if unique {
			total = int64(len(counts[uri]))
		}
		out = append(out, ports.ViewStat{App: "test", URI: uri, Hits: total})
	}
	return out, nil
}

func (s *Stats) HitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Hits)
}
