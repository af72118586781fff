package event

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/aggregate"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports/portstest"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *portstest.Store
	stats *portstest.Stats
	cache *portstest.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := portstest.NewStore()
	stats := &portstest.Stats{}
	cache := portstest.NewCache()
	clock := portstest.Clock{T: testNow}

	store.AddUser("owner", "Olga")
	store.AddUser("guest", "Gleb")
	store.AddCategory("cat-1", "Concerts")
	store.AddCategory("cat-2", "Walks")

	svc := New(Deps{
		Tx:         store,
		Events:     store,
		Users:      store,
		Categories: store,
		Aggregator: aggregate.New(store, stats, clock),
		Stats:      stats,
		Cache:      cache,
		Clock:      clock,
	})
	return &fixture{svc: svc, store: store, stats: stats, cache: cache}
}

func createCmd() CreateCmd {
	return CreateCmd{
		Title:             "Jazz night",
		Annotation:        "An evening of live jazz at the pier",
		Description:       "Three bands, one stage and a lot of saxophone",
		CategoryID:        "cat-1",
		Location:          LocationInput{Lat: 59.93, Lon: 30.31},
		ParticipantLimit:  2,
		RequestModeration: true,
		EventDate:         testNow.Add(3 * time.Hour),
	}
}

func (f *fixture) seed(t *testing.T, state domain.EventState) *domain.Event {
	t.Helper()
	v, err := f.svc.Create(context.Background(), "owner", createCmd())
	require.NoError(t, err)
	ev := f.store.Events[v.Event.ID]
	ev.State = state
	if state == domain.StatePublished {
		p := testNow
		ev.PublishedOn = &p
	}
	return ev
}

func ptr[T any](v T) *T { return &v }

func requireCode(t *testing.T, err error, code domain.ErrCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, domain.CodeOf(err), err.Error())
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates_pending_event_with_zero_counters", func(t *testing.T) {
		v, err := f.svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, v.Event.State)
		assert.Nil(t, v.Event.PublishedOn)
		assert.Equal(t, testNow, v.Event.CreatedOn)
		assert.Equal(t, "Olga", v.Event.Initiator.Name)
		assert.Equal(t, "Concerts", v.Event.Category.Name)
		assert.Zero(t, v.ConfirmedRequests)
		assert.Zero(t, v.Views)
	})

	t.Run("same_coordinates_share_a_location", func(t *testing.T) {
		a, err := f.svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)
		b, err := f.svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)
		assert.Equal(t, a.Event.Location.ID, b.Event.Location.ID)
	})

	t.Run("too_soon_is_forbidden_before_lookups", func(t *testing.T) {
		cmd := createCmd()
		cmd.EventDate = testNow.Add(time.Hour)
		_, err := f.svc.Create(ctx, "nobody", cmd)
		requireCode(t, err, domain.CodeForbidden)
	})

	t.Run("unknown_initiator_is_not_found", func(t *testing.T) {
		_, err := f.svc.Create(ctx, "nobody", createCmd())
		requireCode(t, err, domain.CodeNotFound)
	})

	t.Run("unknown_category_is_not_found", func(t *testing.T) {
		cmd := createCmd()
		cmd.CategoryID = "cat-x"
		_, err := f.svc.Create(ctx, "owner", cmd)
		requireCode(t, err, domain.CodeNotFound)
	})
}

func TestService_PatchByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("other_user_gets_not_found", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		_, err := f.svc.PatchByOwner(ctx, "guest", ev.ID, OwnerPatchCmd{})
		requireCode(t, err, domain.CodeNotFound)
	})

	t.Run("published_event_is_forbidden", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePublished)
		_, err := f.svc.PatchByOwner(ctx, "owner", ev.ID, OwnerPatchCmd{PatchCmd: PatchCmd{Title: ptr("New title")}})
		requireCode(t, err, domain.CodeForbidden)
	})

	t.Run("event_date_within_two_hours_is_forbidden", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		cmd := OwnerPatchCmd{PatchCmd: PatchCmd{EventDate: ptr(testNow.Add(90 * time.Minute))}}
		_, err := f.svc.PatchByOwner(ctx, "owner", ev.ID, cmd)
		requireCode(t, err, domain.CodeForbidden)
	})

	t.Run("empty_patch_is_noop", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		before := *f.store.Events[ev.ID]

		v, err := f.svc.PatchByOwner(ctx, "owner", ev.ID, OwnerPatchCmd{})
		require.NoError(t, err)
		assert.Equal(t, before, *v.Event)
		assert.Empty(t, f.store.Outbox)
	})

	t.Run("cancel_review_then_resubmit", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)

		v, err := f.svc.PatchByOwner(ctx, "owner", ev.ID, OwnerPatchCmd{StateAction: ptr(domain.CancelReview)})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCanceled, v.Event.State)
		assert.Equal(t, []string{ports.RKEventCanceled}, f.store.RoutingKeys())

		v, err = f.svc.PatchByOwner(ctx, "owner", ev.ID, OwnerPatchCmd{
			PatchCmd:    PatchCmd{Title: ptr("Jazz night II"), CategoryID: ptr("cat-2")},
			StateAction: ptr(domain.SendToReview),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, v.Event.State)
		assert.Equal(t, "Jazz night II", v.Event.Title)
		assert.Equal(t, "Walks", v.Event.Category.Name)
	})

	t.Run("validation_failure_rolls_back", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		cmd := OwnerPatchCmd{
			PatchCmd:    PatchCmd{Annotation: ptr("short")},
			StateAction: ptr(domain.CancelReview),
		}
		_, err := f.svc.PatchByOwner(ctx, "owner", ev.ID, cmd)
		requireCode(t, err, domain.CodeValidation)
		assert.Equal(t, domain.StatePending, f.store.Events[ev.ID].State)
	})
}

func TestService_PatchByAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("publish_sets_published_on_and_emits", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)

		v, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{StateAction: ptr(domain.PublishEvent)})
		require.NoError(t, err)
		assert.Equal(t, domain.StatePublished, v.Event.State)
		require.NotNil(t, v.Event.PublishedOn)
		assert.Equal(t, testNow, *v.Event.PublishedOn)
		assert.Equal(t, []string{ports.RKEventPublished}, f.store.RoutingKeys())
	})

	t.Run("publish_requires_pending", func(t *testing.T) {
		for _, st := range []domain.EventState{domain.StatePublished, domain.StateCanceled, domain.StateRejected} {
			f := newFixture(t)
			ev := f.seed(t, st)
			_, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{StateAction: ptr(domain.PublishEvent)})
			requireCode(t, err, domain.CodeForbidden)
			assert.Contains(t, err.Error(), string(st))
		}
	})

	t.Run("reject_keeps_published_on_nil", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		v, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{StateAction: ptr(domain.RejectEvent)})
		require.NoError(t, err)
		assert.Equal(t, domain.StateRejected, v.Event.State)
		assert.Nil(t, v.Event.PublishedOn)
		assert.Equal(t, []string{ports.RKEventRejected}, f.store.RoutingKeys())
	})

	t.Run("admin_margin_is_one_hour", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)

		_, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{EventDate: ptr(testNow.Add(90 * time.Minute))}})
		require.NoError(t, err)

		_, err = f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{EventDate: ptr(testNow.Add(30 * time.Minute))}})
		requireCode(t, err, domain.CodeForbidden)
	})

	t.Run("limit_below_confirmed_is_forbidden", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePublished)
		for _, id := range []string{"r1", "r2"} {
			f.store.PutRequest(&domain.Request{ID: id, EventID: ev.ID, RequesterID: "u-" + id, Status: domain.RequestConfirmed})
		}

		_, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{ParticipantLimit: ptr(1)}})
		requireCode(t, err, domain.CodeForbidden)

		v, err := f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{ParticipantLimit: ptr(0)}})
		require.NoError(t, err)
		assert.Equal(t, 0, v.Event.ParticipantLimit)
		assert.Equal(t, int64(2), v.ConfirmedRequests)

		v, err = f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{ParticipantLimit: ptr(2)}})
		require.NoError(t, err)
		assert.Equal(t, 2, v.Event.ParticipantLimit)
	})

	t.Run("patch_invalidates_cache", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePublished)
		_, err := f.svc.PublicEvent(ctx, ev.ID, Visit{IP: "10.0.0.1"})
		require.NoError(t, err)
		require.True(t, f.cache.Has(cacheKeyEventDetails(ev.ID)))

		_, err = f.svc.PatchByAdmin(ctx, ev.ID, AdminPatchCmd{PatchCmd: PatchCmd{Title: ptr("Renamed")}})
		require.NoError(t, err)
		assert.False(t, f.cache.Has(cacheKeyEventDetails(ev.ID)))
	})

	t.Run("missing_event_is_not_found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.PatchByAdmin(ctx, "nope", AdminPatchCmd{})
		requireCode(t, err, domain.CodeNotFound)
	})
}

// outboxDown runs transactions whose outbox insert always fails.
type outboxDown struct{ *portstest.Store }

func (o outboxDown) WithTx(ctx context.Context, fn func(ports.Tx) error) error {
	return o.Store.WithTx(ctx, func(tx ports.Tx) error { return fn(failingOutbox{tx}) })
}

type failingOutbox struct{ ports.Tx }

func (failingOutbox) InsertOutbox(ctx context.Context, m ports.OutboxMessage) error {
	return errors.New("outbox insert failed")
}

func TestService_StateChangeAudit(t *testing.T) {
	ctx := context.Background()

	build := func(t *testing.T, tx ports.TxRunner, store *portstest.Store, buf *bytes.Buffer) *Service {
		t.Helper()
		stats := &portstest.Stats{}
		clock := portstest.Clock{T: testNow}
		return New(Deps{
			Tx:         tx,
			Events:     store,
			Users:      store,
			Categories: store,
			Aggregator: aggregate.New(store, stats, clock),
			Stats:      stats,
			Clock:      clock,
			Audit:      audit.New(zerolog.New(buf)),
		})
	}
	seedStore := func() *portstest.Store {
		store := portstest.NewStore()
		store.AddUser("owner", "Olga")
		store.AddCategory("cat-1", "Concerts")
		return store
	}

	t.Run("written_after_commit", func(t *testing.T) {
		var buf bytes.Buffer
		store := seedStore()
		svc := build(t, store, store, &buf)
		v, err := svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)

		_, err = svc.PatchByAdmin(ctx, v.Event.ID, AdminPatchCmd{StateAction: ptr(domain.PublishEvent)})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"action":"event_state_changed"`)
		assert.Contains(t, buf.String(), `"to":"PUBLISHED"`)
	})

	t.Run("admin_rollback_leaves_no_record", func(t *testing.T) {
		var buf bytes.Buffer
		store := seedStore()
		svc := build(t, outboxDown{store}, store, &buf)
		v, err := svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)

		_, err = svc.PatchByAdmin(ctx, v.Event.ID, AdminPatchCmd{StateAction: ptr(domain.PublishEvent)})
		require.Error(t, err)
		assert.Equal(t, domain.StatePending, store.Events[v.Event.ID].State)
		assert.NotContains(t, buf.String(), "event_state_changed")
	})

	t.Run("owner_rollback_leaves_no_record", func(t *testing.T) {
		var buf bytes.Buffer
		store := seedStore()
		svc := build(t, outboxDown{store}, store, &buf)
		v, err := svc.Create(ctx, "owner", createCmd())
		require.NoError(t, err)

		_, err = svc.PatchByOwner(ctx, "owner", v.Event.ID, OwnerPatchCmd{StateAction: ptr(domain.CancelReview)})
		require.Error(t, err)
		assert.Equal(t, domain.StatePending, store.Events[v.Event.ID].State)
		assert.NotContains(t, buf.String(), "event_state_changed")
	})
}

func TestService_PublicEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("unpublished_is_not_found", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePending)
		_, err := f.svc.PublicEvent(ctx, ev.ID, Visit{IP: "10.0.0.1"})
		requireCode(t, err, domain.CodeNotFound)
		assert.Zero(t, f.stats.HitCount())
	})

	t.Run("records_hit_and_counts_views", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePublished)

		v, err := f.svc.PublicEvent(ctx, ev.ID, Visit{IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.Views)
		require.Len(t, f.stats.Hits, 1)
		assert.Equal(t, "/events/"+ev.ID, f.stats.Hits[0].URI)
		assert.Equal(t, "ewm-main-service", f.stats.Hits[0].App)

		v, err = f.svc.PublicEvent(ctx, ev.ID, Visit{IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.Views, "views are unique per ip")
	})

	t.Run("stats_outage_does_not_fail_read", func(t *testing.T) {
		f := newFixture(t)
		ev := f.seed(t, domain.StatePublished)
		f.stats.Err = errors.New("stats down")

		v, err := f.svc.PublicEvent(ctx, ev.ID, Visit{IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Zero(t, v.Views)
	})
}

func TestService_OwnerReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.seed(t, domain.StatePending)

	v, err := f.svc.OwnerEvent(ctx, "owner", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, v.Event.ID)

	_, err = f.svc.OwnerEvent(ctx, "guest", ev.ID)
	requireCode(t, err, domain.CodeNotFound)

	list, err := f.svc.OwnerEvents(ctx, "owner", domain.Page{From: 0, Size: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.OwnerEvents(ctx, "guest", domain.Page{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.OwnerEvents(ctx, "nobody", domain.Page{})
	requireCode(t, err, domain.CodeNotFound)
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("views")
	require.NoError(t, err)
	assert.Equal(t, SortViews, m)

	_, err = ParseSortMode(strings.Repeat("x", 3))
	requireCode(t, err, domain.CodeValidation)
}
