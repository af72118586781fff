package request

import (
	"context"
	"fmt"
	"testing"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirm(ids ...string) ModerateCmd {
	return ModerateCmd{RequestIDs: ids, Status: domain.RequestConfirmed}
}

func reject(ids ...string) ModerateCmd {
	return ModerateCmd{RequestIDs: ids, Status: domain.RequestRejected}
}

func idsOf(reqs []*domain.Request) []string { return requestIDs(reqs) }

func TestModerate_CascadeRejectsRemainingPending(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 2, true)
	addRequest(store, "r1", "ev", "u1", domain.RequestPending)
	addRequest(store, "r2", "ev", "u2", domain.RequestPending)
	addRequest(store, "r3", "ev", "u3", domain.RequestPending)

	res, err := svc.Moderate(ctx, "owner", "ev", confirm("r1", "r3"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"r1", "r3"}, idsOf(res.Confirmed))
	assert.Equal(t, []string{"r2"}, idsOf(res.Rejected))
	assert.Equal(t, domain.RequestRejected, res.Rejected[0].Status)
	assert.Empty(t, store.RequestsWith("ev", domain.RequestPending))
	assert.Len(t, store.RequestsWith("ev", domain.RequestConfirmed), 2)
	assert.Equal(t, []string{ports.RKRequestsModerated}, store.RoutingKeys())
}

func TestModerate_BelowLimitDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 3, true)
	addRequest(store, "r1", "ev", "u1", domain.RequestPending)
	addRequest(store, "r2", "ev", "u2", domain.RequestPending)

	res, err := svc.Moderate(ctx, "owner", "ev", confirm("r1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, idsOf(res.Confirmed))
	assert.Empty(t, res.Rejected)
	assert.Len(t, store.RequestsWith("ev", domain.RequestPending), 1)
}

func TestModerate_ReachingLimitExactlyCascades(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 2, true)
	addRequest(store, "c1", "ev", "u1", domain.RequestConfirmed)
	addRequest(store, "r2", "ev", "u2", domain.RequestPending)
	addRequest(store, "r3", "ev", "u3", domain.RequestPending)
	addRequest(store, "x", "other", "u4", domain.RequestPending)

	res, err := svc.Moderate(ctx, "owner", "ev", confirm("r2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, idsOf(res.Confirmed))
	assert.Equal(t, []string{"r3"}, idsOf(res.Rejected))
	assert.Equal(t, domain.RequestPending, store.Requests["x"].Status, "other events untouched")
}

func TestModerate_OverLimitIsForbiddenAndAtomic(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 2, true)
	addRequest(store, "c1", "ev", "u1", domain.RequestConfirmed)
	addRequest(store, "r2", "ev", "u2", domain.RequestPending)
	addRequest(store, "r3", "ev", "u3", domain.RequestPending)

	_, err := svc.Moderate(ctx, "owner", "ev", confirm("r2", "r3"))
	requireCode(t, err, domain.CodeForbidden)
	assert.Len(t, store.RequestsWith("ev", domain.RequestPending), 2)
	assert.Empty(t, store.Outbox)
}

func TestModerate_Reject(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 1, true)
	addRequest(store, "r1", "ev", "u1", domain.RequestPending)
	addRequest(store, "r2", "ev", "u2", domain.RequestPending)

	res, err := svc.Moderate(ctx, "owner", "ev", reject("r1"))
	require.NoError(t, err)
	assert.Empty(t, res.Confirmed)
	assert.Equal(t, []string{"r1"}, idsOf(res.Rejected))
	assert.Equal(t, domain.RequestPending, store.Requests["r2"].Status)
}

func TestModerate_NoOps(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		limit      int
		moderation bool
		ids        []string
	}{
		{name: "unlimited", limit: 0, moderation: true, ids: []string{"r1"}},
		{name: "moderation_off", limit: 5, moderation: false, ids: []string{"r1"}},
		{name: "no_ids", limit: 5, moderation: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newService(t)
			addEvent(store, "ev", domain.StatePublished, tc.limit, tc.moderation)
			addRequest(store, "r1", "ev", "u1", domain.RequestPending)

			res, err := svc.Moderate(ctx, "owner", "ev", confirm(tc.ids...))
			require.NoError(t, err)
			assert.NotNil(t, res.Confirmed)
			assert.NotNil(t, res.Rejected)
			assert.Empty(t, res.Confirmed)
			assert.Empty(t, res.Rejected)
			assert.Equal(t, domain.RequestPending, store.Requests["r1"].Status)
			assert.Empty(t, store.Outbox)
		})
	}
}

func TestModerate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not_initiator_is_forbidden", func(t *testing.T) {
		svc, store := newService(t)
		addEvent(store, "ev", domain.StatePublished, 2, true)
		addRequest(store, "r1", "ev", "u1", domain.RequestPending)
		_, err := svc.Moderate(ctx, "u2", "ev", confirm("r1"))
		requireCode(t, err, domain.CodeForbidden)
	})

	t.Run("missing_id_is_not_found", func(t *testing.T) {
		svc, store := newService(t)
		addEvent(store, "ev", domain.StatePublished, 2, true)
		addRequest(store, "r1", "ev", "u1", domain.RequestPending)
		_, err := svc.Moderate(ctx, "owner", "ev", confirm("r1", "ghost"))
		requireCode(t, err, domain.CodeNotFound)
		assert.Equal(t, domain.RequestPending, store.Requests["r1"].Status)
	})

	t.Run("request_of_other_event_is_not_found", func(t *testing.T) {
		svc, store := newService(t)
		addEvent(store, "ev", domain.StatePublished, 2, true)
		addRequest(store, "r1", "elsewhere", "u1", domain.RequestPending)
		_, err := svc.Moderate(ctx, "owner", "ev", confirm("r1"))
		requireCode(t, err, domain.CodeNotFound)
	})

	t.Run("one_non_pending_aborts_batch", func(t *testing.T) {
		svc, store := newService(t)
		addEvent(store, "ev", domain.StatePublished, 5, true)
		addRequest(store, "r1", "ev", "u1", domain.RequestPending)
		addRequest(store, "r2", "ev", "u2", domain.RequestCanceled)
		_, err := svc.Moderate(ctx, "owner", "ev", reject("r1", "r2"))
		requireCode(t, err, domain.CodeForbidden)
		assert.Equal(t, domain.RequestPending, store.Requests["r1"].Status)
	})

	t.Run("pending_status_is_validation_error", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Moderate(ctx, "owner", "ev", ModerateCmd{RequestIDs: []string{"r1"}, Status: domain.RequestPending})
		requireCode(t, err, domain.CodeValidation)
	})

	t.Run("duplicate_ids_count_once", func(t *testing.T) {
		svc, store := newService(t)
		addEvent(store, "ev", domain.StatePublished, 1, true)
		addRequest(store, "r1", "ev", "u1", domain.RequestPending)
		res, err := svc.Moderate(ctx, "owner", "ev", confirm("r1", "r1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"r1"}, idsOf(res.Confirmed))
	})
}

// Publish-then-fill walk-through with limit 1.
func TestScenario_LimitOneCascadeThenFull(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	addEvent(store, "ev", domain.StatePublished, 1, true)

	a, err := svc.Create(ctx, "u1", "ev")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u2", "ev")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, a.Status)
	assert.Equal(t, domain.RequestPending, b.Status)

	res, err := svc.Moderate(ctx, "owner", "ev", confirm(a.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, idsOf(res.Confirmed))
	assert.Equal(t, []string{b.ID}, idsOf(res.Rejected))
	assert.Equal(t, domain.RequestConfirmed, store.Requests[a.ID].Status)
	assert.Equal(t, domain.RequestRejected, store.Requests[b.ID].Status)

	_, err = svc.Create(ctx, "u3", "ev")
	requireCode(t, err, domain.CodeForbidden)
	assert.Contains(t, err.Error(), "limit")
}

// Confirmed count never exceeds the limit over an arbitrary sequence of calls.
func TestCapacityInvariant(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	for i := 6; i <= 12; i++ {
		store.AddUser(fmt.Sprintf("u%d", i), "x")
	}
	addEvent(store, "ev", domain.StatePublished, 3, true)

	var ids []string
	for i := 1; i <= 12; i++ {
		r, err := svc.Create(ctx, fmt.Sprintf("u%d", i), "ev")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	batches := [][]string{{ids[0]}, {ids[1], ids[2], ids[3]}, {ids[4], ids[5]}, {ids[6]}}
	for _, b := range batches {
		_, _ = svc.Moderate(ctx, "owner", "ev", confirm(b...))
		assert.LessOrEqual(t, len(store.RequestsWith("ev", domain.RequestConfirmed)), 3)
	}
	assert.Len(t, store.RequestsWith("ev", domain.RequestConfirmed), 3)
	assert.Empty(t, store.RequestsWith("ev", domain.RequestPending))
}
