package verticals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
)

func TestLabRejectsNonISODate(t *testing.T) {
	h := newHarness()
	f := h.start(t, Lab)
	ctx := context.Background()

	step(t, f, labSchedule, map[string]any{"tests": []any{"cbc"}})
	require.NoError(t, f.Update(map[string]any{"date": "Tomorrow", "time": "09:00 AM", "address": "12 MG Road"}))
	err := f.Advance(ctx, labTechnician)
	require.ErrorIs(t, err, flow.ErrPrerequisiteMissing)
	assert.Equal(t, []string{"date"}, flow.MissingFields(err))

	step(t, f, labTechnician, map[string]any{"date": "2026-11-02"})
	f.Wait()
	require.True(t, f.CanConfirm())

	require.NoError(t, f.Update(map[string]any{"date": "02/11/2026"}))
	assert.False(t, f.CanConfirm())
	assert.Contains(t, f.Missing(), "date")

	_, err = f.Confirm(ctx)
	require.ErrorIs(t, err, flow.ErrIncomplete)
	assert.NotErrorIs(t, err, flow.ErrPersistFailed)

	list, err := h.repo.List(ctx, "user-1", bookings.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMedicineCapsQuantities(t *testing.T) {
	f := newHarness().start(t, Medicine)
	require.NoError(t, f.Update(map[string]any{"cart": map[string]any{"bp-monitor": float64(9_000_000_000_000_000)}}))

	assert.Equal(t, int64(1850*maxQuantity), f.Quote().Total())
	err := f.Advance(context.Background(), medCart)
	require.ErrorIs(t, err, flow.ErrPrerequisiteMissing)
	assert.Equal(t, []string{"cart"}, flow.MissingFields(err))

	step(t, f, medCart, map[string]any{"cart": map[string]any{"bp-monitor": maxQuantity}})
	assert.Equal(t, int64(1850*maxQuantity), f.Quote().Total())
}

func TestElderlyCareBoundsDaysAndStartDate(t *testing.T) {
	f := newHarness().start(t, ElderlyCare)
	step(t, f, elderSchedule, map[string]any{"packageId": "companion", "days": int64(1) << 62})

	q := f.Quote()
	assert.Equal(t, int64(2000*maxDays), q.Total())

	require.NoError(t, f.Update(map[string]any{"startDate": "next week", "time": "08:00 AM", "address": "Flat 4B"}))
	err := f.Advance(context.Background(), elderCaregiver)
	require.ErrorIs(t, err, flow.ErrPrerequisiteMissing)
	assert.ElementsMatch(t, []string{"days", "startDate"}, flow.MissingFields(err))
}

func TestNurseBoundsHours(t *testing.T) {
	f := newHarness().start(t, Nurse)
	step(t, f, nurseNurse, map[string]any{"serviceId": "post_op"})
	step(t, f, nurseSchedule, map[string]any{"nurseId": "nurse-1"})
	require.NoError(t, f.Update(map[string]any{"hours": maxHours + 1, "date": "2026-11-02", "time": "10:00 AM", "address": "7 Park Street"}))

	err := f.Advance(context.Background(), nurseConfirmation)
	require.ErrorIs(t, err, flow.ErrPrerequisiteMissing)
	assert.Equal(t, []string{"hours"}, flow.MissingFields(err))
	assert.Positive(t, f.Quote().Total())
}

func TestClamp(t *testing.T) {
	cases := []struct{ n, want int64 }{
		{-5, 1},
		{0, 1},
		{7, 7},
		{99, 99},
		{1 << 62, 99},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, clamp(tc.n, 1, maxQuantity), "clamp(%d)", tc.n)
	}
}
