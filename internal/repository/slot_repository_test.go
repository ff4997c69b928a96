package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

var slotTestDay = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func newSlotRepo() *SlotRepository {
	clock := func() time.Time { return slotTestDay.Add(8 * time.Hour) }
	return NewSlotRepository(time.Minute, clock)
}

func at(hour, minute int) time.Time {
	return slotTestDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestAddAvailabilityValidation(t *testing.T) {
	r := newSlotRepo()

	_, err := r.AddAvailability("", at(9, 0), at(10, 0))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = r.AddAvailability("staff-1", at(10, 0), at(9, 0))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// 08:00 clock with a one-minute lead time rejects anything at or
	// before 08:01.
	_, err = r.AddAvailability("staff-1", at(7, 0), at(7, 30))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPastStart))

	_, err = r.AddAvailability("staff-1", at(8, 1), at(8, 30))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPastStart))

	_, err = r.AddAvailability("staff-1", at(8, 2), at(8, 30))
	require.NoError(t, err)
}

func TestAddAvailabilityOverlapIsHalfOpen(t *testing.T) {
	r := newSlotRepo()
	_, err := r.AddAvailability("staff-1", at(9, 0), at(10, 0))
	require.NoError(t, err)

	// Any true intersection is rejected.
	for _, c := range []struct{ start, end time.Time }{
		{at(9, 30), at(10, 30)},
		{at(8, 30), at(9, 30)},
		{at(9, 15), at(9, 45)},
		{at(8, 30), at(10, 30)},
	} {
		_, err := r.AddAvailability("staff-1", c.start, c.end)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrSlotOverlap))
	}

	// Touching endpoints are fine: intervals are half-open.
	_, err = r.AddAvailability("staff-1", at(10, 0), at(11, 0))
	require.NoError(t, err)
	_, err = r.AddAvailability("staff-1", at(8, 30), at(9, 0))
	require.NoError(t, err)

	// Another staff member's day is independent.
	_, err = r.AddAvailability("staff-2", at(9, 0), at(10, 0))
	require.NoError(t, err)
}

func TestSlotRefResolvesAcrossZones(t *testing.T) {
	r := newSlotRepo()

	// 05:00+10:00 is 19:00 UTC the previous calendar day; the ref must
	// resolve no matter which zone the start time arrived in.
	aest := time.FixedZone("AEST", 10*3600)
	start := time.Date(2026, 9, 2, 5, 0, 0, 0, aest)
	slot, err := r.AddAvailability("staff-1", start, start.Add(time.Hour))
	require.NoError(t, err)

	listed := r.ListByDate("staff-1", slotTestDay)
	require.Len(t, listed, 1)

	found, err := r.Find(slot.Ref())
	require.NoError(t, err)
	assert.Same(t, slot, found)

	require.NoError(t, r.Book(slot.Ref(), 5, 30))
	r.Free(slot.Ref())
	require.NoError(t, r.RemoveAvailability(slot.Ref()))
}

func TestListByDateIsSorted(t *testing.T) {
	r := newSlotRepo()
	for _, hour := range []int{14, 9, 11} {
		_, err := r.AddAvailability("staff-1", at(hour, 0), at(hour+1, 0))
		require.NoError(t, err)
	}

	slots := r.ListByDate("staff-1", slotTestDay)
	require.Len(t, slots, 3)
	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(11, 0), slots[1].Start)
	assert.Equal(t, at(14, 0), slots[2].Start)
}

func TestBookAndFree(t *testing.T) {
	r := newSlotRepo()
	slot, err := r.AddAvailability("staff-1", at(9, 0), at(10, 0))
	require.NoError(t, err)

	require.NoError(t, r.Book(slot.Ref(), 7, 30))
	assert.Equal(t, 7, slot.BookedAppointmentID)
	assert.False(t, slot.EffectivelyAvailable())

	// A booked slot takes no second binding.
	err = r.Book(slot.Ref(), 8, 30)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotBooked))

	r.Free(slot.Ref())
	assert.True(t, slot.EffectivelyAvailable())
	require.NoError(t, r.Book(slot.Ref(), 8, 60))
}

func TestBookRejectsOversizedAppointment(t *testing.T) {
	r := newSlotRepo()
	slot, err := r.AddAvailability("staff-1", at(9, 0), at(9, 30))
	require.NoError(t, err)

	err = r.Book(slot.Ref(), 1, 45)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotBooked))
	assert.False(t, slot.Booked())
}

func TestRemoveAvailability(t *testing.T) {
	r := newSlotRepo()
	slot, err := r.AddAvailability("staff-1", at(9, 0), at(10, 0))
	require.NoError(t, err)

	require.NoError(t, r.Book(slot.Ref(), 3, 30))
	err = r.RemoveAvailability(slot.Ref())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotBooked))

	r.Free(slot.Ref())
	require.NoError(t, r.RemoveAvailability(slot.Ref()))

	_, err = r.Find(slot.Ref())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	err = r.RemoveAvailability(models.SlotRef{StaffID: "staff-1", Start: at(12, 0).Unix(), End: at(13, 0).Unix()})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestListAvailableFilters(t *testing.T) {
	r := newSlotRepo()
	booked, err := r.AddAvailability("staff-1", at(9, 0), at(10, 0))
	require.NoError(t, err)
	blocked, err := r.AddAvailability("staff-1", at(10, 0), at(11, 0))
	require.NoError(t, err)
	_, err = r.AddAvailability("staff-1", at(11, 0), at(12, 0))
	require.NoError(t, err)
	late, err := r.AddAvailability("staff-1", at(15, 0), at(16, 0))
	require.NoError(t, err)

	require.NoError(t, r.Book(booked.Ref(), 1, 30))
	require.NoError(t, r.SetMarkedAvailable(blocked.Ref(), false))

	open := r.ListAvailable("staff-1", slotTestDay, at(8, 0))
	require.Len(t, open, 2)
	assert.Equal(t, at(11, 0), open[0].Start)
	assert.Equal(t, at(15, 0), open[1].Start)

	afternoon := r.ListAvailable("staff-1", slotTestDay, at(12, 0))
	require.Len(t, afternoon, 1)
	assert.Equal(t, late.Start, afternoon[0].Start)
}

func TestDatesFromOrdering(t *testing.T) {
	r := newSlotRepo()
	for _, dayOffset := range []int{3, 0, 1} {
		day := slotTestDay.Add(time.Duration(dayOffset) * 24 * time.Hour)
		_, err := r.AddAvailability("staff-1", day.Add(9*time.Hour), day.Add(10*time.Hour))
		require.NoError(t, err)
	}

	dates := r.DatesFrom("staff-1", slotTestDay)
	require.Len(t, dates, 3)
	assert.Equal(t, slotTestDay, dates[0])
	assert.Equal(t, slotTestDay.Add(24*time.Hour), dates[1])
	assert.Equal(t, slotTestDay.Add(3*24*time.Hour), dates[2])

	// A mid-day reference keeps its own calendar day in range.
	future := r.DatesFrom("staff-1", slotTestDay.Add(25*time.Hour))
	require.Len(t, future, 2)
	assert.Equal(t, slotTestDay.Add(24*time.Hour), future[0])
	assert.Equal(t, slotTestDay.Add(3*24*time.Hour), future[1])
}
