package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// threeBookings lays out three hour-long slots at 09:00, 10:00 and 11:00 and
// books them in order for the first three students.
func threeBookings(t *testing.T, f *engineFixture) (a1, a2, a3 *models.Appointment) {
	t.Helper()
	f.addSlot(t, f.professor.ID, 9, 60)
	f.addSlot(t, f.professor.ID, 10, 60)
	f.addSlot(t, f.professor.ID, 11, 60)
	a1 = f.book(t, f.students[0].ID, 30)
	a2 = f.book(t, f.students[1].ID, 30)
	a3 = f.book(t, f.students[2].ID, 30)
	return a1, a2, a3
}

func TestPromoteRotatesShiftGroup(t *testing.T) {
	f := newEngineFixture(t)
	a1, a2, a3 := threeBookings(t, f)

	require.NoError(t, f.svc.SetPriority(context.Background(), a3.ID, true))

	// The target holds the earliest time; everyone before it shifted one
	// slot later.
	assert.Equal(t, testDay.Add(9*time.Hour), a3.ScheduledAt)
	assert.Equal(t, testDay.Add(10*time.Hour), a1.ScheduledAt)
	assert.Equal(t, testDay.Add(11*time.Hour), a2.ScheduledAt)
	assert.True(t, a3.Priority)
	assert.False(t, a1.Priority)
	assert.False(t, a2.Priority)

	// Slot bindings follow the rotation.
	for _, a := range []*models.Appointment{a1, a2, a3} {
		slot, err := f.slots.Find(a.Slot)
		require.NoError(t, err)
		assert.Equal(t, a.ID, slot.BookedAppointmentID)
		assert.Equal(t, a.ScheduledAt, slot.Start)
	}

	// The promoted appointment is served first.
	next, err := f.svc.StartNext(context.Background(), f.professor.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, a3.ID, next.ID)
}

func TestPromoteNotifiesShiftedStudents(t *testing.T) {
	f := newEngineFixture(t)
	_, _, a3 := threeBookings(t, f)

	require.NoError(t, f.svc.SetPriority(context.Background(), a3.ID, true))

	shifted := f.messagesFor(f.students[0].ID)
	require.NotEmpty(t, shifted)
	assert.Contains(t, shifted[len(shifted)-1], "adjusted")

	promoted := f.messagesFor(f.students[2].ID)
	require.NotEmpty(t, promoted)
	assert.Contains(t, promoted[len(promoted)-1], "high priority")
}

func TestPromoteEarliestIsFlagOnly(t *testing.T) {
	f := newEngineFixture(t)
	a1, a2, _ := threeBookings(t, f)

	require.NoError(t, f.svc.SetPriority(context.Background(), a1.ID, true))

	assert.Equal(t, testDay.Add(9*time.Hour), a1.ScheduledAt)
	assert.Equal(t, testDay.Add(10*time.Hour), a2.ScheduledAt)
	assert.True(t, a1.Priority)

	slot, err := f.slots.Find(a1.Slot)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, slot.BookedAppointmentID)
}

func TestPromoteSameValueIsNoOp(t *testing.T) {
	f := newEngineFixture(t)
	a1, _, _ := threeBookings(t, f)

	require.NoError(t, f.svc.SetPriority(context.Background(), a1.ID, false))
	assert.False(t, a1.Priority)
	assert.Equal(t, testDay.Add(9*time.Hour), a1.ScheduledAt)
}

func TestDemoteMovesToRegularTail(t *testing.T) {
	f := newEngineFixture(t)
	a1, _, a3 := threeBookings(t, f)
	require.NoError(t, f.svc.SetPriority(context.Background(), a3.ID, true))

	require.NoError(t, f.svc.SetPriority(context.Background(), a3.ID, false))
	assert.False(t, a3.Priority)

	// Times keep the rotated layout; only the queue class changes.
	assert.Equal(t, testDay.Add(9*time.Hour), a3.ScheduledAt)

	next, err := f.svc.StartNext(context.Background(), f.professor.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, a1.ID, next.ID)
}

func TestPromoteNonPendingFails(t *testing.T) {
	f := newEngineFixture(t)
	a1, _, _ := threeBookings(t, f)

	_, err := f.svc.StartNext(context.Background(), f.professor.ID)
	require.NoError(t, err)

	err = f.svc.SetPriority(context.Background(), a1.ID, true)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotPending))
}

func TestPromoteUnknownAppointment(t *testing.T) {
	f := newEngineFixture(t)
	err := f.svc.SetPriority(context.Background(), 99, true)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

// A rotation can fail midway when a successor's slot is too short for the
// member shifting into it. The engine must restore every time, slot binding
// and priority flag exactly as they were.
func TestPromoteRollsBackWhenRotationFails(t *testing.T) {
	f := newEngineFixture(t)
	f.addSlot(t, f.professor.ID, 9, 60)
	f.addSlot(t, f.professor.ID, 10, 60)
	start := testDay.Add(11 * time.Hour)
	_, err := f.slots.AddAvailability(f.professor.ID, start, start.Add(30*time.Minute))
	require.NoError(t, err)

	a1 := f.book(t, f.students[0].ID, 30) // 09:00
	a2 := f.book(t, f.students[1].ID, 60) // 10:00, fills the hour
	a3 := f.book(t, f.students[2].ID, 30) // 11:00, half-hour slot

	// Rotating would push a2 into the 30-minute 11:00 slot, which cannot
	// hold it.
	err = f.svc.SetPriority(context.Background(), a3.ID, true)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConsistency))

	assert.Equal(t, testDay.Add(9*time.Hour), a1.ScheduledAt)
	assert.Equal(t, testDay.Add(10*time.Hour), a2.ScheduledAt)
	assert.Equal(t, testDay.Add(11*time.Hour), a3.ScheduledAt)
	assert.False(t, a1.Priority)
	assert.False(t, a2.Priority)
	assert.False(t, a3.Priority)

	for _, a := range []*models.Appointment{a1, a2, a3} {
		slot, findErr := f.slots.Find(a.Slot)
		require.NoError(t, findErr)
		assert.Equal(t, a.ID, slot.BookedAppointmentID)
		assert.Equal(t, a.ScheduledAt, slot.Start)
	}

	// FIFO order is untouched after the rollback.
	next, err := f.svc.StartNext(context.Background(), f.professor.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, a1.ID, next.ID)
}

func TestPromoteAfterCancellationSkipsGap(t *testing.T) {
	f := newEngineFixture(t)
	a1, a2, a3 := threeBookings(t, f)
	require.NoError(t, f.svc.CancelAppointment(context.Background(), a2.ID))

	require.NoError(t, f.svc.SetPriority(context.Background(), a3.ID, true))

	// The group is a1 and a3 only; a3 takes 09:00, a1 moves to 11:00.
	assert.Equal(t, testDay.Add(9*time.Hour), a3.ScheduledAt)
	assert.Equal(t, testDay.Add(11*time.Hour), a1.ScheduledAt)
}
