package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// SlotRepository is the in-memory time-slot store: per staff member, per
// UTC calendar day, an ordered list of bookable intervals.
//
// The store is internally synchronized with a coarse mutex. Multi-step
// invariants spanning this store, the registry and the queues are protected
// by the scheduling engine's per-staff locks instead.
type SlotRepository struct {
	mu        sync.Mutex
	schedules map[string]map[string][]*models.TimeSlot
	leadTime  time.Duration
	now       func() time.Time
}

// NewSlotRepository constructs the store. leadTime is the minimum distance in
// the future a new slot's start must lie; clock defaults to time.Now.
func NewSlotRepository(leadTime time.Duration, clock func() time.Time) *SlotRepository {
	if clock == nil {
		clock = time.Now
	}
	if leadTime <= 0 {
		leadTime = time.Minute
	}
	return &SlotRepository{
		schedules: make(map[string]map[string][]*models.TimeSlot),
		leadTime:  leadTime,
		now:       clock,
	}
}

// AddAvailability registers a new bookable interval. It fails when the range
// is inverted, the start is not far enough in the future, or the interval
// overlaps an existing slot on the same day (half-open comparison).
func (r *SlotRepository) AddAvailability(staffID string, start, end time.Time) (*models.TimeSlot, error) {
	if staffID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff id is required")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot end must be after start")
	}
	if !start.After(r.now().Add(r.leadTime)) {
		return nil, appErrors.ErrPastStart
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Day keys use the UTC day of the start instant, so a ref resolves
	// regardless of the zone its time was created in.
	date := models.DateOf(start.UTC())
	dayKey := models.DateKey(date)

	days, ok := r.schedules[staffID]
	if !ok {
		days = make(map[string][]*models.TimeSlot)
		r.schedules[staffID] = days
	}

	for _, existing := range days[dayKey] {
		if start.Before(existing.End) && end.After(existing.Start) {
			return nil, appErrors.ErrSlotOverlap
		}
	}

	slot := &models.TimeSlot{
		StaffID:         staffID,
		Date:            date,
		Start:           start,
		End:             end,
		MarkedAvailable: true,
	}
	days[dayKey] = insertSorted(days[dayKey], slot)
	return slot, nil
}

// RemoveAvailability deletes an unbooked slot. Booked slots must be freed
// first via the owning appointment's lifecycle.
func (r *SlotRepository) RemoveAvailability(ref models.SlotRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, err := r.find(ref)
	if err != nil {
		return err
	}
	if slot.Booked() {
		return appErrors.ErrSlotBooked
	}

	dayKey := models.DateKey(slot.Date)
	slots := r.schedules[ref.StaffID][dayKey]
	for i, s := range slots {
		if s == slot {
			r.schedules[ref.StaffID][dayKey] = append(slots[:i], slots[i+1:]...)
			break
		}
	}
	if len(r.schedules[ref.StaffID][dayKey]) == 0 {
		delete(r.schedules[ref.StaffID], dayKey)
	}
	return nil
}

// Find resolves a slot handle to the live slot instance.
func (r *SlotRepository) Find(ref models.SlotRef) (*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(ref)
}

func (r *SlotRepository) find(ref models.SlotRef) (*models.TimeSlot, error) {
	days, ok := r.schedules[ref.StaffID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	dayKey := models.DateKey(time.Unix(ref.Start, 0).UTC())
	for _, s := range days[dayKey] {
		if s.Ref() == ref {
			return s, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
}

// ListByDate returns every slot for the staff member on the given day,
// ordered by start time.
func (r *SlotRepository) ListByDate(staffID string, date time.Time) []*models.TimeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := r.schedules[staffID][models.DateKey(date)]
	out := make([]*models.TimeSlot, len(slots))
	copy(out, slots)
	return out
}

// ListAvailable returns the effectively available slots on the given day
// whose start lies strictly after the reference time.
func (r *SlotRepository) ListAvailable(staffID string, date time.Time, after time.Time) []*models.TimeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TimeSlot
	for _, s := range r.schedules[staffID][models.DateKey(date)] {
		if s.EffectivelyAvailable() && s.Start.After(after) {
			out = append(out, s)
		}
	}
	return out
}

// DatesFrom returns the staff member's scheduled days on or after the given
// day, ascending.
func (r *SlotRepository) DatesFrom(staffID string, from time.Time) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	floor := models.DateOf(from.UTC())
	var dates []time.Time
	for _, slots := range r.schedules[staffID] {
		if len(slots) == 0 {
			continue
		}
		d := slots[0].Date
		if !d.Before(floor) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Book binds an appointment to the slot. It fails without mutation unless the
// slot can accommodate the appointment's duration.
func (r *SlotRepository) Book(ref models.SlotRef, appointmentID, durationMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, err := r.find(ref)
	if err != nil {
		return err
	}
	if !slot.CanAccommodate(durationMinutes) {
		return appErrors.Clone(appErrors.ErrSlotBooked, "time slot cannot accommodate the appointment")
	}
	slot.BookedAppointmentID = appointmentID
	return nil
}

// Free clears the slot's booking unconditionally. The administrative
// availability flag is left untouched.
func (r *SlotRepository) Free(ref models.SlotRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, err := r.find(ref); err == nil {
		slot.BookedAppointmentID = 0
	}
}

// SetMarkedAvailable flips the administrative availability toggle.
func (r *SlotRepository) SetMarkedAvailable(ref models.SlotRef, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, err := r.find(ref)
	if err != nil {
		return err
	}
	slot.MarkedAvailable = available
	return nil
}

func insertSorted(slots []*models.TimeSlot, slot *models.TimeSlot) []*models.TimeSlot {
	i := sort.Search(len(slots), func(i int) bool {
		return slots[i].Start.After(slot.Start)
	})
	slots = append(slots, nil)
	copy(slots[i+1:], slots[i:])
	slots[i] = slot
	return slots
}
