package models

import (
	"fmt"
	"time"
)

// SlotRef identifies a time slot by its immutable coordinates: the owning
// staff member and the interval bounds. Booking state is deliberately not
// part of the identity.
type SlotRef struct {
	StaffID string `json:"staff_id"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// IsZero reports whether the reference points at no slot.
func (r SlotRef) IsZero() bool {
	return r.StaffID == "" && r.Start == 0 && r.End == 0
}

// TimeSlot is a bookable interval on a staff member's calendar. At most one
// appointment may be bound at a time; BookedAppointmentID is zero while the
// slot is unbooked.
type TimeSlot struct {
	StaffID             string    `json:"staff_id"`
	Date                time.Time `json:"date"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	MarkedAvailable     bool      `json:"marked_available"`
	BookedAppointmentID int       `json:"booked_appointment_id,omitempty"`
}

// Ref returns the identity handle for this slot.
func (s *TimeSlot) Ref() SlotRef {
	return SlotRef{StaffID: s.StaffID, Start: s.Start.Unix(), End: s.End.Unix()}
}

// Booked reports whether an appointment is currently bound to the slot.
func (s *TimeSlot) Booked() bool {
	return s.BookedAppointmentID != 0
}

// EffectivelyAvailable reports whether the slot can take a new booking:
// administratively marked available and currently unbooked.
func (s *TimeSlot) EffectivelyAvailable() bool {
	return s.MarkedAvailable && !s.Booked()
}

// DurationMinutes returns the slot length in whole minutes.
func (s *TimeSlot) DurationMinutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

// CanAccommodate reports whether an appointment of the given duration fits:
// the duration is positive, the slot is effectively available and long enough.
func (s *TimeSlot) CanAccommodate(durationMinutes int) bool {
	if durationMinutes <= 0 {
		return false
	}
	return s.EffectivelyAvailable() && s.DurationMinutes() >= durationMinutes
}

func (s *TimeSlot) String() string {
	status := "available"
	if s.Booked() {
		status = fmt.Sprintf("booked by appointment %d", s.BookedAppointmentID)
	} else if !s.MarkedAvailable {
		status = "marked unavailable"
	}
	return fmt.Sprintf("slot %s %s-%s (%s)",
		s.StaffID, s.Start.Format("2006-01-02 15:04"), s.End.Format("15:04"), status)
}

// DateOf normalizes a timestamp to midnight of its calendar day, the key
// granularity of the slot store.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateKey renders the canonical map key for a calendar day.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
