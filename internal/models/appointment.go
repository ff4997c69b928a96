package models

import "time"

// AppointmentStatus is the closed lifecycle state set for appointments.
type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "PENDING"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
)

// Valid reports whether the status is a known value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle state machine permits moving
// from s to next. Idempotent re-assignment of the current status is handled
// by the caller, not here.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// Appointment is a consultation booking between a student and a staff member.
// While PENDING or IN_PROGRESS it is bound to exactly one time slot, reachable
// through Slot; after a terminal transition the handle is cleared.
type Appointment struct {
	ID              int               `json:"id"`
	StudentID       string            `json:"student_id"`
	StaffID         string            `json:"staff_id"`
	Subject         string            `json:"subject"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	Priority        bool              `json:"priority"`
	Slot            SlotRef           `json:"slot"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Active reports whether the appointment still occupies a slot.
func (a *Appointment) Active() bool {
	return a.Status == StatusPending || a.Status == StatusInProgress
}
