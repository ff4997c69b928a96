package repository

import (
	"sort"
	"sync"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// AppointmentRepository is the registry of appointments, the single source of
// truth mapping id to record. Ids are handed out by a strictly increasing
// generator and are never reused, even when a booking rolls back.
//
// Map access is internally synchronized. Atomicity across repositories is
// the scheduling engine's job, via its per-staff locks.
type AppointmentRepository struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]*models.Appointment
}

// NewAppointmentRepository constructs an empty registry.
func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{nextID: 1, items: make(map[int]*models.Appointment)}
}

// NextID allocates the next appointment id. Allocated ids are permanently
// consumed whether or not the booking commits.
func (r *AppointmentRepository) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Insert adds a new appointment record.
func (r *AppointmentRepository) Insert(a *models.Appointment) error {
	if a == nil {
		return appErrors.Clone(appErrors.ErrValidation, "appointment is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[a.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "appointment id already registered")
	}
	r.items[a.ID] = a
	return nil
}

// Get returns the appointment with the given id.
func (r *AppointmentRepository) Get(id int) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	return a, nil
}

// Delete removes an appointment from the registry.
func (r *AppointmentRepository) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// ListByUser returns appointments where the user participates as student or
// staff, ascending by scheduled time.
func (r *AppointmentRepository) ListByUser(userID string) []*models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Appointment
	for _, a := range r.items {
		if a.StudentID == userID || a.StaffID == userID {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out
}

// PendingByStaff returns the staff member's PENDING appointments ascending by
// scheduled time. No ties are possible: each pending appointment occupies a
// distinct slot, and slot starts are unique per staff member.
func (r *AppointmentRepository) PendingByStaff(staffID string) []*models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Appointment
	for _, a := range r.items {
		if a.StaffID == staffID && a.Status == models.StatusPending {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out
}

// HasActiveWith reports whether the student holds a PENDING or IN_PROGRESS
// appointment with the given staff member.
func (r *AppointmentRepository) HasActiveWith(studentID, staffID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.StudentID == studentID && a.StaffID == staffID && a.Active() {
			return true
		}
	}
	return false
}

// InProgressByStaff returns the staff member's IN_PROGRESS appointment, if any.
func (r *AppointmentRepository) InProgressByStaff(staffID string) *models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.StaffID == staffID && a.Status == models.StatusInProgress {
			return a
		}
	}
	return nil
}

func sortByTime(apps []*models.Appointment) {
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].ScheduledAt.Equal(apps[j].ScheduledAt) {
			return apps[i].ID < apps[j].ID
		}
		return apps[i].ScheduledAt.Before(apps[j].ScheduledAt)
	})
}
