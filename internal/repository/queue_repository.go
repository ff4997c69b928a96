package repository

import (
	"sync"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
)

// StaffQueue holds a staff member's two wait queues in FIFO order. Priority
// entries are always served before regular ones.
type StaffQueue struct {
	priority []*models.Appointment
	regular  []*models.Appointment
}

// Enqueue appends the appointment to the sub-queue selected by its priority
// flag.
func (q *StaffQueue) Enqueue(a *models.Appointment) {
	if a.Priority {
		q.priority = append(q.priority, a)
	} else {
		q.regular = append(q.regular, a)
	}
}

// DequeueNext pops the head of the priority queue, falling back to the
// regular queue. Returns nil when both are empty.
func (q *StaffQueue) DequeueNext() *models.Appointment {
	if len(q.priority) > 0 {
		a := q.priority[0]
		q.priority = q.priority[1:]
		return a
	}
	if len(q.regular) > 0 {
		a := q.regular[0]
		q.regular = q.regular[1:]
		return a
	}
	return nil
}

// Remove drops the appointment from whichever sub-queue holds it. Removing an
// absent appointment is a no-op.
func (q *StaffQueue) Remove(a *models.Appointment) bool {
	if removed, ok := removeByID(q.priority, a.ID); ok {
		q.priority = removed
		return true
	}
	if removed, ok := removeByID(q.regular, a.ID); ok {
		q.regular = removed
		return true
	}
	return false
}

// SetPriority moves the appointment between sub-queues: it is removed from
// its current queue, its flag is flipped, and it is appended to the tail of
// the target queue. Returns false if the appointment is queued in neither.
func (q *StaffQueue) SetPriority(a *models.Appointment, priority bool) bool {
	if !q.Remove(a) {
		return false
	}
	a.Priority = priority
	q.Enqueue(a)
	return true
}

// Contains reports whether the appointment is queued.
func (q *StaffQueue) Contains(id int) bool {
	for _, a := range q.priority {
		if a.ID == id {
			return true
		}
	}
	for _, a := range q.regular {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Size returns the combined length of both sub-queues.
func (q *StaffQueue) Size() int {
	return len(q.priority) + len(q.regular)
}

// EstimatedWaitMinutes sums the durations of every queued appointment.
func (q *StaffQueue) EstimatedWaitMinutes() int {
	total := 0
	for _, a := range q.priority {
		total += a.DurationMinutes
	}
	for _, a := range q.regular {
		total += a.DurationMinutes
	}
	return total
}

func removeByID(queue []*models.Appointment, id int) ([]*models.Appointment, bool) {
	for i, a := range queue {
		if a.ID == id {
			return append(queue[:i], queue[i+1:]...), true
		}
	}
	return queue, false
}

// QueueRepository owns one StaffQueue per staff member. The registry map is
// internally synchronized; the queues themselves are mutated only under the
// scheduling engine's per-staff lock.
type QueueRepository struct {
	mu     sync.Mutex
	queues map[string]*StaffQueue
}

// NewQueueRepository constructs an empty queue registry.
func NewQueueRepository() *QueueRepository {
	return &QueueRepository{queues: make(map[string]*StaffQueue)}
}

// ForStaff returns the staff member's queue, creating it on first use.
func (r *QueueRepository) ForStaff(staffID string) *StaffQueue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[staffID]
	if !ok {
		q = &StaffQueue{}
		r.queues[staffID] = q
	}
	return q
}
