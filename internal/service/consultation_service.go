package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/storage"
)

// counselingSubject is the nominal subject for counselor bookings; any other
// subject is accepted but logged.
const counselingSubject = "Academic Advising"

const notificationTimeLayout = "Jan 02, 15:04"

// ConsultationService is the scheduling engine. It exclusively owns the
// time-slot store, the appointment registry and the per-staff queues, and it
// is the only component allowed to mutate more than one of them in a single
// operation.
//
// Every mutating operation on one staff member's state runs under that staff
// member's lock, including the rollback path of a failed promotion, so no
// caller can observe a half-applied change.
type ConsultationService struct {
	users    *repository.UserRepository
	slots    *repository.SlotRepository
	registry *repository.AppointmentRepository
	queues   *repository.QueueRepository
	notifier *NotificationService
	cache    *repository.CacheRepository
	metrics  *MetricsService
	archive  *storage.Archive
	signer   *storage.Signer

	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	statusTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ConsultationServiceParams bundles the engine's collaborators.
type ConsultationServiceParams struct {
	Users          *repository.UserRepository
	Slots          *repository.SlotRepository
	Registry       *repository.AppointmentRepository
	Queues         *repository.QueueRepository
	Notifier       *NotificationService
	Cache          *repository.CacheRepository
	Metrics        *MetricsService
	Archive        *storage.Archive
	Signer         *storage.Signer
	Validator      *validator.Validate
	Logger         *zap.Logger
	Clock          func() time.Time
	StatusCacheTTL time.Duration
}

// NewConsultationService constructs the engine.
func NewConsultationService(p ConsultationServiceParams) *ConsultationService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.StatusCacheTTL <= 0 {
		p.StatusCacheTTL = 30 * time.Second
	}
	if p.Cache == nil {
		p.Cache = repository.NewCacheRepository(nil, p.Logger)
	}
	return &ConsultationService{
		users:     p.Users,
		slots:     p.Slots,
		registry:  p.Registry,
		queues:    p.Queues,
		notifier:  p.Notifier,
		cache:     p.Cache,
		metrics:   p.Metrics,
		archive:   p.Archive,
		signer:    p.Signer,
		validator: p.Validator,
		logger:    p.Logger,
		now:       p.Clock,
		statusTTL: p.StatusCacheTTL,
	}
}

// staffLock returns the mutex serializing all operations touching the given
// staff member's slots, appointments and queue.
func (s *ConsultationService) staffLock(staffID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[staffID]
	if !ok {
		if s.locks == nil {
			s.locks = make(map[string]*sync.Mutex)
		}
		l = &sync.Mutex{}
		s.locks[staffID] = l
	}
	return l
}

// BookAppointmentRequest is the payload for booking a consultation.
type BookAppointmentRequest struct {
	StudentID       string `json:"student_id" validate:"required"`
	StaffID         string `json:"staff_id" validate:"required"`
	Subject         string `json:"subject" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

// BookAppointment finds the earliest usable slot on the staff member's
// calendar and commits a new PENDING appointment into the slot store, the
// registry and the regular queue. A partially failed commit is rolled back;
// the allocated id is discarded, never reused.
func (s *ConsultationService) BookAppointment(ctx context.Context, req BookAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	student, err := s.users.FindByID(req.StudentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking party is not a student")
	}
	staff, err := s.users.FindByID(req.StaffID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown staff member")
	}
	if !staff.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booked party is not a professor or counselor")
	}

	switch staff.Role {
	case models.RoleProfessor:
		if !staff.CanTeach(req.Subject) {
			return nil, appErrors.Clone(appErrors.ErrNotEligible, fmt.Sprintf("professor %s does not teach %s", staff.Username, req.Subject))
		}
		if !student.IsEnrolledIn(req.Subject) {
			return nil, appErrors.Clone(appErrors.ErrNotEligible, fmt.Sprintf("student %s is not enrolled in %s", student.Username, req.Subject))
		}
	case models.RoleCounselor:
		if req.Subject != counselingSubject {
			s.logger.Info("non-advising subject booked with counselor",
				zap.String("counselor", staff.Username), zap.String("subject", req.Subject))
		}
	}

	lock := s.staffLock(staff.ID)
	lock.Lock()
	defer lock.Unlock()

	if s.registry.HasActiveWith(student.ID, staff.ID) {
		return nil, appErrors.ErrDuplicateBooking
	}

	selected := s.findEarliestSlot(staff.ID, req.DurationMinutes)
	if selected == nil {
		return nil, appErrors.ErrNoSlotAvailable
	}

	// The id is consumed even if the commit below fails.
	id := s.registry.NextID()
	appointment := &models.Appointment{
		ID:              id,
		StudentID:       student.ID,
		StaffID:         staff.ID,
		Subject:         req.Subject,
		ScheduledAt:     selected.Start,
		DurationMinutes: req.DurationMinutes,
		Status:          models.StatusPending,
		Slot:            selected.Ref(),
		CreatedAt:       s.now(),
	}

	if err := s.slots.Book(selected.Ref(), id, req.DurationMinutes); err != nil {
		return nil, err
	}
	if err := s.registry.Insert(appointment); err != nil {
		s.slots.Free(selected.Ref())
		return nil, err
	}
	s.queues.ForStaff(staff.ID).Enqueue(appointment)

	timeStr := appointment.ScheduledAt.Format(notificationTimeLayout)
	s.notifier.Notify(student.ID, fmt.Sprintf("Appointment booked with %s for %s on %s.", staff.FullName, req.Subject, timeStr))
	s.notifier.Notify(staff.ID, fmt.Sprintf("New appointment booked by %s for %s on %s.", student.FullName, req.Subject, timeStr))

	if s.metrics != nil {
		s.metrics.IncBooking()
	}
	s.invalidateQueueStatus(ctx, staff.ID)

	s.logger.Info("appointment booked",
		zap.Int("appointment_id", id),
		zap.String("student", student.Username),
		zap.String("staff", staff.Username),
		zap.Time("scheduled_at", appointment.ScheduledAt))
	return appointment, nil
}

// findEarliestSlot scans the staff member's scheduled days from today
// forward and returns the first slot that is effectively available, can
// accommodate the duration and starts strictly after now. First match wins:
// slot starts are unique per staff member, so no tie-breaking is needed.
func (s *ConsultationService) findEarliestSlot(staffID string, durationMinutes int) *models.TimeSlot {
	now := s.now()
	for _, date := range s.slots.DatesFrom(staffID, now) {
		for _, slot := range s.slots.ListByDate(staffID, date) {
			if slot.CanAccommodate(durationMinutes) && slot.Start.After(now) {
				return slot
			}
		}
	}
	return nil
}

// CancelAppointment transitions the appointment to CANCELLED (freeing its
// slot and removing it from the queue) and deletes it from the registry.
func (s *ConsultationService) CancelAppointment(ctx context.Context, id int) error {
	probe, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	staffID := probe.StaffID

	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()

	appointment, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if err := s.transition(appointment, models.StatusCancelled); err != nil {
		return err
	}
	s.registry.Delete(id)

	if s.metrics != nil {
		s.metrics.IncCancellation()
	}
	s.invalidateQueueStatus(ctx, staffID)

	s.logger.Info("appointment cancelled", zap.Int("appointment_id", id), zap.String("staff_id", staffID))
	return nil
}

// StartNext dequeues the staff member's next waiting appointment (priority
// first) and moves it to IN_PROGRESS. It returns nil with no error when the
// queue is empty, and ErrStaffBusy while a consultation is already running.
func (s *ConsultationService) StartNext(ctx context.Context, staffID string) (*models.Appointment, error) {
	staff, err := s.users.FindByID(staffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a professor or counselor")
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()

	if s.registry.InProgressByStaff(staffID) != nil {
		return nil, appErrors.ErrStaffBusy
	}

	next := s.queues.ForStaff(staffID).DequeueNext()
	if next == nil {
		return nil, nil
	}
	if err := s.transition(next, models.StatusInProgress); err != nil {
		return nil, err
	}

	s.invalidateQueueStatus(ctx, staffID)
	s.logger.Info("consultation started", zap.Int("appointment_id", next.ID), zap.String("staff_id", staffID))
	return next, nil
}

// Complete marks the appointment COMPLETED, freeing its slot.
func (s *ConsultationService) Complete(ctx context.Context, id int) error {
	probe, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	lock := s.staffLock(probe.StaffID)
	lock.Lock()
	defer lock.Unlock()

	appointment, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if err := s.transition(appointment, models.StatusCompleted); err != nil {
		return err
	}

	s.invalidateQueueStatus(ctx, appointment.StaffID)
	s.logger.Info("consultation completed", zap.Int("appointment_id", id))
	return nil
}

// transition applies the lifecycle state machine. Re-assigning the current
// status succeeds with no side effects; notifications fire only on genuine
// transitions. Must be called under the staff lock.
func (s *ConsultationService) transition(a *models.Appointment, next models.AppointmentStatus) error {
	if !next.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown appointment status")
	}
	if a.Status == next {
		return nil
	}
	if !a.Status.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition appointment %d from %s to %s", a.ID, a.Status, next))
	}

	a.Status = next
	timeStr := a.ScheduledAt.Format(notificationTimeLayout)
	staffName, studentName := s.partyNames(a)

	switch next {
	case models.StatusInProgress:
		s.notifier.Notify(a.StudentID, fmt.Sprintf("Your consultation with %s regarding '%s' is starting now.", staffName, a.Subject))
	case models.StatusCompleted:
		s.releaseSlot(a)
		// No-op for the usual IN_PROGRESS case; prunes the queue entry
		// when a PENDING appointment is completed directly.
		s.queues.ForStaff(a.StaffID).Remove(a)
		s.notifier.Notify(a.StudentID, fmt.Sprintf("Your consultation with %s regarding '%s' on %s is complete.", staffName, a.Subject, timeStr))
	case models.StatusCancelled:
		s.releaseSlot(a)
		s.queues.ForStaff(a.StaffID).Remove(a)
		s.notifier.Notify(a.StudentID, fmt.Sprintf("Your appointment with %s for '%s' on %s has been cancelled.", staffName, a.Subject, timeStr))
		s.notifier.Notify(a.StaffID, fmt.Sprintf("Appointment with %s for '%s' on %s has been cancelled.", studentName, a.Subject, timeStr))
	}
	return nil
}

// releaseSlot frees the appointment's bound slot and clears the handle. An
// unexpected occupant is logged as a consistency violation but does not fail
// the transition.
func (s *ConsultationService) releaseSlot(a *models.Appointment) {
	if a.Slot.IsZero() {
		return
	}
	slot, err := s.slots.Find(a.Slot)
	if err != nil {
		s.logger.Error("slot missing while releasing appointment",
			zap.Int("appointment_id", a.ID), zap.Error(err))
	} else if slot.BookedAppointmentID != a.ID {
		s.logger.Error("slot bound to unexpected appointment",
			zap.Int("appointment_id", a.ID),
			zap.Int("occupant_id", slot.BookedAppointmentID))
	} else {
		s.slots.Free(a.Slot)
	}
	a.Slot = models.SlotRef{}
}

func (s *ConsultationService) partyNames(a *models.Appointment) (staffName, studentName string) {
	staffName, studentName = a.StaffID, a.StudentID
	if u, err := s.users.FindByID(a.StaffID); err == nil {
		staffName = u.FullName
	}
	if u, err := s.users.FindByID(a.StudentID); err == nil {
		studentName = u.FullName
	}
	return staffName, studentName
}

// AddAvailability opens a new bookable interval on the staff calendar.
func (s *ConsultationService) AddAvailability(ctx context.Context, staffID string, start, end time.Time) (*models.TimeSlot, error) {
	staff, err := s.users.FindByID(staffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a professor or counselor")
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()

	slot, err := s.slots.AddAvailability(staffID, start, end)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(staffID, fmt.Sprintf("Availability added: %s from %s to %s.",
		slot.Date.Format("2006-01-02"), slot.Start.Format("15:04"), slot.End.Format("15:04")))
	return slot, nil
}

// RemoveAvailability deletes an unbooked slot from the staff calendar.
func (s *ConsultationService) RemoveAvailability(ctx context.Context, staffID string, ref models.SlotRef) error {
	if ref.StaffID != staffID {
		return appErrors.Clone(appErrors.ErrValidation, "slot does not belong to this staff member")
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()

	slot, err := s.slots.Find(ref)
	if err != nil {
		return err
	}
	if err := s.slots.RemoveAvailability(ref); err != nil {
		return err
	}

	s.notifier.Notify(staffID, fmt.Sprintf("Availability removed: %s from %s to %s.",
		slot.Date.Format("2006-01-02"), slot.Start.Format("15:04"), slot.End.Format("15:04")))
	return nil
}

// SetSlotAvailability flips a slot's administrative availability toggle.
func (s *ConsultationService) SetSlotAvailability(ctx context.Context, staffID string, ref models.SlotRef, available bool) error {
	if ref.StaffID != staffID {
		return appErrors.Clone(appErrors.ErrValidation, "slot does not belong to this staff member")
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()

	return s.slots.SetMarkedAvailable(ref, available)
}

// ListSlots returns every slot for the staff member on the given day.
func (s *ConsultationService) ListSlots(staffID string, date time.Time) []*models.TimeSlot {
	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()
	return s.slots.ListByDate(staffID, date)
}

// ListAvailableSlots returns the day's effectively available future slots.
func (s *ConsultationService) ListAvailableSlots(staffID string, date time.Time) []*models.TimeSlot {
	lock := s.staffLock(staffID)
	lock.Lock()
	defer lock.Unlock()
	return s.slots.ListAvailable(staffID, date, s.now())
}

// AppointmentsForUser returns the appointments visible to a user, ascending
// by scheduled time. This is a derived read over the registry.
func (s *ConsultationService) AppointmentsForUser(userID string) []*models.Appointment {
	return s.registry.ListByUser(userID)
}

// Appointment fetches a single appointment by id.
func (s *ConsultationService) Appointment(id int) (*models.Appointment, error) {
	return s.registry.Get(id)
}

// QueueStatus summarizes a staff member's wait queue.
type QueueStatus struct {
	StaffID              string `json:"staff_id"`
	Size                 int    `json:"size"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

// GetQueueStatus returns queue size and estimated wait, served from the
// snapshot cache when fresh.
func (s *ConsultationService) GetQueueStatus(ctx context.Context, staffID string) (*QueueStatus, error) {
	if _, err := s.users.FindByID(staffID); err != nil {
		return nil, err
	}

	key := queueStatusKey(staffID)
	var cached QueueStatus
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	q := s.queues.ForStaff(staffID)
	status := &QueueStatus{
		StaffID:              staffID,
		Size:                 q.Size(),
		EstimatedWaitMinutes: q.EstimatedWaitMinutes(),
	}
	lock.Unlock()

	if err := s.cache.Set(ctx, key, status, s.statusTTL); err != nil {
		s.logger.Warn("queue status cache write failed", zap.String("staff_id", staffID), zap.Error(err))
	}
	return status, nil
}

func (s *ConsultationService) invalidateQueueStatus(ctx context.Context, staffID string) {
	s.cache.Invalidate(ctx, queueStatusKey(staffID))
}

func queueStatusKey(staffID string) string {
	return fmt.Sprintf("queue_status:%s", staffID)
}
