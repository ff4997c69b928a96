package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// promotionSnapshot preserves a shift-group member's pre-operation state for
// rollback.
type promotionSnapshot struct {
	when     time.Time
	ref      models.SlotRef
	priority bool
}

// SetPriority changes an appointment's priority class. Only PENDING
// appointments qualify.
//
// Demotion flips the flag and moves the appointment to the regular queue.
// Promotion rotates the shift group, the time-ranked prefix of the staff
// member's pending appointments up to the target: each member inherits its
// successor's original slot and the target takes the earliest one. The whole
// operation, including rollback on a failed rotation, runs under the staff
// lock, so no interleaved operation can observe a half-swapped calendar.
func (s *ConsultationService) SetPriority(ctx context.Context, id int, desired bool) error {
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
	if appointment.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrNotPending,
			fmt.Sprintf("priority can only change while pending, appointment %d is %s", id, appointment.Status))
	}
	if appointment.Priority == desired {
		return nil
	}

	if !desired {
		return s.demote(appointment)
	}
	return s.promote(ctx, appointment)
}

func (s *ConsultationService) demote(a *models.Appointment) error {
	if !s.queues.ForStaff(a.StaffID).SetPriority(a, false) {
		return appErrors.Clone(appErrors.ErrConsistency,
			fmt.Sprintf("pending appointment %d is missing from its queue", a.ID))
	}

	staffName, _ := s.partyNames(a)
	s.notifier.Notify(a.StudentID, fmt.Sprintf("The high priority status for your appointment with %s on %s has been removed.",
		staffName, a.ScheduledAt.Format(notificationTimeLayout)))
	s.logger.Info("priority removed", zap.Int("appointment_id", a.ID))
	return nil
}

func (s *ConsultationService) promote(ctx context.Context, target *models.Appointment) error {
	sorted := s.registry.PendingByStaff(target.StaffID)
	targetIndex := -1
	for i, a := range sorted {
		if a.ID == target.ID {
			targetIndex = i
			break
		}
	}
	if targetIndex < 0 {
		return appErrors.Clone(appErrors.ErrConsistency,
			fmt.Sprintf("pending appointment %d not present in the staff pending set", target.ID))
	}

	staffName, _ := s.partyNames(target)

	// Already the earliest: flag change only, the slot stays put.
	if targetIndex == 0 {
		if !s.queues.ForStaff(target.StaffID).SetPriority(target, true) {
			return appErrors.Clone(appErrors.ErrConsistency,
				fmt.Sprintf("pending appointment %d is missing from its queue", target.ID))
		}
		s.notifier.Notify(target.StudentID, fmt.Sprintf("Your appointment with %s at %s is now high priority.",
			staffName, target.ScheduledAt.Format(notificationTimeLayout)))
		if s.metrics != nil {
			s.metrics.IncPromotion()
		}
		s.invalidateQueueStatus(ctx, target.StaffID)
		return nil
	}

	group := sorted[:targetIndex+1]

	// Snapshot phase: locate every member's bound slot before touching
	// anything. A missing slot is a precondition failure with no mutation.
	snaps := make(map[int]promotionSnapshot, len(group))
	for _, m := range group {
		slot, err := s.slots.Find(m.Slot)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status,
				fmt.Sprintf("cannot locate bound slot of pending appointment %d", m.ID))
		}
		if slot.BookedAppointmentID != m.ID {
			return appErrors.Clone(appErrors.ErrConsistency,
				fmt.Sprintf("slot of appointment %d is bound to appointment %d", m.ID, slot.BookedAppointmentID))
		}
		snaps[m.ID] = promotionSnapshot{when: m.ScheduledAt, ref: m.Slot, priority: m.Priority}
	}

	// Free phase: unbind every member's slot. Any mismatch aborts before
	// further mutation, restoring the already-freed prefix.
	for i, m := range group {
		slot, err := s.slots.Find(snaps[m.ID].ref)
		if err != nil || slot.BookedAppointmentID != m.ID {
			for _, freed := range group[:i] {
				snap := snaps[freed.ID]
				if bookErr := s.slots.Book(snap.ref, freed.ID, freed.DurationMinutes); bookErr != nil {
					s.logger.Error("failed to restore freed slot after aborted promotion",
						zap.Int("appointment_id", freed.ID), zap.Error(bookErr))
				}
			}
			return appErrors.Clone(appErrors.ErrConsistency,
				fmt.Sprintf("slot of appointment %d changed while preparing promotion", m.ID))
		}
		s.slots.Free(snaps[m.ID].ref)
	}

	if err := s.reassign(group, snaps, targetIndex, staffName); err != nil {
		s.logger.Error("promotion reassignment failed, rolling back",
			zap.Int("appointment_id", target.ID), zap.Error(err))
		s.rollbackPromotion(group, snaps)
		if s.metrics != nil {
			s.metrics.IncPromotionRollback()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.IncPromotion()
	}
	s.invalidateQueueStatus(ctx, target.StaffID)
	s.logger.Info("appointment promoted",
		zap.Int("appointment_id", target.ID),
		zap.Int("shift_group_size", len(group)),
		zap.Time("new_time", target.ScheduledAt))
	return nil
}

// reassign rotates the freed slots: group[i] inherits group[i+1]'s original
// slot, the target inherits group[0]'s.
func (s *ConsultationService) reassign(group []*models.Appointment, snaps map[int]promotionSnapshot, targetIndex int, staffName string) error {
	for i := 0; i < targetIndex; i++ {
		mover := group[i]
		src := snaps[group[i+1].ID]

		slot, err := s.slots.Find(src.ref)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status,
				fmt.Sprintf("target slot for appointment %d disappeared mid-rotation", mover.ID))
		}
		if !slot.CanAccommodate(mover.DurationMinutes) {
			return appErrors.Clone(appErrors.ErrConsistency,
				fmt.Sprintf("slot %s cannot take appointment %d (%d min) mid-rotation",
					slot.Start.Format("15:04"), mover.ID, mover.DurationMinutes))
		}

		mover.ScheduledAt = src.when
		if err := s.slots.Book(src.ref, mover.ID, mover.DurationMinutes); err != nil {
			return err
		}
		mover.Slot = src.ref

		s.notifier.Notify(mover.StudentID,
			fmt.Sprintf("Your appointment time with %s was adjusted to %s due to a queue priority change.",
				staffName, mover.ScheduledAt.Format(notificationTimeLayout)))
	}

	target := group[targetIndex]
	head := snaps[group[0].ID]

	slot, err := s.slots.Find(head.ref)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status,
			fmt.Sprintf("earliest slot for promoted appointment %d disappeared mid-rotation", target.ID))
	}
	if !slot.CanAccommodate(target.DurationMinutes) {
		return appErrors.Clone(appErrors.ErrConsistency,
			fmt.Sprintf("earliest slot cannot take promoted appointment %d (%d min)", target.ID, target.DurationMinutes))
	}

	target.ScheduledAt = head.when
	if err := s.slots.Book(head.ref, target.ID, target.DurationMinutes); err != nil {
		return err
	}
	target.Slot = head.ref

	if !s.queues.ForStaff(target.StaffID).SetPriority(target, true) {
		return appErrors.Clone(appErrors.ErrConsistency,
			fmt.Sprintf("promoted appointment %d is missing from its queue", target.ID))
	}

	s.notifier.Notify(target.StudentID, fmt.Sprintf("Your appointment with %s at %s is now high priority.",
		staffName, target.ScheduledAt.Format(notificationTimeLayout)))
	return nil
}

// rollbackPromotion restores every group member to its snapshot: scheduled
// time, slot binding and priority flag. It frees misplaced bindings first so
// re-booking the originals cannot collide, then re-books. An original slot
// occupied by a foreign appointment is a hard consistency violation; it is
// logged and skipped, never escalated.
func (s *ConsultationService) rollbackPromotion(group []*models.Appointment, snaps map[int]promotionSnapshot) {
	for _, m := range group {
		snap := snaps[m.ID]
		if !m.Slot.IsZero() && m.Slot != snap.ref {
			if cur, err := s.slots.Find(m.Slot); err == nil && cur.BookedAppointmentID == m.ID {
				s.slots.Free(m.Slot)
			}
		}
	}

	for _, m := range group {
		snap := snaps[m.ID]
		m.ScheduledAt = snap.when
		m.Slot = snap.ref

		orig, err := s.slots.Find(snap.ref)
		switch {
		case err != nil:
			s.logger.Error("rollback could not locate original slot",
				zap.Int("appointment_id", m.ID), zap.Error(err))
		case orig.BookedAppointmentID == m.ID:
			// already restored
		case !orig.Booked():
			if bookErr := s.slots.Book(snap.ref, m.ID, m.DurationMinutes); bookErr != nil {
				s.logger.Error("rollback failed to re-book original slot",
					zap.Int("appointment_id", m.ID), zap.Error(bookErr))
			}
		default:
			s.logger.Error("rollback found original slot occupied by unexpected appointment",
				zap.Int("appointment_id", m.ID),
				zap.Int("occupant_id", orig.BookedAppointmentID))
		}

		if m.Priority != snap.priority {
			if !s.queues.ForStaff(m.StaffID).SetPriority(m, snap.priority) {
				m.Priority = snap.priority
			}
		}
	}
}
