package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/brisahealth/clinic-scheduling/internal/redis"
	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

// MinCancelReasonLength is the shortest acceptable cancellation reason.
const MinCancelReasonLength = 5

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCancelReasonTooShort    = errors.New("cancellation reason must be at least 5 characters")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
)

// SlotStore is the slice of the schedule repository the booking guard needs.
type SlotStore interface {
	GetSlotByID(ctx context.Context, id uuid.UUID) (*schedule.ScheduleSlot, error)
}

// Service guards appointment creation and lifecycle transitions. Create and
// Reschedule take a per-slot distributed lock around the availability
// re-check and insert, with the partial unique index on active appointments
// as the database-level backstop.
type Service struct {
	repo   Repository
	slots  SlotStore
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, slots SlotStore, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		slots:  slots,
		locker: locker,
		log:    log,
	}
}

// Create books a slot for a patient. Exactly one of two concurrent calls for
// the same slot succeeds; the other receives ErrSlotUnavailable.
func (s *Service) Create(ctx context.Context, patientID, slotID uuid.UUID, reason *string) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	if _, err := s.slots.GetSlotByID(ctx, slotID); err != nil {
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		// Re-check inside the critical section: another booking may have won
		// between the caller's slot listing and now.
		existing, err := s.repo.GetActiveAppointmentForSlot(lockCtx, slotID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.CreateAppointment(lockCtx, patientID, slotID, reason)
		if err != nil {
			return err
		}

		created = appt
		s.log.Info().
			Str("appointment_id", appt.ID.String()).
			Str("slot_id", slotID.String()).
			Str("patient_id", patientID.String()).
			Msg("appointment created")

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, nil)
}

// CheckIn moves a pending or confirmed appointment to in_progress.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, nil)
}

// Complete moves an in-progress appointment to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

// MarkNoShow records that the patient did not attend.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, nil)
}

// Cancel terminates the appointment and releases its slot. A reason is
// mandatory.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	if len(strings.TrimSpace(reason)) < MinCancelReasonLength {
		return nil, ErrCancelReasonTooShort
	}
	appt, err := s.transition(ctx, id, StatusCancelled, &reason)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("slot_id", appt.SlotID.String()).
		Msg("appointment cancelled, slot released")

	return appt, nil
}

// Reschedule moves a pending or confirmed appointment onto a new slot. The
// new slot's availability is checked under the same lock discipline as
// Create; the old slot is released simply by no longer being referenced.
func (s *Service) Reschedule(ctx context.Context, id, newSlotID uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending && appt.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}
	if appt.SlotID == newSlotID {
		return appt, nil
	}

	if _, err := s.slots.GetSlotByID(ctx, newSlotID); err != nil {
		return nil, err
	}

	var moved *Appointment

	err = s.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		existing, err := s.repo.GetActiveAppointmentForSlot(lockCtx, newSlotID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotUnavailable
		}

		updated, err := s.repo.MoveAppointmentSlot(lockCtx, id, newSlotID, []Status{StatusPending, StatusConfirmed})
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Status changed while we were acquiring the lock.
				return ErrInvalidStatusTransition
			}
			return err
		}

		moved = updated
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	evt := s.log.Info().
		Str("appointment_id", moved.ID.String()).
		Str("old_slot_id", appt.SlotID.String()).
		Str("new_slot_id", newSlotID.String())
	if reason != nil {
		evt = evt.Str("reason", *reason)
	}
	evt.Msg("appointment rescheduled")

	return moved, nil
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// transition loads the appointment, validates the state machine edge, then
// applies it with a compare-and-swap so a concurrent transition loses cleanly.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, cancelReason *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, []Status{appt.Status}, to, cancelReason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}
