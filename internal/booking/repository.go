package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotUnavailable means the target slot already carries a non-cancelled
	// appointment. Under concurrent bookings this is the expected loser branch,
	// not a crash path.
	ErrSlotUnavailable = errors.New("slot already has an active appointment")
)

// Repository contains all DB interactions needed by the booking service.
//
// CreateAppointment and MoveAppointmentSlot must translate a violation of the
// active-appointment-per-slot uniqueness constraint into ErrSlotUnavailable,
// so that the database remains the authoritative double-booking guard even if
// the advisory lock around the check-then-insert is ever bypassed.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// GetActiveAppointmentForSlot returns the non-cancelled appointment holding
	// the slot, or ErrAppointmentNotFound if the slot is free.
	GetActiveAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error)

	CreateAppointment(ctx context.Context, patientID, slotID uuid.UUID, reason *string) (*Appointment, error)

	// UpdateAppointmentStatus moves the appointment to `to` only if its current
	// status is one of `from` (compare-and-swap); otherwise
	// ErrAppointmentNotFound is returned for a missing row.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, cancelReason *string) (*Appointment, error)

	// MoveAppointmentSlot re-points the appointment at a new slot and resets it
	// to pending, only if its current status is one of `from`. The vacated slot
	// needs no bookkeeping: with no active appointment referencing it, it is
	// bookable again.
	MoveAppointmentSlot(ctx context.Context, id, newSlotID uuid.UUID, from []Status) (*Appointment, error)
}
