package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment ties a patient to one schedule slot. Appointments are never
// deleted; every lifecycle change is a status transition, and a slot counts
// as booked exactly while a non-cancelled appointment references it.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	SlotID       uuid.UUID
	Status       Status
	Reason       *string
	Notes        *string
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
