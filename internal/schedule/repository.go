package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrSlotNotFound      = errors.New("slot not found")
)

// SlotQuery narrows ListSlots. Zero-value UUIDs mean "any".
type SlotQuery struct {
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	DateFrom    Date
	DateTo      Date
}

// Repository contains all DB interactions needed by the generation service
// and the slot listing endpoints.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error)

	ListRules(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityRule, error)
	// ReplaceRules swaps a doctor's whole weekly schedule in one transaction:
	// existing rules are deactivated, the new set inserted.
	ReplaceRules(ctx context.Context, doctorID uuid.UUID, rules []AvailabilityRule) error
	// ListDoctorIDsWithRules returns every doctor with at least one active rule,
	// for batch generation runs.
	ListDoctorIDsWithRules(ctx context.Context) ([]uuid.UUID, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*ScheduleSlot, error)
	ListSlots(ctx context.Context, q SlotQuery) ([]ScheduleSlot, error)
	// InsertSlots persists slot candidates, silently skipping any that already
	// exist for the same doctor+date+start+specialty. Returns how many rows
	// were actually inserted.
	InsertSlots(ctx context.Context, slots []ScheduleSlot) (int, error)
}
