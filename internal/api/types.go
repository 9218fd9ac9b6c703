package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

type AvailabilityRuleRequest struct {
	SpecialtyID string `json:"specialty_id"`
	Weekday     string `json:"weekday"`
	TimeFrom    string `json:"time_from"`
	TimeTo      string `json:"time_to"`
	ValidFrom   string `json:"valid_from"`
	ValidTo     string `json:"valid_to"`
}

type ReplaceAvailabilityRequest struct {
	Rules []AvailabilityRuleRequest `json:"rules"`
}

type AvailabilityRuleResponse struct {
	ID          uuid.UUID          `json:"id"`
	DoctorID    uuid.UUID          `json:"doctor_id"`
	SpecialtyID uuid.UUID          `json:"specialty_id"`
	Weekday     schedule.Weekday   `json:"weekday"`
	TimeFrom    schedule.TimeOfDay `json:"time_from"`
	TimeTo      schedule.TimeOfDay `json:"time_to"`
	ValidFrom   schedule.Date      `json:"valid_from"`
	ValidTo     schedule.Date      `json:"valid_to"`
}

type SlotResponse struct {
	ID          uuid.UUID          `json:"id"`
	DoctorID    uuid.UUID          `json:"doctor_id"`
	SpecialtyID uuid.UUID          `json:"specialty_id"`
	Date        schedule.Date      `json:"date"`
	TimeFrom    schedule.TimeOfDay `json:"time_from"`
	TimeTo      schedule.TimeOfDay `json:"time_to"`
}

type GenerateSlotsRequest struct {
	DoctorID *string `json:"doctor_id,omitempty"`
	Month    int     `json:"month"`
	Year     int     `json:"year"`
}

type GenerateSlotsResponse struct {
	Generated int                      `json:"generated"`
	Skipped   int                      `json:"skipped"`
	Failures  []schedule.DoctorFailure `json:"failures,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID string  `json:"patient_id"`
	SlotID    string  `json:"slot_id"`
	Reason    *string `json:"reason,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type RescheduleAppointmentRequest struct {
	SlotID string  `json:"slot_id"`
	Reason *string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	SlotID       uuid.UUID `json:"slot_id"`
	Status       string    `json:"status"`
	Reason       *string   `json:"reason,omitempty"`
	CancelReason *string   `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
