package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brisahealth/clinic-scheduling/internal/booking"
	redisclient "github.com/brisahealth/clinic-scheduling/internal/redis"
	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

// Handlers bundles the services and clinic settings the HTTP layer needs.
// Now is injectable so bookable filtering is deterministic in tests.
type Handlers struct {
	Schedule      *schedule.Service
	ScheduleRepo  schedule.Repository
	Booking       *booking.Service
	Location      *time.Location
	BufferMinutes int
	Now           func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Availability configuration

func (h *Handlers) listAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
		return
	}

	rules, err := h.ScheduleRepo.ListRules(r.Context(), doctorID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := make([]AvailabilityRuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) replaceAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
		return
	}

	var req ReplaceAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	rules := make([]schedule.AvailabilityRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rule, err := parseRuleRequest(doctorID, in)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_rule", err.Error())
			return
		}
		rules = append(rules, rule)
	}

	if err := schedule.ValidateRules(rules); err != nil {
		handleDomainError(w, err)
		return
	}

	if err := h.ScheduleRepo.ReplaceRules(r.Context(), doctorID, rules); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Slots

func (h *Handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, ok := h.querySlots(w, r)
	if !ok {
		return
	}

	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

type gridDoctorResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Slots    []SlotResponse `json:"slots"`
}

type gridDayResponse struct {
	Date    schedule.Date        `json:"date"`
	Doctors []gridDoctorResponse `json:"doctors"`
}

func (h *Handlers) slotGrid(w http.ResponseWriter, r *http.Request) {
	slots, ok := h.querySlots(w, r)
	if !ok {
		return
	}

	grid := schedule.GroupByDateAndDoctor(slots)

	resp := make([]gridDayResponse, 0, len(grid))
	for _, day := range grid {
		out := gridDayResponse{Date: day.Date}
		for _, ds := range day.Doctors {
			doctor := gridDoctorResponse{DoctorID: ds.DoctorID, Slots: make([]SlotResponse, 0, len(ds.Slots))}
			for _, s := range ds.Slots {
				doctor.Slots = append(doctor.Slots, toSlotResponse(s))
			}
			out.Doctors = append(out.Doctors, doctor)
		}
		resp = append(resp, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

// querySlots parses the shared slot query parameters, runs the listing and
// optionally narrows it to bookable slots.
func (h *Handlers) querySlots(w http.ResponseWriter, r *http.Request) ([]schedule.ScheduleSlot, bool) {
	q := r.URL.Query()

	dateFrom, err := schedule.ParseDate(q.Get("date_from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date_from", "date_from must be yyyy-mm-dd")
		return nil, false
	}
	dateTo, err := schedule.ParseDate(q.Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date_to", "date_to must be yyyy-mm-dd")
		return nil, false
	}

	query := schedule.SlotQuery{DateFrom: dateFrom, DateTo: dateTo}

	if v := q.Get("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return nil, false
		}
		query.DoctorID = id
	}
	if v := q.Get("specialty_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialty_id", "specialty_id must be a valid UUID")
			return nil, false
		}
		query.SpecialtyID = id
	}

	slots, err := h.ScheduleRepo.ListSlots(r.Context(), query)
	if err != nil {
		handleDomainError(w, err)
		return nil, false
	}

	if q.Get("bookable") == "true" {
		slots = schedule.FilterBookable(slots, h.now(), h.BufferMinutes, h.Location)
	}

	return slots, true
}

func (h *Handlers) generateSlots(w http.ResponseWriter, r *http.Request) {
	var req GenerateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusUnprocessableEntity, "invalid_month", "month must be 1-12")
		return
	}
	if req.Year < 2000 || req.Year > 2100 {
		writeError(w, http.StatusUnprocessableEntity, "invalid_year", "year is out of range")
		return
	}

	var doctorID *uuid.UUID
	if req.DoctorID != nil {
		id, err := uuid.Parse(*req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		doctorID = &id
	}

	result, failures, err := h.Schedule.GenerateMonth(r.Context(), doctorID, req.Year, time.Month(req.Month))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateSlotsResponse{
		Generated: result.Generated,
		Skipped:   result.Skipped,
		Failures:  failures,
	})
}

// Appointments

func (h *Handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
		return
	}

	appt, err := h.Booking.Create(r.Context(), patientID, slotID, req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.Booking.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.Booking.Confirm)
}

func (h *Handlers) checkInAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.Booking.CheckIn)
}

func (h *Handlers) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.Booking.Complete)
}

func (h *Handlers) noShowAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.Booking.MarkNoShow)
}

func (h *Handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.Booking.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handlers) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req RescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
		return
	}

	appt, err := h.Booking.Reschedule(r.Context(), id, slotID, req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Helpers

func (h *Handlers) applyTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := fn(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseRuleRequest(doctorID uuid.UUID, in AvailabilityRuleRequest) (schedule.AvailabilityRule, error) {
	specialtyID, err := uuid.Parse(in.SpecialtyID)
	if err != nil {
		return schedule.AvailabilityRule{}, errors.New("specialty_id must be a valid UUID")
	}
	weekday, err := schedule.ParseWeekday(in.Weekday)
	if err != nil {
		return schedule.AvailabilityRule{}, err
	}
	timeFrom, err := schedule.ParseTimeOfDay(in.TimeFrom)
	if err != nil {
		return schedule.AvailabilityRule{}, err
	}
	timeTo, err := schedule.ParseTimeOfDay(in.TimeTo)
	if err != nil {
		return schedule.AvailabilityRule{}, err
	}
	validFrom, err := schedule.ParseDate(in.ValidFrom)
	if err != nil {
		return schedule.AvailabilityRule{}, err
	}
	validTo, err := schedule.ParseDate(in.ValidTo)
	if err != nil {
		return schedule.AvailabilityRule{}, err
	}

	return schedule.AvailabilityRule{
		DoctorID:    doctorID,
		SpecialtyID: specialtyID,
		Weekday:     weekday,
		TimeFrom:    timeFrom,
		TimeTo:      timeTo,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Active:      true,
	}, nil
}

func toRuleResponse(r schedule.AvailabilityRule) AvailabilityRuleResponse {
	return AvailabilityRuleResponse{
		ID:          r.ID,
		DoctorID:    r.DoctorID,
		SpecialtyID: r.SpecialtyID,
		Weekday:     r.Weekday,
		TimeFrom:    r.TimeFrom,
		TimeTo:      r.TimeTo,
		ValidFrom:   r.ValidFrom,
		ValidTo:     r.ValidTo,
	}
}

func toSlotResponse(s schedule.ScheduleSlot) SlotResponse {
	return SlotResponse{
		ID:          s.ID,
		DoctorID:    s.DoctorID,
		SpecialtyID: s.SpecialtyID,
		Date:        s.Date,
		TimeFrom:    s.TimeFrom,
		TimeTo:      s.TimeTo,
	}
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		SlotID:       a.SlotID,
		Status:       string(a.Status),
		Reason:       a.Reason,
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func handleDomainError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", verr.Error())
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrSpecialtyNotFound):
		writeError(w, http.StatusNotFound, "specialty_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "this slot was just taken, please pick another")
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrCancelReasonTooShort):
		writeError(w, http.StatusBadRequest, "cancel_reason_too_short", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
