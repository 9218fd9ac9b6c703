package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// appointments_active_slot_uq is the partial unique index on
// appointments(slot_id) WHERE status <> 'cancelled'. Violations are how a
// lost booking race surfaces from Postgres.
const uniqueViolationCode = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	p.Phone = phone
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.SlotID,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, slot_id, status, reason, notes, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetActiveAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, slot_id, status, reason, notes, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE slot_id = $1 AND status <> 'cancelled'
	`, slotID)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, patientID, slotID uuid.UUID, reason *string) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, slot_id, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, now(), now())
		RETURNING id, patient_id, slot_id, status, reason, notes, cancel_reason, created_at, updated_at
	`, id, patientID, slotID, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, cancelReason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = COALESCE($3, cancel_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($4)
		RETURNING id, patient_id, slot_id, status, reason, notes, cancel_reason, created_at, updated_at
	`, id, to, cancelReason, statusStrings(from))

	return scanAppointment(row)
}

func (r *PgRepository) MoveAppointmentSlot(ctx context.Context, id, newSlotID uuid.UUID, from []Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET slot_id = $2,
		    status = 'pending',
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING id, patient_id, slot_id, status, reason, notes, cancel_reason, created_at, updated_at
	`, id, newSlotID, statusStrings(from))

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return appt, nil
}
