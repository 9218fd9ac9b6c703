package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var email *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&email,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Email = email
	return &d, nil
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.DurationMinutes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule

	err := row.Scan(
		&r.ID,
		&r.DoctorID,
		&r.SpecialtyID,
		&r.Weekday,
		&r.TimeFrom,
		&r.TimeTo,
		&r.ValidFrom,
		&r.ValidTo,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func scanSlot(row pgx.Row) (*ScheduleSlot, error) {
	var s ScheduleSlot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.SpecialtyID,
		&s.Date,
		&s.TimeFrom,
		&s.TimeTo,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, created_at, updated_at
		FROM specialties
		WHERE id = $1
	`, id)
	return scanSpecialty(row)
}

func (r *PgRepository) ListRules(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, specialty_id, weekday, time_from, time_to,
		       valid_from, valid_to, active, created_at, updated_at
		FROM availability_rules
		WHERE doctor_id = $1 AND active
		ORDER BY weekday, time_from
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ReplaceRules(ctx context.Context, doctorID uuid.UUID, rules []AvailabilityRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace rules: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE availability_rules
		SET active = false,
		    updated_at = now()
		WHERE doctor_id = $1 AND active
	`, doctorID)
	if err != nil {
		return fmt.Errorf("deactivate rules: %w", err)
	}

	for _, rule := range rules {
		id := rule.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO availability_rules
				(id, doctor_id, specialty_id, weekday, time_from, time_to,
				 valid_from, valid_to, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
		`, id, doctorID, rule.SpecialtyID, rule.Weekday,
			rule.TimeFrom, rule.TimeTo, rule.ValidFrom, rule.ValidTo)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListDoctorIDsWithRules(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT doctor_id
		FROM availability_rules
		WHERE active
		ORDER BY doctor_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*ScheduleSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, specialty_id, slot_date, time_from, time_to, created_at
		FROM schedule_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlots(ctx context.Context, q SlotQuery) ([]ScheduleSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, specialty_id, slot_date, time_from, time_to, created_at
		FROM schedule_slots
		WHERE slot_date BETWEEN $1 AND $2
		  AND ($3::uuid IS NULL OR doctor_id = $3)
		  AND ($4::uuid IS NULL OR specialty_id = $4)
		ORDER BY slot_date, time_from, doctor_id
	`, q.DateFrom, q.DateTo, nullableUUID(q.DoctorID), nullableUUID(q.SpecialtyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertSlots(ctx context.Context, slots []ScheduleSlot) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert slots: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, s := range slots {
		id := s.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO schedule_slots
				(id, doctor_id, specialty_id, slot_date, time_from, time_to, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (doctor_id, slot_date, time_from, specialty_id) DO NOTHING
		`, id, s.DoctorID, s.SpecialtyID, s.Date, s.TimeFrom, s.TimeTo)
		if err != nil {
			return 0, fmt.Errorf("insert slot: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return inserted, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
