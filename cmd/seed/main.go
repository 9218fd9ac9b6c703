package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/brisahealth/clinic-scheduling/internal/db"
	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

var specialtySeed = []struct {
	name     string
	duration int
}{
	{"General Practice", 30},
	{"Dermatology", 20},
	{"Cardiology", 45},
	{"Pediatrics", 30},
	{"Orthopedics", 30},
	{"Neurology", 60},
	{"Endocrinology", 45},
	{"Ophthalmology", 20},
	{"Psychiatry", 60},
	{"ENT", 20},
}

var morningShifts = []struct{ from, to string }{
	{"08:00", "12:00"},
	{"09:00", "13:00"},
}

var afternoonShifts = []struct{ from, to string }{
	{"14:00", "18:00"},
	{"15:00", "19:00"},
}

func main() {
	var (
		doctors  = flag.Int("doctors", 25, "doctors to create")
		patients = flag.Int("patients", 500, "patients to create")
	)
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	gofakeit.Seed(time.Now().UnixNano())

	specialtyIDs, err := seedSpecialties(ctx, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed specialties")
	}
	doctorIDs, err := seedDoctors(ctx, pool, *doctors)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(ctx, pool, *patients); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAvailability(ctx, pool, doctorIDs, specialtyIDs); err != nil {
		logger.Fatal().Err(err).Msg("seed availability rules")
	}

	logger.Info().
		Int("doctors", len(doctorIDs)).
		Int("patients", *patients).
		Int("specialties", len(specialtyIDs)).
		Msg("seed complete")
}

func seedSpecialties(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(specialtySeed))
	for _, s := range specialtySeed {
		id := uuid.New()
		// Re-runs keep the existing row and its id.
		row := pool.QueryRow(ctx, `
			INSERT INTO specialties (id, name, duration_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (name) DO UPDATE SET updated_at = now()
			RETURNING id
		`, id, s.name, s.duration)
		if err := row.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		email := gofakeit.Email()
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, "Dr. "+gofakeit.Name(), email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		phone := gofakeit.Phone()
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, uuid.New(), gofakeit.Name(), email, phone)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedAvailability gives every doctor one specialty and a handful of weekly
// shifts valid for the next six months, split between mornings and
// afternoons so the rules never overlap.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctorIDs, specialtyIDs []uuid.UUID) error {
	weekdays := []schedule.Weekday{
		schedule.Monday, schedule.Tuesday, schedule.Wednesday,
		schedule.Thursday, schedule.Friday,
	}

	validFrom := schedule.DateOf(time.Now())
	validTo := schedule.DateOf(time.Now().AddDate(0, 6, 0))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		specialtyID := specialtyIDs[gofakeit.Number(0, len(specialtyIDs)-1)]
		days := gofakeit.Number(2, 4)
		for d := 0; d < days; d++ {
			var shift struct{ from, to string }
			if gofakeit.Bool() {
				shift = morningShifts[gofakeit.Number(0, len(morningShifts)-1)]
			} else {
				shift = afternoonShifts[gofakeit.Number(0, len(afternoonShifts)-1)]
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_rules
					(id, doctor_id, specialty_id, weekday, time_from, time_to,
					 valid_from, valid_to, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
			`, uuid.New(), doctorID, specialtyID, weekdays[d%len(weekdays)],
				shift.from, shift.to, validFrom, validTo)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
