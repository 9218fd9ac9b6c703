package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/brisahealth/clinic-scheduling/internal/db"
)

// simulate hammers the booking endpoint with concurrent create calls against
// a small set of slots and verifies the core booking invariant from the
// outside: per slot, exactly one request wins and every other one receives a
// 409 conflict.
type simConfig struct {
	apiBaseURL     string
	workersPerSlot int
	slotLimit      int
	patientLimit   int
	requestTimeout time.Duration
}

type counters struct {
	created   atomic.Int64
	conflicts atomic.Int64
	errors    atomic.Int64
}

func main() {
	cfg := simConfig{requestTimeout: 10 * time.Second}
	flag.StringVar(&cfg.apiBaseURL, "api", "http://127.0.0.1:8080", "API base URL")
	flag.IntVar(&cfg.workersPerSlot, "workers", 8, "concurrent booking attempts per slot")
	flag.IntVar(&cfg.slotLimit, "slots", 50, "slots to contend for")
	flag.IntVar(&cfg.patientLimit, "patients", 200, "patients to draw from")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "simulate").Logger()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	slotIDs, err := loadFreeSlotIDs(ctx, pool, cfg.slotLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("load free slots")
	}
	patientIDs, err := loadPatientIDs(ctx, pool, cfg.patientLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("load patients")
	}
	if len(slotIDs) == 0 || len(patientIDs) == 0 {
		logger.Fatal().Msg("need seeded patients and generated free slots; run seed and slot-generator first")
	}

	logger.Info().
		Int("slots", len(slotIDs)).
		Int("workers_per_slot", cfg.workersPerSlot).
		Msg("starting contention run")

	client := &http.Client{Timeout: cfg.requestTimeout}
	var c counters
	var wg sync.WaitGroup

	start := time.Now()
	for si, slotID := range slotIDs {
		for w := 0; w < cfg.workersPerSlot; w++ {
			patientID := patientIDs[(si*cfg.workersPerSlot+w)%len(patientIDs)]
			wg.Add(1)
			go func(slotID, patientID uuid.UUID) {
				defer wg.Done()
				attemptBooking(client, cfg.apiBaseURL, slotID, patientID, &c, logger)
			}(slotID, patientID)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	created := c.created.Load()
	conflicts := c.conflicts.Load()
	errs := c.errors.Load()

	logger.Info().
		Int64("created", created).
		Int64("conflicts", conflicts).
		Int64("errors", errs).
		Dur("elapsed", elapsed).
		Msg("contention run finished")

	// The whole point: one winner per slot, no more, no less.
	if created != int64(len(slotIDs)) {
		logger.Fatal().
			Int64("created", created).
			Int("expected", len(slotIDs)).
			Msg("double-booking invariant violated")
	}
	logger.Info().Msg("exactly one booking per slot, invariant holds")
}

func attemptBooking(client *http.Client, baseURL string, slotID, patientID uuid.UUID, c *counters, logger zerolog.Logger) {
	body, _ := json.Marshal(map[string]string{
		"slot_id":    slotID.String(),
		"patient_id": patientID.String(),
	})

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		c.errors.Add(1)
		logger.Error().Err(err).Msg("booking request failed")
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusCreated:
		c.created.Add(1)
	case http.StatusConflict:
		c.conflicts.Add(1)
	default:
		c.errors.Add(1)
		logger.Error().Int("status", resp.StatusCode).Msg("unexpected booking response")
	}
}

// loadFreeSlotIDs picks future slots with no active appointment.
func loadFreeSlotIDs(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.id
		FROM schedule_slots s
		LEFT JOIN appointments a ON a.slot_id = s.id AND a.status <> 'cancelled'
		WHERE a.id IS NULL
		  AND s.slot_date >= CURRENT_DATE
		ORDER BY s.slot_date, s.time_from
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func loadPatientIDs(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM patients ORDER BY created_at LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
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
