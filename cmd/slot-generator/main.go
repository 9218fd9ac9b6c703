package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brisahealth/clinic-scheduling/internal/config"
	"github.com/brisahealth/clinic-scheduling/internal/db"
	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

// slot-generator materializes bookable slots for one month, for every doctor
// with active availability rules or for a single doctor. Re-running it for an
// already-generated month is a no-op.
func main() {
	var (
		doctorFlag = flag.String("doctor", "", "doctor UUID; empty means all doctors with rules")
		yearFlag   = flag.Int("year", time.Now().Year(), "target year")
		monthFlag  = flag.Int("month", int(time.Now().Month()), "target month (1-12)")
	)
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "slot-generator").Logger()

	if *monthFlag < 1 || *monthFlag > 12 {
		logger.Fatal().Int("month", *monthFlag).Msg("month must be 1-12")
	}

	var doctorID *uuid.UUID
	if *doctorFlag != "" {
		id, err := uuid.Parse(*doctorFlag)
		if err != nil {
			logger.Fatal().Str("doctor", *doctorFlag).Msg("doctor must be a valid UUID")
		}
		doctorID = &id
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pool.Close()

	repo := schedule.NewPgRepository(pool)
	svc := schedule.NewService(repo, logger)

	result, failures, err := svc.GenerateMonth(ctx, doctorID, *yearFlag, time.Month(*monthFlag))
	if err != nil {
		logger.Fatal().Err(err).Msg("generation failed")
	}

	for _, f := range failures {
		logger.Warn().
			Str("doctor_id", f.DoctorID.String()).
			Str("reason", f.Message).
			Msg("doctor skipped")
	}

	logger.Info().
		Int("generated", result.Generated).
		Int("skipped", result.Skipped).
		Msg("done")
}
