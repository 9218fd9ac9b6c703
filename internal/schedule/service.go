package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerateResult reports one generation run: how many slots were newly
// materialized and how many candidates already existed.
type GenerateResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// DoctorFailure records a doctor whose rules could not be expanded during a
// batch run. The batch carries on with the remaining doctors.
type DoctorFailure struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Message  string    `json:"message"`
}

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GenerateMonth materializes bookable slots for the given month. With a nil
// doctorID it covers every doctor that has active rules; a doctor whose rules
// fail validation is reported in failures without aborting the rest of the
// batch. Regenerating an already-generated month inserts nothing new, so the
// operation is idempotent per doctor+month.
func (s *Service) GenerateMonth(ctx context.Context, doctorID *uuid.UUID, year int, month time.Month) (GenerateResult, []DoctorFailure, error) {
	var doctors []uuid.UUID
	if doctorID != nil {
		if _, err := s.repo.GetDoctorByID(ctx, *doctorID); err != nil {
			return GenerateResult{}, nil, err
		}
		doctors = []uuid.UUID{*doctorID}
	} else {
		var err error
		doctors, err = s.repo.ListDoctorIDsWithRules(ctx)
		if err != nil {
			return GenerateResult{}, nil, fmt.Errorf("list doctors with rules: %w", err)
		}
	}

	from, to := MonthRange(year, month)

	var total GenerateResult
	var failures []DoctorFailure
	for _, id := range doctors {
		res, err := s.generateForDoctor(ctx, id, from, to)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				s.log.Warn().
					Str("doctor_id", id.String()).
					Str("reason", verr.Error()).
					Msg("skipping doctor with invalid rules")
				failures = append(failures, DoctorFailure{DoctorID: id, Message: verr.Error()})
				continue
			}
			return total, failures, fmt.Errorf("generate for doctor %s: %w", id, err)
		}
		total.Generated += res.Generated
		total.Skipped += res.Skipped
	}

	s.log.Info().
		Int("generated", total.Generated).
		Int("skipped", total.Skipped).
		Int("failed_doctors", len(failures)).
		Str("month", fmt.Sprintf("%04d-%02d", year, int(month))).
		Msg("slot generation run complete")

	return total, failures, nil
}

func (s *Service) generateForDoctor(ctx context.Context, doctorID uuid.UUID, from, to Date) (GenerateResult, error) {
	rules, err := s.repo.ListRules(ctx, doctorID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list rules: %w", err)
	}

	// Rules for different specialties can carry different durations, so the
	// expansion runs per specialty.
	bySpecialty := make(map[uuid.UUID][]AvailabilityRule)
	for _, r := range rules {
		bySpecialty[r.SpecialtyID] = append(bySpecialty[r.SpecialtyID], r)
	}

	var result GenerateResult
	for specialtyID, group := range bySpecialty {
		spec, err := s.repo.GetSpecialtyByID(ctx, specialtyID)
		if err != nil {
			return result, fmt.Errorf("load specialty %s: %w", specialtyID, err)
		}

		candidates, err := ExpandAvailability(group, from, to, spec.DurationMinutes)
		if err != nil {
			return result, err
		}
		if len(candidates) == 0 {
			continue
		}

		inserted, err := s.repo.InsertSlots(ctx, candidates)
		if err != nil {
			return result, fmt.Errorf("insert slots: %w", err)
		}
		result.Generated += inserted
		result.Skipped += len(candidates) - inserted
	}

	return result, nil
}
