package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brisahealth/clinic-scheduling/internal/booking"
	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Schedule      *schedule.Service
	ScheduleRepo  schedule.Repository
	Booking       *booking.Service
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        zerolog.Logger
	Location      *time.Location
	BufferMinutes int
	Env           string
	Version       string
	// Now overrides the clock for tests; nil means time.Now.
	Now func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	h := &Handlers{
		Schedule:      cfg.Schedule,
		ScheduleRepo:  cfg.ScheduleRepo,
		Booking:       cfg.Booking,
		Location:      cfg.Location,
		BufferMinutes: cfg.BufferMinutes,
		Now:           cfg.Now,
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability configuration
	r.Get("/doctors/{doctorID}/availability", h.listAvailability)
	r.Put("/doctors/{doctorID}/availability", h.replaceAvailability)

	// Slot listing and generation
	r.Get("/slots", h.listSlots)
	r.Get("/slots/grid", h.slotGrid)
	r.Post("/slots/generate", h.generateSlots)

	// Appointment lifecycle
	r.Post("/appointments", h.createAppointment)
	r.Get("/appointments/{id}", h.getAppointment)
	r.Post("/appointments/{id}/confirm", h.confirmAppointment)
	r.Post("/appointments/{id}/check-in", h.checkInAppointment)
	r.Post("/appointments/{id}/complete", h.completeAppointment)
	r.Post("/appointments/{id}/cancel", h.cancelAppointment)
	r.Post("/appointments/{id}/no-show", h.noShowAppointment)
	r.Post("/appointments/{id}/reschedule", h.rescheduleAppointment)

	return r
}
