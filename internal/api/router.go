package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carelink/clinic-booking/internal/appointment"
	"github.com/carelink/clinic-booking/internal/availability"
	"github.com/carelink/clinic-booking/internal/metrics"
	"github.com/carelink/clinic-booking/internal/notification"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Schedules     *schedule.Service
	Availability  *availability.Resolver
	Notifications *notification.Service
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *logging.Logger
	Registry      *prometheus.Registry
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	httpMetrics := metrics.NewHTTPMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(httpMetrics))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Booking
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments, bookingMetrics))
	r.Post("/payments/confirm", confirmPaymentHandler(cfg.Appointments, bookingMetrics))

	// Appointment lifecycle
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Patch("/appointments/{id}/status", updateAppointmentStatusHandler(cfg.Appointments))
	r.Patch("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	r.Patch("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Appointments))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Appointments))

	// Schedules
	r.Route("/doctors/{id}/schedules", func(r chi.Router) {
		r.Get("/", listUpcomingSchedulesHandler(cfg.Schedules))
		r.Post("/", bulkSaveSchedulesHandler(cfg.Schedules))
		r.Get("/today", getTodayScheduleHandler(cfg.Schedules))
		r.Put("/today", saveTodayScheduleHandler(cfg.Schedules))
		r.Delete("/today", deleteTodayScheduleHandler(cfg.Schedules))
		r.Get("/history", scheduleHistoryHandler(cfg.Schedules))
		r.Get("/exists", checkSchedulesExistHandler(cfg.Schedules))
		r.Get("/{date}", getScheduleHandler(cfg.Schedules))
		r.Delete("/{date}", deleteScheduleHandler(cfg.Schedules))
	})

	// Availability
	r.Get("/doctors/available", listAvailableDoctorsHandler(cfg.Availability))

	// Notifications
	r.Post("/notifications", createNotificationHandler(cfg.Notifications))
	r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))
	r.Get("/patients/{id}/notifications", listNotificationsHandler(cfg.Notifications))

	return r
}
