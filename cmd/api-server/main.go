package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carelink/clinic-booking/internal/api"
	"github.com/carelink/clinic-booking/internal/appointment"
	"github.com/carelink/clinic-booking/internal/availability"
	"github.com/carelink/clinic-booking/internal/config"
	"github.com/carelink/clinic-booking/internal/db"
	"github.com/carelink/clinic-booking/internal/doctor"
	"github.com/carelink/clinic-booking/internal/notification"
	redisclient "github.com/carelink/clinic-booking/internal/redis"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		log.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", "error", err)
		}
	}()
	log.Info("connected to Redis")

	scheduleRepo := schedule.NewPgRepository(pgPool)
	doctorRepo := doctor.NewPgRepository(pgPool)
	appointmentRepo := appointment.NewPgRepository(pgPool)
	notificationRepo := notification.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	scheduleSvc := schedule.NewService(scheduleRepo, log)
	appointmentSvc := appointment.NewService(appointmentRepo, scheduleRepo, doctorRepo, locker, log)
	resolver := availability.NewResolver(scheduleRepo, doctorRepo, log)
	notificationSvc := notification.NewService(notificationRepo, cfg.NotificationTTL, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  appointmentSvc,
		Schedules:     scheduleSvc,
		Availability:  resolver,
		Notifications: notificationSvc,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        log,
		Registry:      prometheus.NewRegistry(),
		Env:           cfg.Env,
		Version:       version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	log.Info("api-server stopped")
}
