package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelink/clinic-booking/internal/appointment"
	"github.com/carelink/clinic-booking/internal/config"
	"github.com/carelink/clinic-booking/internal/db"
	"github.com/carelink/clinic-booking/internal/doctor"
	"github.com/carelink/clinic-booking/internal/notification"
	redisclient "github.com/carelink/clinic-booking/internal/redis"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("expiry-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval.String())

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

	appointmentRepo := appointment.NewPgRepository(pgPool)
	scheduleRepo := schedule.NewPgRepository(pgPool)
	doctorRepo := doctor.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	appointmentSvc := appointment.NewService(appointmentRepo, scheduleRepo, doctorRepo, locker, log)
	notificationSvc := notification.NewService(notification.NewPgRepository(pgPool), cfg.NotificationTTL, log)

	// Run once at startup
	runOnce(rootCtx, log, appointmentSvc, notificationSvc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, log, appointmentSvc, notificationSvc)
		}
	}
}

func runOnce(ctx context.Context, log *logging.Logger, appts *appointment.Service, notifs *notification.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	purged, err := notifs.PurgeExpired(runCtx)
	if err != nil {
		log.Error("notification purge error", "error", err)
	}

	noShows, err := appts.MarkNoShows(runCtx)
	if err != nil {
		log.Error("no-show sweep error", "error", err)
	}

	log.Info("expiry run complete",
		"purged_notifications", purged,
		"no_shows", noShows,
		"duration", time.Since(start).String())
}
