package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/storefront-backend/internal/app"
	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bootstrap.Main(ctx, "cron-worker", func(ctx context.Context, rt *bootstrap.Runtime) error {
		return run(ctx, rt, *once)
	})
}

func run(ctx context.Context, rt *bootstrap.Runtime, once bool) error {
	cfg, logg := rt.Config, rt.Logger
	services, err := app.New(app.Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         rt.DB,
		Redis:      rt.Redis,
		Mailer:     rt.Mailer,
		Registerer: rt.Registry,
	})
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	jobs, err := buildJobs(rt, services)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey(cfg.Service.Kind), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(rt.Registry),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "jobs", registry.Names())
	if once {
		return service.RunOnce(ctx)
	}
	metrics.Serve(ctx, logg, cfg.Cron.MetricsAddr, rt.Registry)
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildJobs(rt *bootstrap.Runtime, services *app.App) ([]cron.Job, error) {
	cfg := rt.Config.Cron
	staleOrders, err := cron.NewStaleOrdersJob(cron.StaleOrdersJobParams{
		Logger: rt.Logger,
		Orders: services.Orders,
		TTL:    cfg.PendingOrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("stale orders job: %w", err)
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     rt.Logger,
		Repository: services.Outbox,
		Retention:  cfg.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        rt.Logger,
		Notifications: services.Notifications,
		Retention:     cfg.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return []cron.Job{staleOrders, outboxRetention, notificationCleanup}, nil
}
