package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bootstrap.Main(ctx, "outbox-publisher", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	conn := rt.DB.DB()
	guard, err := idempotency.NewGuard(rt.Redis, rt.Config.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		return err
	}
	recorder, err := notifications.NewRecorder(notifications.NewRepository(conn), rt.Logger)
	if err != nil {
		return err
	}
	customerMail, err := notifications.NewMailer(rt.Mailer, users.NewRepository(conn), rt.Logger)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            rt.DB,
		Cache:         rt.Redis,
		Repository:    outbox.NewRepository(conn),
		Registry:      registry.NewEventRegistry(),
		DLQRepository: outbox.NewDLQRepository(conn),
		Handlers:      []Handler{recorder, customerMail},
		Idempotency:   guard,
		Metrics:       metrics.NewOutboxMetrics(rt.Registry),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	metrics.Serve(ctx, rt.Logger, rt.Config.Outbox.MetricsAddr, rt.Registry)
	rt.Logger.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
