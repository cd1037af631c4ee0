// Package bootstrap opens the resources every storefront process shares: config, logger,
// database, redis, mailer and the prometheus registry.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type Runtime struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Mailer   *mailer.SMTPSender
	Registry *prometheus.Registry

	closers []func() error
}

// Open loads .env and the STOREFRONT_* config, then connects everything kind needs.
// On failure whatever was already opened is closed again.
func Open(ctx context.Context, kind string) (rt *Runtime, err error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Service.Kind = kind

	rt = &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if rt.DB, err = db.New(ctx, cfg.DB, cfg.FeatureFlags, rt.Logger); err != nil {
		return rt, fmt.Errorf("database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)
	if err = migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}
	if rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger); err != nil {
		return rt, fmt.Errorf("redis: %w", err)
	}
	rt.closers = append(rt.closers, rt.Redis.Close)
	if rt.Mailer, err = mailer.New(cfg.Mail, cfg.Storefront, rt.Logger); err != nil {
		return rt, fmt.Errorf("mailer: %w", err)
	}
	return rt, nil
}

// Context tags ctx with the fields every log line of this process carries.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":          rt.Config.App.Env,
		"service_kind": rt.Config.Service.Kind,
	})
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errs
}

// Main runs fn with an opened runtime and exits non-zero when either fails.
func Main(ctx context.Context, kind string, fn func(context.Context, *Runtime) error) {
	rt, err := Open(ctx, kind)
	if err != nil {
		logger.New(logger.Options{ServiceName: kind}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}
	ctx = rt.Context(ctx)
	err = fn(ctx, rt)
	if cerr := rt.Close(); cerr != nil {
		rt.Logger.Error(ctx, "shutdown close failed", cerr)
	}
	if err != nil {
		rt.Logger.Error(ctx, kind+" stopped", err)
		os.Exit(1)
	}
	rt.Logger.Info(ctx, kind+" stopped")
}
