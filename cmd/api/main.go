package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/app"
	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bootstrap.Main(ctx, "api", serve)
}

func serve(ctx context.Context, rt *bootstrap.Runtime) error {
	services, err := app.New(app.Deps{
		Config:     rt.Config,
		Logger:     rt.Logger,
		DB:         rt.DB,
		Redis:      rt.Redis,
		Mailer:     rt.Mailer,
		Registerer: rt.Registry,
	})
	if err != nil {
		return err
	}

	// PORT is set by the hosting platform and wins over the configured port.
	port := os.Getenv("PORT")
	if port == "" {
		port = rt.Config.App.Port
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Params{
			Config:        rt.Config,
			Logger:        rt.Logger,
			DB:            rt.DB,
			Cache:         rt.Redis,
			Gatherer:      rt.Registry,
			Auth:          services.Auth,
			Products:      services.Products,
			Cart:          services.Cart,
			Orders:        services.Orders,
			Shipments:     services.Shipments,
			Returns:       services.Returns,
			LocalSales:    services.LocalSales,
			Settings:      services.Settings,
			Notifications: services.Notifications,
			DeadLetters:   services.DeadLetters,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = rt.Logger.WithField(ctx, "addr", server.Addr)

	failed := make(chan error, 1)
	go func() {
		rt.Logger.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}
	rt.Logger.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
