package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/localsales"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/internal/shipments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs: readiness, login throttling and request idempotency.
type Cache interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// SettingsService serves the public settings document and its admin update.
type SettingsService interface {
	Get(ctx context.Context) (*settings.SettingsDTO, error)
	Update(ctx context.Context, input settings.UpdateSettingsInput) (*settings.SettingsDTO, error)
}

// DeadLetterReader exposes the outbox DLQ to admins.
type DeadLetterReader interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

// Params collects everything the router mounts.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Cache         Cache
	Gatherer      prometheus.Gatherer
	Auth          auth.Service
	Products      product.Service
	Cart          cart.Service
	Orders        orders.Service
	Shipments     shipments.Service
	Returns       returns.Service
	LocalSales    localsales.Service
	Settings      SettingsService
	Notifications notifications.Service
	DeadLetters   DeadLetterReader
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idem := middleware.Idempotency(p.Cache, logg)
	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
		TrustProxy: cfg.App.TrustProxy,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Cache))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, p.Cache, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		})
		r.Get("/products", controllers.ListProducts(p.Products, false, logg))
		r.Get("/products/{productId}", controllers.GetProduct(p.Products, false, logg))
		r.Get("/settings", controllers.GetSettings(p.Settings, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer, enums.UserRoleAdmin))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(p.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(p.Cart, logg))
				r.With(idem).Post("/items", cartcontrollers.CartAddItem(p.Cart, logg))
				r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(p.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(p.Cart, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.With(idem).Post("/", ordercontrollers.Create(p.Orders, logg))
				r.Get("/", ordercontrollers.List(p.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			})
			r.Get("/shipments", controllers.ListShipments(p.Shipments, logg))
			r.Route("/returns", func(r chi.Router) {
				r.With(idem).Post("/", controllers.CreateReturn(p.Returns, logg))
				r.Get("/", controllers.ListReturns(p.Returns, logg))
				r.Get("/{returnId}", controllers.GetReturn(p.Returns, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			if !cfg.App.IsProd() {
				r.Post("/auth/register", controllers.AdminAuthRegister(p.Auth, logg))
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.ListProducts(p.Products, true, logg))
					r.With(idem).Post("/", controllers.AdminCreateProduct(p.Products, logg))
					r.Get("/{productId}", controllers.GetProduct(p.Products, true, logg))
					r.Put("/{productId}", controllers.AdminUpdateProduct(p.Products, logg))
					r.Delete("/{productId}", controllers.AdminDeleteProduct(p.Products, logg))
					r.Put("/{productId}/stock", controllers.AdminSetStock(p.Products, logg))
				})
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordercontrollers.List(p.Orders, logg))
					r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
					r.With(idem).Patch("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
					r.With(idem).Patch("/{orderId}/payment", ordercontrollers.UpdatePayment(p.Orders, logg))
					r.Delete("/{orderId}", ordercontrollers.Delete(p.Orders, logg))
				})
				r.Route("/shipments", func(r chi.Router) {
					r.Get("/", controllers.ListShipments(p.Shipments, logg))
					r.Get("/{shipmentId}", controllers.GetShipment(p.Shipments, logg))
					r.With(idem).Patch("/{shipmentId}/status", controllers.AdminUpdateShipmentStatus(p.Shipments, logg))
				})
				r.Route("/returns", func(r chi.Router) {
					r.Get("/", controllers.ListReturns(p.Returns, logg))
					r.Get("/{returnId}", controllers.GetReturn(p.Returns, logg))
					r.With(idem).Patch("/{returnId}/status", controllers.AdminUpdateReturnStatus(p.Returns, logg))
				})
				r.Route("/local-sales", func(r chi.Router) {
					r.With(idem).Post("/", controllers.AdminCreateLocalSale(p.LocalSales, logg))
					r.Get("/", controllers.AdminListLocalSales(p.LocalSales, logg))
					r.Get("/export", controllers.AdminExportLocalSales(p.LocalSales, logg))
					r.Get("/{saleId}", controllers.AdminGetLocalSale(p.LocalSales, logg))
					r.Delete("/{saleId}", controllers.AdminDeleteLocalSale(p.LocalSales, logg))
				})
				r.Put("/settings", controllers.AdminUpdateSettings(p.Settings, logg))
				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", controllers.ListNotifications(p.Notifications, logg))
					r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
					r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
				})
				r.Route("/outbox/dead-letters", func(r chi.Router) {
					r.Get("/", controllers.ListDeadLetters(p.DeadLetters, logg))
					r.Get("/{eventId}", controllers.GetDeadLetter(p.DeadLetters, logg))
				})
			})
		})
	})

	return r
}
