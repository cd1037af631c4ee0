package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/localsales"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/internal/shipments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/angelmondragon/storefront-backend/pkg/sequence"
)

// Deps are the process level resources the services are built on.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Mailer     mailer.Sender
	Registerer prometheus.Registerer
}

// App holds the wired storefront services shared by the api and cron binaries.
type App struct {
	Auth          auth.Service
	Products      product.Service
	Ledger        *product.Ledger
	Cart          cart.Service
	Orders        orders.Service
	Shipments     shipments.Service
	Returns       returns.Service
	LocalSales    localsales.Service
	Settings      *settings.Service
	Notifications notifications.Service
	Outbox        *outbox.Repository
	DeadLetters   *outbox.DLQRepository
	Metrics       *metrics.StoreMetrics
}

func New(deps Deps) (*App, error) {
	if deps.Config == nil || deps.DB == nil || deps.Redis == nil {
		return nil, fmt.Errorf("config, database and redis are required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := deps.Config
	conn := deps.DB.DB()

	storeMetrics := metrics.NewStoreMetrics(deps.Registerer)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	seq, err := sequence.NewDaily(deps.Redis)
	if err != nil {
		return nil, fmt.Errorf("order sequence: %w", err)
	}

	settingsSvc, err := settings.NewService(settings.NewRepository(conn), cfg.Storefront, logg)
	if err != nil {
		return nil, fmt.Errorf("settings service: %w", err)
	}

	var alerter product.StockAlerter
	if a := notifications.NewStockAlerter(deps.Mailer, cfg.Storefront.OpsEmail); a != nil {
		alerter = a
	}

	productRepo := product.NewRepository(conn)
	productSvc, err := product.NewService(productRepo, deps.DB)
	if err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}
	ledger, err := product.NewLedger(productRepo, deps.DB, emitter, alerter, settingsSvc, storeMetrics, logg)
	if err != nil {
		return nil, fmt.Errorf("stock ledger: %w", err)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), productRepo, deps.DB)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	validator, err := orders.NewValidator(productRepo, cartSvc, ledger)
	if err != nil {
		return nil, fmt.Errorf("order validator: %w", err)
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		Tx:        deps.DB,
		Validator: validator,
		Ledger:    ledger,
		Cart:      cartSvc,
		Sequence:  seq,
		Outbox:    emitter,
		Metrics:   storeMetrics,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	shipmentsSvc, err := shipments.NewService(shipments.NewRepository(conn), deps.DB, emitter, storeMetrics)
	if err != nil {
		return nil, fmt.Errorf("shipments service: %w", err)
	}
	returnsSvc, err := returns.NewService(returns.NewRepository(conn), deps.DB, emitter, storeMetrics)
	if err != nil {
		return nil, fmt.Errorf("returns service: %w", err)
	}

	salesSvc, err := localsales.NewService(localsales.ServiceParams{
		Repo:     localsales.NewRepository(conn),
		Products: productRepo,
		Tx:       deps.DB,
		Ledger:   ledger,
		Taxes:    settingsSvc,
		Sequence: seq,
		Outbox:   emitter,
		Store:    cfg.Storefront,
		Metrics:  storeMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("local sales service: %w", err)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:  users.NewRepository(conn),
		Hasher:    security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &App{
		Auth:          authSvc,
		Products:      productSvc,
		Ledger:        ledger,
		Cart:          cartSvc,
		Orders:        ordersSvc,
		Shipments:     shipmentsSvc,
		Returns:       returnsSvc,
		LocalSales:    salesSvc,
		Settings:      settingsSvc,
		Notifications: notificationsSvc,
		Outbox:        outboxRepo,
		DeadLetters:   outbox.NewDLQRepository(conn),
		Metrics:       storeMetrics,
	}, nil
}
