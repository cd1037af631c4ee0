package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// DefaultLowStockThreshold applies when no threshold source is wired.
const DefaultLowStockThreshold = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LowStockAlert describes a product or variation that dropped under the threshold.
type LowStockAlert struct {
	ProductID   uuid.UUID
	ProductName string
	VariationID *uuid.UUID
	Variation   types.Attributes
	Remaining   int
	Threshold   int
}

// StockAlerter delivers low stock alerts, typically by email to operations.
type StockAlerter interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// ThresholdSource yields the current low stock threshold.
type ThresholdSource interface {
	LowStockThreshold(ctx context.Context) int
}

// Ledger moves stock for orders and local sales.
type Ledger struct {
	repo       *Repository
	tx         txRunner
	outbox     outbox.Emitter
	alerts     StockAlerter
	thresholds ThresholdSource
	metrics    *metrics.StoreMetrics
	logg       *logger.Logger
	async      func(func())
}

// NewLedger builds the stock ledger. The alerter, threshold source, metrics and logger are optional.
func NewLedger(repo *Repository, tx txRunner, emitter outbox.Emitter, alerts StockAlerter, thresholds ThresholdSource, m *metrics.StoreMetrics, logg *logger.Logger) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Ledger{
		repo:       repo,
		tx:         tx,
		outbox:     emitter,
		alerts:     alerts,
		thresholds: thresholds,
		metrics:    m,
		logg:       logg,
		async:      func(fn func()) { go fn() },
	}, nil
}

// ResolveVariation maps a selection onto one of the product's variations.
// Products without variations resolve to nil and use the aggregate stock.
func ResolveVariation(product *models.Product, selector types.Attributes) (*models.ProductVariation, error) {
	if !product.HasVariations() {
		return nil, nil
	}
	selector = selector.Normalize()
	if len(selector) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a variation must be selected for %s", product.Name))
	}
	variation := product.FindVariation(selector)
	if variation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeVariationNotFound, fmt.Sprintf("no variation of %s matches %s", product.Name, selector.String())).
			WithDetails(map[string]any{"product_id": product.ID, "selected_variation": selector})
	}
	return variation, nil
}

// CheckAvailability fails the same way Reserve would, without touching stock.
func (l *Ledger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int, selector types.Attributes) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := l.loadProduct(ctx, l.repo, productID)
	if err != nil {
		return err
	}
	variation, err := ResolveVariation(product, selector)
	if err != nil {
		return err
	}
	available := product.Stock
	if variation != nil {
		available = variation.Stock
	}
	if qty > available {
		return pkgerrors.InsufficientStock(available, qty)
	}
	return nil
}

// Reserve takes qty out of the resolved stock figure. A nil tx runs in a fresh transaction and any
// low stock alert goes out once it commits. With a caller tx no alert is sent, since the caller may
// still roll back; use ReserveTx and SendLowStock to get one.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, selector types.Attributes) error {
	if tx != nil {
		_, err := l.ReserveTx(ctx, tx, productID, qty, selector)
		return err
	}
	var alert *LowStockAlert
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		alert, err = l.ReserveTx(ctx, tx, productID, qty, selector)
		return err
	})
	if err != nil {
		return err
	}
	if alert != nil {
		l.SendLowStock(ctx, *alert)
	}
	return nil
}

// ReserveTx reserves inside tx and returns the low stock alert the deduction raised, if any.
// The StockLow outbox event is written to tx; the alert itself is for the caller to send after commit.
func (l *Ledger) ReserveTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, selector types.Attributes) (*LowStockAlert, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	repo := l.repo.WithTx(tx)
	product, err := l.loadProduct(ctx, repo, productID)
	if err != nil {
		return nil, err
	}
	variation, err := ResolveVariation(product, selector)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeVariationNotFound) {
			l.metrics.StockRejected("variation_not_found")
		}
		return nil, err
	}

	var remaining int
	if variation != nil {
		remaining, err = l.takeFromVariation(ctx, repo, product, variation, qty)
	} else {
		remaining, err = l.takeFromProduct(ctx, repo, product, qty)
	}
	if err != nil {
		return nil, err
	}
	l.metrics.StockReserved(qty)

	threshold := l.lowStockThreshold(ctx)
	if remaining <= 0 || remaining >= threshold {
		return nil, nil
	}
	alert := &LowStockAlert{
		ProductID:   product.ID,
		ProductName: product.Name,
		Remaining:   remaining,
		Threshold:   threshold,
	}
	if variation != nil {
		id := variation.ID
		alert.VariationID = &id
		alert.Variation = variation.Attributes.Clone()
	}
	if err := l.emitLowStock(ctx, tx, *alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Release puts qty back on the resolved stock figure.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, selector types.Attributes) error {
	return l.ReleaseVariation(ctx, tx, productID, nil, qty, selector)
}

// ReleaseVariation is Release for a line that recorded which variation it took from. The recorded
// variation wins while it still belongs to the product, so later attribute edits do not strand stock;
// otherwise the selector is resolved as usual.
func (l *Ledger) ReleaseVariation(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variationID *uuid.UUID, qty int, selector types.Attributes) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return l.within(ctx, tx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		product, err := l.loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		variation := recordedVariation(product, variationID)
		if variation == nil {
			if variation, err = ResolveVariation(product, selector); err != nil {
				return err
			}
		}
		if variation != nil {
			if _, err := repo.IncrementVariationStock(ctx, variation.ID, qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release variation stock")
			}
			if _, err := repo.RecomputeAggregate(ctx, product.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute product stock")
			}
		} else if _, err := repo.IncrementStock(ctx, product.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release product stock")
		}
		l.metrics.StockReleased(qty)
		return nil
	})
}

func recordedVariation(product *models.Product, id *uuid.UUID) *models.ProductVariation {
	if id == nil {
		return nil
	}
	for i := range product.Variations {
		if product.Variations[i].ID == *id {
			return &product.Variations[i]
		}
	}
	return nil
}

func (l *Ledger) takeFromVariation(ctx context.Context, repo *Repository, product *models.Product, variation *models.ProductVariation, qty int) (int, error) {
	if qty > variation.Stock {
		l.metrics.StockRejected("insufficient")
		return 0, pkgerrors.InsufficientStock(variation.Stock, qty)
	}
	ok, err := repo.DecrementVariationStock(ctx, variation.ID, qty)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement variation stock")
	}
	if !ok {
		// a concurrent writer got there first
		current, readErr := repo.CurrentVariationStock(ctx, variation.ID)
		if readErr != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "read variation stock")
		}
		l.metrics.StockRejected("insufficient")
		return 0, pkgerrors.InsufficientStock(current, qty)
	}
	if _, err := repo.RecomputeAggregate(ctx, product.ID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute product stock")
	}
	remaining, err := repo.CurrentVariationStock(ctx, variation.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read variation stock")
	}
	return remaining, nil
}

func (l *Ledger) takeFromProduct(ctx context.Context, repo *Repository, product *models.Product, qty int) (int, error) {
	if qty > product.Stock {
		l.metrics.StockRejected("insufficient")
		return 0, pkgerrors.InsufficientStock(product.Stock, qty)
	}
	ok, err := repo.DecrementStock(ctx, product.ID, qty)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement product stock")
	}
	current, readErr := repo.CurrentStock(ctx, product.ID)
	if readErr != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "read product stock")
	}
	if !ok {
		l.metrics.StockRejected("insufficient")
		return 0, pkgerrors.InsufficientStock(current, qty)
	}
	return current, nil
}

func (l *Ledger) loadProduct(ctx context.Context, repo *Repository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (l *Ledger) within(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return l.tx.WithTx(ctx, fn)
}

func (l *Ledger) lowStockThreshold(ctx context.Context) int {
	if l.thresholds == nil {
		return DefaultLowStockThreshold
	}
	return l.thresholds.LowStockThreshold(ctx)
}

func (l *Ledger) emitLowStock(ctx context.Context, tx *gorm.DB, alert LowStockAlert) error {
	data := payloads.StockLowEvent{
		ProductID:   alert.ProductID,
		ProductName: alert.ProductName,
		VariationID: alert.VariationID,
		Remaining:   alert.Remaining,
		Threshold:   alert.Threshold,
	}
	if len(alert.Variation) > 0 {
		data.Variation = alert.Variation.String()
	}
	return l.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateProduct,
		AggregateID:   alert.ProductID,
		Data:          data,
	})
}

// SendLowStock sends alerts in the background; failures only reach the log.
// Call it only after the transaction that raised them has committed.
func (l *Ledger) SendLowStock(ctx context.Context, alerts ...LowStockAlert) {
	for _, alert := range alerts {
		l.sendLowStock(ctx, alert)
	}
}

func (l *Ledger) sendLowStock(ctx context.Context, alert LowStockAlert) {
	l.metrics.LowStockAlert()
	if l.alerts == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	l.async(func() {
		if err := l.alerts.NotifyLowStock(bg, alert); err != nil {
			logCtx := l.logg.WithFields(bg, map[string]any{
				"product_id": alert.ProductID.String(),
				"remaining":  alert.Remaining,
			})
			l.logg.Error(logCtx, "low stock alert failed", err)
		}
	})
}
