package product

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []LowStockAlert
	err    error
}

func (r *recordingAlerter) NotifyLowStock(_ context.Context, alert LowStockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return r.err
}

type fixedThreshold int

func (f fixedThreshold) LowStockThreshold(context.Context) int { return int(f) }

func newTestLedger(t *testing.T, conn *gorm.DB, alerts StockAlerter) *Ledger {
	t.Helper()
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	ledger, err := NewLedger(NewRepository(conn), db.Wrap(conn), emitter, alerts, fixedThreshold(5), nil, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ledger.async = func(fn func()) { fn() }
	return ledger
}

func loadStock(t *testing.T, conn *gorm.DB, productID uuid.UUID) (int, map[string]int) {
	t.Helper()
	product, err := NewRepository(conn).FindByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	byColor := map[string]int{}
	for _, v := range product.Variations {
		byColor[v.Attributes["color"]] = v.Stock
	}
	return product.Stock, byColor
}

func TestReserveAndReleaseVariationKeepsAggregateInSync(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	ctx := context.Background()
	product := dbtest.MustCreateVariantProduct(t, conn, "100",
		dbtest.VariationSeed{Attributes: types.Attributes{"color": "red"}, Stock: 3},
		dbtest.VariationSeed{Attributes: types.Attributes{"color": "blue"}, Stock: 2},
	)

	if err := ledger.Reserve(ctx, nil, product.ID, 2, types.Attributes{"color": "red"}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	aggregate, variations := loadStock(t, conn, product.ID)
	if variations["red"] != 1 || aggregate != 3 {
		t.Fatalf("expected red=1 aggregate=3, got red=%d aggregate=%d", variations["red"], aggregate)
	}

	if err := ledger.Release(ctx, nil, product.ID, 2, types.Attributes{"color": "red"}); err != nil {
		t.Fatalf("release: %v", err)
	}
	aggregate, variations = loadStock(t, conn, product.ID)
	if variations["red"] != 3 || aggregate != 5 {
		t.Fatalf("expected red=3 aggregate=5, got red=%d aggregate=%d", variations["red"], aggregate)
	}
}

func TestReserveInsufficientStockReportsAvailable(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	product := dbtest.MustCreateProduct(t, conn, "10", 4)

	err := ledger.Reserve(context.Background(), nil, product.ID, 5, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["available"] != 4 || details["requested"] != 5 {
		t.Fatalf("unexpected details %+v", details)
	}
	aggregate, _ := loadStock(t, conn, product.ID)
	if aggregate != 4 {
		t.Fatalf("stock must be untouched, got %d", aggregate)
	}
}

func TestReserveUnknownVariation(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	product := dbtest.MustCreateVariantProduct(t, conn, "100",
		dbtest.VariationSeed{Attributes: types.Attributes{"color": "red", "size": "M"}, Stock: 3},
	)

	err := ledger.Reserve(context.Background(), nil, product.ID, 1, types.Attributes{"color": "green"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeVariationNotFound) {
		t.Fatalf("expected variation not found, got %v", err)
	}
	err = ledger.Reserve(context.Background(), nil, product.ID, 1, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without a selection, got %v", err)
	}
	if err := ledger.Reserve(context.Background(), nil, product.ID, 1, types.Attributes{"size": "M", "color": "red"}); err != nil {
		t.Fatalf("order independent selection should match: %v", err)
	}
}

func TestReserveMissingProduct(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	err := ledger.Reserve(context.Background(), nil, uuid.New(), 1, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveDispatchesLowStockAlertAndEvent(t *testing.T) {
	conn := dbtest.New(t)
	alerter := &recordingAlerter{err: errors.New("smtp down")}
	ledger := newTestLedger(t, conn, alerter)
	product := dbtest.MustCreateProduct(t, conn, "10", 6)

	if err := ledger.Reserve(context.Background(), nil, product.ID, 2, nil); err != nil {
		t.Fatalf("reserve should not fail when the alert fails: %v", err)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].Remaining != 4 || alerter.alerts[0].Threshold != 5 {
		t.Fatalf("expected one alert with 4 remaining, got %+v", alerter.alerts)
	}

	var events []models.OutboxEvent
	if err := conn.Where("event_type = ?", enums.EventStockLow).Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].AggregateID != product.ID {
		t.Fatalf("expected a stock_low event for the product, got %+v", events)
	}

	if err := ledger.Reserve(context.Background(), nil, product.ID, 4, nil); err != nil {
		t.Fatalf("reserve remaining: %v", err)
	}
	if len(alerter.alerts) != 1 {
		t.Fatalf("selling out must not raise a low stock alert, got %d alerts", len(alerter.alerts))
	}
}

func TestReserveInCallerTransactionRollsBack(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	product := dbtest.MustCreateProduct(t, conn, "10", 10)

	err := db.Wrap(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := ledger.Reserve(context.Background(), tx, product.ID, 3, nil); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected abort error")
	}
	aggregate, _ := loadStock(t, conn, product.ID)
	if aggregate != 10 {
		t.Fatalf("expected rollback to restore stock, got %d", aggregate)
	}
}

func TestReserveInRolledBackTransactionSendsNoAlert(t *testing.T) {
	conn := dbtest.New(t)
	alerter := &recordingAlerter{}
	ledger := newTestLedger(t, conn, alerter)
	product := dbtest.MustCreateProduct(t, conn, "10", 5)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Reserve(context.Background(), tx, product.ID, 2, nil); err != nil {
			return err
		}
		return errors.New("later line failed")
	})
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}
	if aggregate, _ := loadStock(t, conn, product.ID); aggregate != 5 {
		t.Fatalf("expected stock 5 after rollback, got %d", aggregate)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("rolled back reservation raised %d alerts", len(alerter.alerts))
	}
	var events int64
	if err := conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockLow).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 0 {
		t.Fatalf("expected the stock_low event to roll back, got %d", events)
	}
}

func TestReserveTxReturnsAlertForCallerToSend(t *testing.T) {
	conn := dbtest.New(t)
	alerter := &recordingAlerter{}
	ledger := newTestLedger(t, conn, alerter)
	product := dbtest.MustCreateProduct(t, conn, "10", 5)

	var alert *LowStockAlert
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		alert, err = ledger.ReserveTx(context.Background(), tx, product.ID, 2, nil)
		return err
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if alert == nil || alert.Remaining != 3 {
		t.Fatalf("expected an alert with 3 remaining, got %+v", alert)
	}
	if len(alerter.alerts) != 0 {
		t.Fatal("ReserveTx must leave sending to the caller")
	}

	ledger.SendLowStock(context.Background(), *alert)
	if len(alerter.alerts) != 1 || alerter.alerts[0].ProductID != product.ID {
		t.Fatalf("expected one alert after commit, got %+v", alerter.alerts)
	}
}

func TestCheckAvailabilityDoesNotMutate(t *testing.T) {
	conn := dbtest.New(t)
	ledger := newTestLedger(t, conn, nil)
	product := dbtest.MustCreateVariantProduct(t, conn, "100",
		dbtest.VariationSeed{Attributes: types.Attributes{"color": "red"}, Stock: 1},
	)

	if err := ledger.CheckAvailability(context.Background(), product.ID, 1, types.Attributes{"color": "red"}); err != nil {
		t.Fatalf("expected available: %v", err)
	}
	err := ledger.CheckAvailability(context.Background(), product.ID, 2, types.Attributes{"color": "red"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	aggregate, variations := loadStock(t, conn, product.ID)
	if aggregate != 1 || variations["red"] != 1 {
		t.Fatalf("availability check mutated stock: %d/%d", aggregate, variations["red"])
	}
}

func TestResolveVariationIgnoresSelectionWithoutVariations(t *testing.T) {
	product := &models.Product{Name: "Cable"}
	variation, err := ResolveVariation(product, types.Attributes{"color": "red"})
	if err != nil || variation != nil {
		t.Fatalf("expected aggregate path, got %v %v", variation, err)
	}
}
