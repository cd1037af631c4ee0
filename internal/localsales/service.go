package localsales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/qrcode"
	"github.com/angelmondragon/storefront-backend/pkg/sequence"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const dateLayout = "2006-01-02"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// StockLedger deducts stock inside the caller's transaction and sends the resulting low stock
// alerts once that transaction has committed.
type StockLedger interface {
	ReserveTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, selector types.Attributes) (*product.LowStockAlert, error)
	SendLowStock(ctx context.Context, alerts ...product.LowStockAlert)
}

// TaxSource yields the store default tax rate.
type TaxSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// Service records counter sales.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateSaleInput) (*SaleDTO, error)
	List(ctx context.Context, input ListSalesInput) (*SaleList, error)
	Get(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error)
	// Delete removes the invoice. Stock taken by the sale stays deducted.
	Delete(ctx context.Context, saleID uuid.UUID) error
	Export(ctx context.Context, from, to string) (*Export, error)
}

// ServiceParams wires the local sale service.
type ServiceParams struct {
	Repo     Repository
	Products productReader
	Tx       txRunner
	Ledger   StockLedger
	Taxes    TaxSource
	Sequence sequence.Sequencer
	Outbox   outbox.Emitter
	Store    config.StorefrontConfig
	Metrics  *metrics.StoreMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	products productReader
	tx       txRunner
	ledger   StockLedger
	taxes    TaxSource
	sequence sequence.Sequencer
	outbox   outbox.Emitter
	store    config.StorefrontConfig
	metrics  *metrics.StoreMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("local sale repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product reader required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("invoice sequencer required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		ledger:   params.Ledger,
		taxes:    params.Taxes,
		sequence: params.Sequence,
		outbox:   params.Outbox,
		store:    params.Store,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Create prices the lines, deducts every line's stock and stores the invoice in one transaction.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateSaleInput) (*SaleDTO, error) {
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_name is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if !input.PaymentMethod.IsValid() || input.PaymentMethod == enums.PaymentMethodCashOnDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	items, subtotal, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	rate, err := s.taxRate(ctx, input.TaxRate)
	if err != nil {
		return nil, err
	}
	tax := subtotal.Mul(rate).Round(2)
	discount := decimal.Zero
	if input.Discount != nil {
		discount = input.Discount.Round(2)
	}
	if discount.IsNegative() || discount.GreaterThan(subtotal.Add(tax)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between zero and the invoice amount")
	}
	total := subtotal.Add(tax).Sub(discount)

	var paid, change *decimal.Decimal
	if input.AmountPaid != nil {
		amount := input.AmountPaid.Round(2)
		if amount.LessThan(total) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_paid is below the invoice total").
				WithDetails(map[string]any{"total": total.StringFixed(2), "amount_paid": amount.StringFixed(2)})
		}
		due := amount.Sub(total)
		paid, change = &amount, &due
	}

	number, err := s.sequence.InvoiceNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate invoice number")
	}

	sale := &models.LocalSale{
		InvoiceNumber: number,
		CustomerName:  customer,
		CustomerPhone: trimmed(input.CustomerPhone),
		CustomerEmail: trimmed(input.CustomerEmail),
		Items:         items,
		Subtotal:      subtotal,
		TaxRate:       rate,
		Tax:           tax,
		Discount:      discount,
		Total:         total,
		AmountPaid:    paid,
		ChangeDue:     change,
		PaymentMethod: input.PaymentMethod,
		Notes:         trimmed(input.Notes),
		CreatedBy:     actorID,
	}
	if input.IncludeQRCode == nil || *input.IncludeQRCode {
		code, err := qrcode.DataURL(s.store.InvoiceURL(number))
		if err != nil {
			logCtx := s.logg.WithField(ctx, "invoice_number", number)
			s.logg.Warn(logCtx, "invoice qr code skipped: "+err.Error())
		} else {
			sale.QRCode = &code
		}
	}

	var alerts []product.LowStockAlert
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		alerts = alerts[:0]
		for _, item := range items {
			alert, err := s.ledger.ReserveTx(ctx, tx, item.ProductID, item.Quantity, item.SelectedVariation)
			if err != nil {
				return err
			}
			if alert != nil {
				alerts = append(alerts, *alert)
			}
		}
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create local sale")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLocalSaleCreated,
			AggregateType: enums.AggregateLocalSale,
			AggregateID:   sale.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.UserRoleAdmin},
			Data: payloads.LocalSaleCreatedEvent{
				SaleID:        sale.ID,
				InvoiceNumber: sale.InvoiceNumber,
				Total:         sale.Total,
				PaymentMethod: sale.PaymentMethod,
				CreatedBy:     actorID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.ledger.SendLowStock(ctx, alerts...)
	s.metrics.Transition("local_sale", "created")
	return newSaleDTO(sale, s.store.InvoiceURL(sale.InvoiceNumber)), nil
}

func (s *service) List(ctx context.Context, input ListSalesInput) (*SaleList, error) {
	from, to, err := parseRange(input.From, input.To)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, ListQuery{From: from, To: to, Limit: input.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list local sales")
	}
	out := &SaleList{Items: make([]SaleDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Items = append(out.Items, *newSaleDTO(&rows[i], s.store.InvoiceURL(rows[i].InvoiceNumber)))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "local sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load local sale")
	}
	return newSaleDTO(sale, s.store.InvoiceURL(sale.InvoiceNumber)), nil
}

func (s *service) Delete(ctx context.Context, saleID uuid.UUID) error {
	if err := s.repo.Delete(ctx, saleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "local sale not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete local sale")
	}
	return nil
}

// priceItems resolves products outside the write transaction and snapshots each line.
func (s *service) priceItems(ctx context.Context, inputs []SaleItemInput) ([]models.LocalSaleItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].product_id is required", i))
		}
		if in.Quantity <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].unit_price must not be negative", i))
		}
		ids = append(ids, in.ProductID)
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	items := make([]models.LocalSaleItem, 0, len(inputs))
	subtotal := decimal.Zero
	for _, in := range inputs {
		p, ok := found[in.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": in.ProductID})
		}
		variation, err := product.ResolveVariation(p, in.SelectedVariation)
		if err != nil {
			return nil, decimal.Zero, err
		}
		price := p.ListPrice(variation)
		if in.UnitPrice != nil && in.UnitPrice.IsPositive() {
			price = in.UnitPrice.Round(2)
		}
		line := models.LocalSaleItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  in.Quantity,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(int64(in.Quantity))),
		}
		if variation != nil {
			id := variation.ID
			line.VariationID = &id
			line.SelectedVariation = variation.Attributes.Clone()
		}
		subtotal = subtotal.Add(line.LineTotal)
		items = append(items, line)
	}
	return items, subtotal, nil
}

func (s *service) taxRate(ctx context.Context, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		if requested.IsNegative() || requested.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "tax_rate must be between 0 and 1")
		}
		return *requested, nil
	}
	if s.taxes == nil {
		return s.store.DefaultTaxRate, nil
	}
	rate, err := s.taxes.TaxRate(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tax rate")
	}
	return rate, nil
}

// parseRange accepts dates or RFC 3339 timestamps. A bare To date includes the whole day.
func parseRange(rawFrom, rawTo string) (*time.Time, *time.Time, error) {
	from, err := parseBound(rawFrom, false)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from")
	}
	to, err := parseBound(rawTo, true)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to")
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	return from, to, nil
}

func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if day, err := time.Parse(dateLayout, raw); err == nil {
		if upper {
			day = day.AddDate(0, 0, 1)
		}
		return &day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	ts = ts.UTC()
	return &ts, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
