package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/sequence"
)

// Service defines the order lifecycle.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	List(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusUpdateResult, error)
	UpdatePayment(ctx context.Context, input UpdatePaymentInput) (*OrderDTO, error)
	Delete(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) error
	// ExpirePending declines pending orders created before cutoff and returns how many were declined.
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Validator *Validator
	Ledger    StockLedger
	Cart      CartSource
	Sequence  sequence.Sequencer
	Outbox    outbox.Emitter
	Metrics   *metrics.StoreMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	validator *Validator
	ledger    StockLedger
	cart      CartSource
	sequence  sequence.Sequencer
	outbox    outbox.Emitter
	metrics   *metrics.StoreMetrics
	logg      *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Validator == nil:
		return nil, fmt.Errorf("order validator required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart source required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("order sequencer required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		validator: params.Validator,
		ledger:    params.Ledger,
		cart:      params.Cart,
		sequence:  params.Sequence,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      logg,
	}, nil
}

// Create validates the items, deducts stock per item and persists the order.
// A deduction failure on a later item leaves earlier deductions in place.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if !input.ShippingAddress.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	validation, err := s.validator.Validate(ctx, userID, input.Items)
	if err != nil {
		return nil, err
	}
	number, err := s.sequence.OrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	for i, item := range validation.Items {
		if err := s.ledger.Reserve(ctx, nil, item.ProductID, item.Quantity, item.SelectedVariation); err != nil {
			if i > 0 {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_number":   number,
					"reserved_items": i,
					"failed_product": item.ProductID.String(),
				})
				s.logg.Warn(logCtx, "order aborted after partial stock deduction")
			}
			return nil, err
		}
	}

	order := &models.Order{
		OrderNumber:     number,
		UserID:          userID,
		Items:           validation.Items,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		TotalPrice:      validation.Total,
		Status:          enums.OrderStatusPending,
		Notes:           trimmed(input.Notes),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(userID, user.Role),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        userID,
				CustomerEmail: user.Email,
				CustomerName:  user.FullName(),
				ItemCount:     len(order.Items),
				TotalPrice:    order.TotalPrice,
				PaymentMethod: order.PaymentMethod,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		if validation.FromCart {
			return s.cart.ClearTx(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		logCtx := s.logg.WithField(ctx, "order_number", number)
		s.logg.Error(logCtx, "persist order after stock deduction", err)
		return nil, err
	}
	s.metrics.Transition("order", string(enums.OrderStatusPending))
	return NewOrderDTO(order), nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	query := ListQuery{UserID: input.UserID, Limit: input.Limit}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &OrderList{Items: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Items = append(out.Items, *NewOrderDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !viewer.Admin && order.UserID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return NewOrderDTO(order), nil
}

// UpdateStatus applies an admin decision to a pending order. Accepting moves the order into a
// shipment row; declining returns its stock.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusUpdateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	target, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	var result *StatusUpdateResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		previous := order.Status
		if previous != enums.OrderStatusPending || target == previous {
			return pkgerrors.IllegalTransition(string(previous), string(target))
		}

		result = &StatusUpdateResult{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: target}
		var customer *models.User
		switch target {
		case enums.OrderStatusAccepted:
			shipment, user, err := s.migrate(ctx, repo, order)
			if err != nil {
				return err
			}
			id := shipment.ID
			result.ShipmentID = &id
			customer = user
		case enums.OrderStatusDeclined:
			if err := s.releaseItems(ctx, tx, order); err != nil {
				return err
			}
			if err := repo.UpdateStatus(ctx, order.ID, target); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		case enums.OrderStatusApproved, enums.OrderStatusDenied:
			if err := repo.UpdateStatus(ctx, order.ID, target); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		default:
			return pkgerrors.IllegalTransition(string(previous), string(target))
		}

		if target != enums.OrderStatusAccepted {
			updated, err := loadOrder(ctx, repo, order.ID)
			if err != nil {
				return err
			}
			result.Order = NewOrderDTO(updated)
			customer = s.customer(ctx, repo, order.UserID)
		}
		data := payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         order.UserID,
			PreviousStatus: previous,
			Status:         target,
			ShipmentID:     result.ShipmentID,
		}
		if customer != nil {
			data.CustomerEmail = customer.Email
			data.CustomerName = customer.FullName()
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(input.ActorUserID, input.ActorRole),
			Data:          data,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Transition("order", string(target))
	return result, nil
}

// migrate copies the order into a shipment row and deletes the order. Nothing is written unless the
// order has a customer, a shipping address and at least one item.
func (s *service) migrate(ctx context.Context, repo Repository, order *models.Order) (*models.Shipment, *models.User, error) {
	user, err := repo.FindUser(ctx, order.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order customer")
	}
	var missing []string
	if user == nil {
		missing = append(missing, "user")
	}
	if !order.ShippingAddress.IsComplete() {
		missing = append(missing, "shipping_address")
	}
	if len(order.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeIncompleteOrder, fmt.Sprintf("order %s is missing %s", order.OrderNumber, strings.Join(missing, ", "))).
			WithDetails(map[string]any{"missing": missing})
	}

	shipment, err := repo.FindShipmentByOrderID(ctx, order.ID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now().UTC()
		phone := user.Phone
		if order.ShippingAddress.Phone != "" {
			p := order.ShippingAddress.Phone
			phone = &p
		}
		shipment = &models.Shipment{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			UserID:          order.UserID,
			CustomerName:    user.FullName(),
			CustomerEmail:   user.Email,
			CustomerPhone:   phone,
			ShippingAddress: *order.ShippingAddress,
			PaymentMethod:   order.PaymentMethod,
			PaymentStatus:   order.PaymentStatus,
			TotalPrice:      order.TotalPrice,
			Items:           order.Items,
			Status:          enums.ShipmentStatusAccepted,
			OrderedAt:       order.CreatedAt,
			AcceptedAt:      now,
		}
		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}
	default:
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}

	if err := repo.Delete(ctx, order.ID); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete migrated order")
	}
	return shipment, user, nil
}

func (s *service) UpdatePayment(ctx context.Context, input UpdatePaymentInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	status, err := enums.ParsePaymentStatus(strings.TrimSpace(input.PaymentStatus))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
	}
	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadOrder(ctx, repo, input.OrderID); err != nil {
			return err
		}
		if err := repo.UpdatePaymentStatus(ctx, input.OrderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		updated, err = loadOrder(ctx, repo, input.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(updated), nil
}

// Delete removes the order and any linked shipment. Stock comes back unless a decline already returned it.
func (s *service) Delete(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		restore := order.Status != enums.OrderStatusDeclined
		if restore {
			if err := s.releaseItems(ctx, tx, order); err != nil {
				return err
			}
		}
		if _, err := repo.DeleteShipmentByOrderID(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete linked shipment")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(actorUserID, actorRole),
			Data: payloads.OrderDeletedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				StockRestored: restore,
			},
		})
	})
}

func (s *service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	stale, err := s.repo.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}
	declined := 0
	var errs error
	for _, order := range stale {
		_, err := s.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: string(enums.OrderStatusDeclined)})
		switch {
		case err == nil:
			declined++
		case pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition), pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
			// decided by an admin in the meantime
		default:
			errs = multierr.Append(errs, fmt.Errorf("decline %s: %w", order.OrderNumber, err))
		}
	}
	return declined, errs
}

// releaseItems returns every line's quantity to the variation it was taken from. Lines that no longer
// map onto the catalog are skipped: the product is gone, or the variation is gone and the selection
// matches nothing (or the product gained variations the line never chose).
func (s *service) releaseItems(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		err := s.ledger.ReleaseVariation(ctx, tx, item.ProductID, item.VariationID, item.Quantity, item.SelectedVariation)
		if err == nil {
			continue
		}
		if unreleasable(err) {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_number": order.OrderNumber,
				"product_id":   item.ProductID.String(),
				"quantity":     item.Quantity,
			})
			s.logg.Warn(logCtx, "stock release skipped for missing catalog entry")
			continue
		}
		return err
	}
	return nil
}

func unreleasable(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeNotFound) ||
		pkgerrors.HasCode(err, pkgerrors.CodeVariationNotFound) ||
		pkgerrors.HasCode(err, pkgerrors.CodeValidation)
}

func (s *service) customer(ctx context.Context, repo Repository, userID uuid.UUID) *models.User {
	user, err := repo.FindUser(ctx, userID)
	if err != nil {
		return nil
	}
	return user
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func actor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
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
