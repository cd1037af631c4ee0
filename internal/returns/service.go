package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages customer return requests.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateReturnInput) (*ReturnDTO, error)
	List(ctx context.Context, input ListReturnsInput) (*ReturnList, error)
	Get(ctx context.Context, viewer Viewer, returnID uuid.UUID) (*ReturnDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ReturnDTO, error)
}

var transitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusPending:  {enums.ReturnStatusApproved, enums.ReturnStatusRejected},
	enums.ReturnStatusApproved: {enums.ReturnStatusReceived},
	enums.ReturnStatusReceived: {enums.ReturnStatusRefunded},
}

func canTransition(from, to enums.ReturnStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.StoreMetrics
}

// NewService builds the returns service. Metrics are optional.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, m *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, metrics: m}, nil
}

// source is the common view of a returnable order or shipment record.
type source struct {
	userID      uuid.UUID
	orderNumber string
	delivered   bool
	status      string
	items       []models.OrderItem
}

// Create opens a return. Quantities are capped at the source line and the refund uses the
// price snapshot of the source, not the current catalog price.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateReturnInput) (*ReturnDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	sourceType, err := enums.ParseReturnSourceType(strings.TrimSpace(input.OrderType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_type")
	}
	reason, err := enums.ParseReturnReason(strings.TrimSpace(input.Reason))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason")
	}
	if input.SourceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item must be returned")
	}

	var created *models.ReturnRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		src, err := loadSource(ctx, repo, sourceType, input.SourceID)
		if err != nil {
			return err
		}
		if src.userID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if !src.delivered {
			return pkgerrors.New(pkgerrors.CodeValidation, "only delivered orders can be returned").
				WithDetails(map[string]any{"status": src.status})
		}
		open, err := repo.HasOpen(ctx, sourceType, input.SourceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "a return request is already open for this order")
		}

		items, refund, err := buildItems(src.items, input.Items)
		if err != nil {
			return err
		}
		request := &models.ReturnRequest{
			SourceType:  sourceType,
			UserID:      userID,
			OrderNumber: src.orderNumber,
			Items:       items,
			Reason:      reason,
			Description: trimmed(input.Description),
			Status:      enums.ReturnStatusPending,
			RefundTotal: refund,
		}
		id := input.SourceID
		if sourceType == enums.ReturnSourceShipment {
			request.ShipmentID = &id
		} else {
			request.OrderID = &id
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		created = request
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer},
			Data: payloads.ReturnRequestedEvent{
				ReturnID:    request.ID,
				SourceType:  sourceType,
				SourceID:    id,
				OrderNumber: request.OrderNumber,
				UserID:      userID,
				Reason:      reason,
				RefundTotal: refund,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return newReturnDTO(created), nil
}

func (s *service) List(ctx context.Context, input ListReturnsInput) (*ReturnList, error) {
	query := ListQuery{UserID: input.UserID, Limit: input.Limit}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseReturnStatus(raw)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	out := &ReturnList{Items: make([]ReturnDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Items = append(out.Items, *newReturnDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, returnID uuid.UUID) (*ReturnDTO, error) {
	request, err := loadReturn(ctx, s.repo, returnID)
	if err != nil {
		return nil, err
	}
	if !viewer.Admin && request.UserID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to user")
	}
	return newReturnDTO(request), nil
}

// UpdateStatus applies a review step: pending to approved or rejected, approved to received,
// received to refunded.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ReturnDTO, error) {
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	target, err := enums.ParseReturnStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	var updated *models.ReturnRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := loadReturn(ctx, repo, input.ReturnID)
		if err != nil {
			return err
		}
		previous := request.Status
		if !canTransition(previous, target) {
			return pkgerrors.IllegalTransition(string(previous), string(target))
		}
		if err := repo.UpdateStatus(ctx, request.ID, target, trimmed(input.AdminNote)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return status")
		}
		updated, err = loadReturn(ctx, repo, request.ID)
		if err != nil {
			return err
		}
		var actor *outbox.ActorRef
		if input.ActorUserID != uuid.Nil {
			actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnStatusChanged,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Actor:         actor,
			Data: payloads.ReturnStatusChangedEvent{
				ReturnID:       request.ID,
				OrderNumber:    request.OrderNumber,
				UserID:         request.UserID,
				PreviousStatus: previous,
				Status:         target,
				RefundTotal:    request.RefundTotal,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Transition("return", string(target))
	return newReturnDTO(updated), nil
}

func loadSource(ctx context.Context, repo Repository, sourceType enums.ReturnSourceType, id uuid.UUID) (*source, error) {
	if sourceType == enums.ReturnSourceShipment {
		shipment, err := repo.FindShipment(ctx, id)
		if err != nil {
			return nil, notFound(err, "shipment")
		}
		return &source{
			userID:      shipment.UserID,
			orderNumber: shipment.OrderNumber,
			delivered:   shipment.Status == enums.ShipmentStatusDelivered,
			status:      string(shipment.Status),
			items:       shipment.Items,
		}, nil
	}
	order, err := repo.FindOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return &source{
		userID:      order.UserID,
		orderNumber: order.OrderNumber,
		delivered:   order.Status == enums.OrderStatusDelivered,
		status:      string(order.Status),
		items:       order.Items,
	}, nil
}

func buildItems(lines []models.OrderItem, requested []ReturnLineInput) ([]models.ReturnItem, decimal.Decimal, error) {
	refund := decimal.Zero
	seen := make(map[int]bool, len(requested))
	out := make([]models.ReturnItem, 0, len(requested))
	for i, req := range requested {
		if req.ItemIndex < 0 || req.ItemIndex >= len(lines) {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].item_index %d is out of range", i, req.ItemIndex))
		}
		if req.Quantity <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if seen[req.ItemIndex] {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item_index %d listed twice", req.ItemIndex))
		}
		seen[req.ItemIndex] = true

		line := lines[req.ItemIndex]
		qty := req.Quantity
		if qty > line.Quantity {
			qty = line.Quantity
		}
		out = append(out, models.ReturnItem{
			ItemIndex:         req.ItemIndex,
			ProductID:         line.ProductID,
			Name:              line.Name,
			Quantity:          qty,
			Price:             line.Price,
			SelectedVariation: line.SelectedVariation,
		})
		refund = refund.Add(line.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return out, refund, nil
}

func loadReturn(ctx context.Context, repo Repository, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "return request")
	}
	return request, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
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
