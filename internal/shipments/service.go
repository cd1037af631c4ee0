package shipments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Service tracks accepted orders through delivery.
type Service interface {
	List(ctx context.Context, input ListShipmentsInput) (*ShipmentList, error)
	Get(ctx context.Context, viewer Viewer, shipmentID uuid.UUID) (*ShipmentDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ShipmentDTO, error)
}

// predecessors lists the only status each reachable status may follow.
var predecessors = map[enums.ShipmentStatus]enums.ShipmentStatus{
	enums.ShipmentStatusShipped:   enums.ShipmentStatusAccepted,
	enums.ShipmentStatusDelivered: enums.ShipmentStatusShipped,
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.StoreMetrics
	now     func() time.Time
}

// NewService builds the shipment service. Metrics are optional.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, m *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  emitter,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) List(ctx context.Context, input ListShipmentsInput) (*ShipmentList, error) {
	query := ListQuery{UserID: input.UserID, Limit: input.Limit}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseShipmentStatus(raw)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}
	out := &ShipmentList{Items: make([]ShipmentDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Items = append(out.Items, *newShipmentDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, shipmentID uuid.UUID) (*ShipmentDTO, error) {
	shipment, err := loadShipment(ctx, s.repo, shipmentID)
	if err != nil {
		return nil, err
	}
	if !viewer.Admin && shipment.UserID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shipment does not belong to user")
	}
	return newShipmentDTO(shipment), nil
}

// UpdateStatus moves a shipment one step along accepted, shipped, delivered and stamps the step.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ShipmentDTO, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	target, err := enums.ParseShipmentStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	var updated *models.Shipment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shipment, err := loadShipment(ctx, repo, input.ShipmentID)
		if err != nil {
			return err
		}
		previous := shipment.Status
		required, reachable := predecessors[target]
		if !reachable || previous != required {
			return pkgerrors.IllegalTransition(string(previous), string(target))
		}

		now := s.now()
		stamps := map[string]any{}
		switch target {
		case enums.ShipmentStatusShipped:
			stamps["shipped_at"] = now
		case enums.ShipmentStatusDelivered:
			stamps["delivered_at"] = now
		}
		if err := repo.UpdateStatus(ctx, shipment.ID, target, stamps); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
		}
		updated, err = loadShipment(ctx, repo, shipment.ID)
		if err != nil {
			return err
		}

		var actor *outbox.ActorRef
		if input.ActorUserID != uuid.Nil {
			actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentStatusChanged,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         actor,
			Data: payloads.ShipmentStatusChangedEvent{
				ShipmentID:     shipment.ID,
				OrderNumber:    shipment.OrderNumber,
				UserID:         shipment.UserID,
				CustomerEmail:  shipment.CustomerEmail,
				CustomerName:   shipment.CustomerName,
				PreviousStatus: previous,
				Status:         target,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Transition("shipment", string(target))
	return newShipmentDTO(updated), nil
}

func loadShipment(ctx context.Context, repo Repository, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}
