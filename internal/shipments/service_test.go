package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type stubRepo struct {
	rows map[uuid.UUID]*models.Shipment
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Shipment, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubRepo) List(context.Context, ListQuery) ([]models.Shipment, string, error) {
	out := make([]models.Shipment, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, *row)
	}
	return out, "", nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.ShipmentStatus, stamps map[string]any) error {
	row, ok := s.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = status
	if at, ok := stamps["shipped_at"].(time.Time); ok {
		row.ShippedAt = &at
	}
	if at, ok := stamps["delivered_at"].(time.Time); ok {
		row.DeliveredAt = &at
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestService(t *testing.T, rows ...*models.Shipment) (*service, *stubRepo, *recordingEmitter) {
	t.Helper()
	repo := &stubRepo{rows: map[uuid.UUID]*models.Shipment{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	emitter := &recordingEmitter{}
	svc, err := NewService(repo, stubTx{}, emitter, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return impl, repo, emitter
}

func TestUpdateStatusFollowsFixedSequence(t *testing.T) {
	shipment := &models.Shipment{ID: uuid.New(), OrderNumber: "ORD-20260301-00001", UserID: uuid.New(), Status: enums.ShipmentStatusAccepted}
	svc, repo, emitter := newTestService(t, shipment)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "delivered"}); !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected illegal transition skipping shipped, got %v", err)
	}

	dto, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "shipped"})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if dto.Status != enums.ShipmentStatusShipped || dto.ShippedAt == nil {
		t.Fatalf("expected shipped with timestamp, got %+v", dto)
	}
	if dto.DeliveredAt != nil {
		t.Fatalf("delivered_at should not be set yet")
	}

	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "shipped"}); !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected repeated shipped to fail, got %v", err)
	}

	dto, err = svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "delivered"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if dto.DeliveredAt == nil || repo.rows[shipment.ID].Status != enums.ShipmentStatusDelivered {
		t.Fatalf("expected delivered shipment, got %+v", dto)
	}

	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
	data := emitter.events[1].Data.(payloads.ShipmentStatusChangedEvent)
	if data.PreviousStatus != enums.ShipmentStatusShipped || data.Status != enums.ShipmentStatusDelivered {
		t.Fatalf("unexpected event payload %+v", data)
	}
}

func TestUpdateStatusRejectsCancelAndUnknown(t *testing.T) {
	shipment := &models.Shipment{ID: uuid.New(), Status: enums.ShipmentStatusAccepted}
	svc, _, emitter := newTestService(t, shipment)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "cancelled"}); !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected cancelled to be unreachable, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "accepted"}); !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected same status to fail, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: shipment.ID, Status: "lost"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, UpdateStatusInput{ShipmentID: uuid.New(), Status: "shipped"}); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no events expected, got %d", len(emitter.events))
	}
}

func TestGetChecksOwnership(t *testing.T) {
	owner := uuid.New()
	shipment := &models.Shipment{ID: uuid.New(), UserID: owner, Status: enums.ShipmentStatusAccepted}
	svc, _, _ := newTestService(t, shipment)

	if _, err := svc.Get(context.Background(), Viewer{UserID: uuid.New()}, shipment.ID); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), Viewer{UserID: owner}, shipment.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(context.Background(), Viewer{Admin: true}, shipment.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}
