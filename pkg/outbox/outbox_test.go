package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	db := dbtest.New(t)
	svc := outbox.NewService(outbox.NewRepository(db), logger.Nop())
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderDeletedEvent{OrderID: orderID, OrderNumber: "ORD-1", StockRestored: true},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "aggregate_id = ?", orderID).Error)
	assert.Equal(t, enums.EventOrderDeleted, row.EventType)
	assert.Nil(t, row.PublishedAt)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, outbox.CurrentVersion, envelope.Version)
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"`+orderID.String()+`","order_number":"ORD-1","stock_restored":true}`, string(envelope.Data))
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	db := dbtest.New(t)
	svc := outbox.NewService(outbox.NewRepository(db), nil)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   uuid.New(),
			Data:          payloads.StockLowEvent{Remaining: 1},
		}))
		return errors.New("abort")
	})

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsMissingTxAndUnknownTypes(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventStockLow, AggregateType: enums.AggregateProduct})
	assert.Error(t, err)

	db := dbtest.New(t)
	err = svc.Emit(context.Background(), db, outbox.DomainEvent{EventType: "bogus", AggregateType: enums.AggregateProduct})
	assert.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.New(t)
	repo := outbox.NewRepository(db)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, db, outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   uuid.New(),
			Data:          payloads.StockLowEvent{Remaining: i},
		}))
	}

	rows, err := repo.ClaimBatch(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkDelivered(db, rows[0].ID, time.Now()))
	require.NoError(t, repo.RecordAttempt(db, rows[1].ID, errors.New("smtp timeout")))
	require.NoError(t, repo.Exhaust(db, rows[2].ID, errors.New("bad payload"), 3))
	assert.ErrorIs(t, repo.RecordAttempt(db, uuid.New(), errors.New("gone")), gorm.ErrRecordNotFound)
	assert.Error(t, repo.Append(nil, models.OutboxEvent{}))

	pending, err := repo.ClaimBatch(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rows[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "smtp timeout", *pending[0].LastError)

	deleted, err := repo.PurgeDelivered(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQRepositoryTruncatesMessages(t *testing.T) {
	db := dbtest.New(t)
	dlq := outbox.NewDLQRepository(db)
	eventID := uuid.New()
	long := strings.Repeat("x", 5000)

	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		FailedAt:      time.Now().UTC(),
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, 1024)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := dlq.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNewDLQEntryCopiesEventAndCapsError(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"order_id":"x"}`),
		AttemptCount:  7,
	}
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.FixedZone("CST", -6*3600))

	entry := outbox.NewDLQEntry(event, enums.OutboxDLQReasonMaxAttempts, errors.New(strings.Repeat("é", 600)), at)
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, 7, entry.AttemptCount)
	assert.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, 1024)

	assert.Nil(t, outbox.NewDLQEntry(event, enums.OutboxDLQReasonNonRetryable, nil, at).ErrorMessage)
}
