package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var errNoTransaction = errors.New("outbox writes need a transaction")

// Repository reads and settles rows of the outbox_events table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append queues event inside the caller's transaction.
func (r *Repository) Append(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTransaction
	}
	return tx.Create(&event).Error
}

// ClaimBatch locks up to limit undelivered rows with attempts left, oldest first.
// Concurrent publishers skip each other's locks; sqlite ignores the locking clause.
func (r *Repository) ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTransaction
	}
	var claimed []models.OutboxEvent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("created_at, id").
		Limit(limit).
		Find(&claimed).Error
	return claimed, err
}

func (r *Repository) MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return settle(tx, id, map[string]any{"published_at": at.UTC(), "last_error": nil})
}

// RecordAttempt counts one failed delivery; the row stays claimable.
func (r *Repository) RecordAttempt(tx *gorm.DB, id uuid.UUID, cause error) error {
	return settle(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    cause.Error(),
	})
}

// Exhaust sets attempt_count to ceiling so ClaimBatch never returns the row again.
func (r *Repository) Exhaust(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return settle(tx, id, map[string]any{"attempt_count": ceiling, "last_error": cause.Error()})
}

func settle(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	if tx == nil {
		return errNoTransaction
	}
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("outbox event %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// PurgeDelivered deletes rows delivered before cutoff.
func (r *Repository) PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
