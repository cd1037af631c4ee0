package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// defaultCleanupBatch bounds one cleanup delete when the caller passes no limit.
const defaultCleanupBatch = 500

// ListFilter selects one page of the admin feed.
type ListFilter struct {
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// Repository stores admin notifications.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) notifications(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns newest first along with the cursor of the following page.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Notification, string, error) {
	q := r.notifications(ctx)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := q.Scopes(pagination.Scope(pagination.Params{Limit: f.Limit}, f.Cursor)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, f.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *Repository) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	err := r.notifications(ctx).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps read_at once. found is false only when no notification has that id;
// marking an already read notification again is reported as found.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (found bool, err error) {
	res := r.notifications(ctx).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}
	var hits int64
	if err := r.notifications(ctx).Where("id = ?", id).Count(&hits).Error; err != nil {
		return false, err
	}
	return hits > 0, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, at time.Time) (int64, error) {
	res := r.notifications(ctx).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore removes at most limit notifications read before cutoff, oldest first.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = defaultCleanupBatch
	}
	oldest := r.notifications(ctx).
		Select("id").
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Order("read_at ASC").
		Limit(limit)
	res := r.db.WithContext(ctx).Where("id IN (?)", oldest).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
