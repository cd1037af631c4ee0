package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultBatchSize       = 100
	maxBatchesPerRun       = 50
	defaultPendingOrderTTL = 7 * 24 * time.Hour
	defaultRetention       = 30 * 24 * time.Hour
)

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type outboxPurger interface {
	PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationCleaner interface {
	Cleanup(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// StaleOrdersJobParams configure the pending order expiry job.
type StaleOrdersJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewStaleOrdersJob declines orders left pending longer than TTL, returning their stock.
func NewStaleOrdersJob(params StaleOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &staleOrdersJob{logg: params.Logger, orders: params.Orders, ttl: ttl, batch: batch, now: time.Now}, nil
}

type staleOrdersJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *staleOrdersJob) Name() string { return "stale_pending_orders" }

func (j *staleOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for i := 0; i < maxBatchesPerRun; i++ {
		declined, err := j.orders.ExpirePending(ctx, cutoff, j.batch)
		total += declined
		if err != nil {
			return fmt.Errorf("expire pending orders: %w", err)
		}
		if declined < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"declined": total,
	})
	j.logg.Info(logCtx, "stale pending orders declined")
	return nil
}

// OutboxRetentionJobParams configure the outbox purge job.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPurger
	Retention  time.Duration
}

// NewOutboxRetentionJob purges published outbox rows older than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &outboxRetentionJob{logg: params.Logger, repo: params.Repository, retention: retention, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxPurger
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox_retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.PurgeDelivered(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}

// NotificationCleanupJobParams configure the read notification purge job.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationCleaner
	Retention     time.Duration
	BatchSize     int
}

// NewNotificationCleanupJob deletes notifications read before the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize * 5
	}
	return &notificationCleanupJob{logg: params.Logger, notifications: params.Notifications, retention: retention, batch: batch, now: time.Now}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationCleaner
	retention     time.Duration
	batch         int
	now           func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification_cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for i := 0; i < maxBatchesPerRun; i++ {
		deleted, err := j.notifications.Cleanup(ctx, cutoff, j.batch)
		total += deleted
		if err != nil {
			return fmt.Errorf("notification cleanup: %w", err)
		}
		if deleted < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
