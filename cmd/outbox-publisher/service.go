package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize       = 50
	defaultPollInterval    = 500 * time.Millisecond
	defaultDeliveryTimeout = 15 * time.Second
	defaultMaxAttempts     = 10
	maxBackoff             = 10 * time.Second
	jitterWindow           = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordAttempt(tx *gorm.DB, id uuid.UUID, cause error) error
	Exhaust(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Handler reacts to committed storefront events: the admin notification recorder and the customer mailer.
type Handler interface {
	Name() string
	Handles(enums.OutboxEventType) bool
	Handle(context.Context, *registry.ResolvedEvent) error
}

type processedGuard interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Cache         pinger
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Handlers      []Handler
	Idempotency   processedGuard
	Metrics       *metrics.OutboxMetrics
}

// Service claims unpublished outbox rows in batches and settles each one inside the claiming transaction:
// published, scheduled for retry, or moved to the DLQ.
type Service struct {
	logg            *logger.Logger
	db              dbClient
	cache           pinger
	repo            outboxRepository
	registry        registryResolver
	dlq             dlqRepository
	handlers        []Handler
	guard           processedGuard
	metrics         *metrics.OutboxMetrics
	batchSize       int
	maxAttempts     int
	pollInterval    time.Duration
	deliveryTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	case len(params.Handlers) == 0:
		return nil, errors.New("at least one handler is required")
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:            params.Logger,
		db:              params.DB,
		cache:           params.Cache,
		repo:            params.Repository,
		registry:        params.Registry,
		dlq:             params.DLQRepository,
		handlers:        params.Handlers,
		guard:           params.Idempotency,
		metrics:         params.Metrics,
		batchSize:       positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:     positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:    positiveOr(time.Duration(cfg.PollIntervalMS)*time.Millisecond, defaultPollInterval),
		deliveryTimeout: positiveOr(cfg.DeliveryTimeout, defaultDeliveryTimeout),
	}, nil
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is canceled. Empty polls wait one interval; failed batches back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	wait := s.pollInterval
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case processed:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopped polling")
	return ctx.Err()
}

// settlement is how one claimed event left the batch.
type settlement struct {
	outcome string
	reason  enums.OutboxDLQErrorReason
	err     error
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	started := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.ClaimBatch(tx, s.batchSize, s.maxAttempts)
		if err != nil || len(events) == 0 {
			return err
		}
		processed = true
		for _, event := range events {
			if err := s.settle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if processed {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return processed, err
}

// settle delivers one event and records the result. Only bookkeeping failures are returned;
// they abort the batch so its claims roll back.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	result := settlement{outcome: metrics.OutboxDelivered}

	resolved, err := s.registry.Resolve(event)
	if err == nil {
		envelope = resolved.Envelope
		err = s.deliver(ctx, resolved)
	}
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
	case errors.As(err, &nonRetryable):
		result = settlement{outcome: metrics.OutboxDeadLettered, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	case event.AttemptCount+1 >= s.maxAttempts:
		result = settlement{
			outcome: metrics.OutboxDeadLettered,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			err:     fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err),
		}
	default:
		result = settlement{outcome: metrics.OutboxRetried, err: err}
	}

	logCtx := s.logg.WithFields(ctx, s.eventFields(event, envelope))
	switch result.outcome {
	case metrics.OutboxDelivered:
		if err := s.repo.MarkDelivered(tx, event.ID, time.Now()); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event delivered")
	case metrics.OutboxRetried:
		if err := s.repo.RecordAttempt(tx, event.ID, result.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":         result.err.Error(),
			"attempt_count": event.AttemptCount + 1,
		}), "outbox delivery failed, will retry")
	case metrics.OutboxDeadLettered:
		if err := s.dlq.InsertTx(tx, outbox.NewDLQEntry(event, result.reason, result.err, time.Now())); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.Exhaust(tx, event.ID, result.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":        result.err.Error(),
			"error_reason": result.reason,
		}), "outbox event dead-lettered")
	}
	s.metrics.Settled(result.outcome, string(event.EventType))
	return nil
}

// deliver runs every interested handler once per event id. With a guard, handlers that already
// succeeded are skipped when the event comes back after a partial failure.
func (s *Service) deliver(ctx context.Context, resolved *registry.ResolvedEvent) error {
	eventID, err := resolved.EventID()
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("invalid event id %q: %w", resolved.Envelope.EventID, err))
	}
	ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	var errs error
	for _, h := range s.handlers {
		if !h.Handles(resolved.Descriptor.EventType) {
			continue
		}
		handle := func(ctx context.Context) error { return h.Handle(ctx, resolved) }
		var err error
		if s.guard == nil {
			err = handle(ctx)
		} else {
			var skipped bool
			skipped, err = s.guard.Run(ctx, h.Name(), eventID, handle)
			if skipped {
				s.logg.Debug(s.logg.WithField(ctx, "consumer", h.Name()), "event already handled")
			}
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}
	return errs
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextBackoff doubles current up to limit, starting from base.
func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
