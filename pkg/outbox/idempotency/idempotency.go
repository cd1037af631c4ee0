// Package idempotency keeps outbox consumers from handling the same event twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// DefaultTTL applies when the guard is built with a zero ttl.
const DefaultTTL = 72 * time.Hour

// Store is the part of the redis client the guard uses.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard records, per consumer, which event ids have been handled.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, fmt.Errorf("idempotency ttl %s is negative", ttl)
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Run calls fn unless consumer already handled eventID, reporting skipped=true in that case.
// The claim is taken before fn runs and is released when fn fails, so the next delivery retries it.
func (g *Guard) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s for %s: %w", eventID, consumer, err)
	}
	if !claimed {
		return true, nil
	}
	if err := fn(ctx); err != nil {
		if relErr := g.store.Del(context.WithoutCancel(ctx), key); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release claim: %w", relErr))
		}
		return false, err
	}
	return false, nil
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
