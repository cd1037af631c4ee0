// Package sequence issues human readable order and invoice numbers from per-day counters.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	counterTTL    = 48 * time.Hour
	dayLayout     = "20060102"
	orderPrefix   = "ORD"
	invoicePrefix = "INV"
)

// Sequencer hands out unique order and invoice numbers.
type Sequencer interface {
	OrderNumber(ctx context.Context) (string, error)
	InvoiceNumber(ctx context.Context) (string, error)
}

// Daily numbers documents as PREFIX-YYYYMMDD-NNNNN, restarting every UTC day.
type Daily struct {
	counter redis.Counter
	now     func() time.Time
}

// NewDaily builds a Sequencer backed by the redis counter.
func NewDaily(counter redis.Counter) (*Daily, error) {
	if counter == nil {
		return nil, errors.New("sequence counter required")
	}
	return &Daily{counter: counter, now: time.Now}, nil
}

// WithClock overrides the clock used to pick the day bucket.
func (d *Daily) WithClock(now func() time.Time) *Daily {
	if now != nil {
		d.now = now
	}
	return d
}

// OrderNumber returns ORD-YYYYMMDD-NNNNN.
func (d *Daily) OrderNumber(ctx context.Context) (string, error) {
	return d.next(ctx, "orders", orderPrefix, 5)
}

// InvoiceNumber returns INV-YYYYMMDD-NNNN.
func (d *Daily) InvoiceNumber(ctx context.Context) (string, error) {
	return d.next(ctx, "invoices", invoicePrefix, 4)
}

func (d *Daily) next(ctx context.Context, bucket, prefix string, width int) (string, error) {
	day := d.now().UTC().Format(dayLayout)
	n, err := d.counter.IncrWithTTL(ctx, d.counter.CounterKey(bucket+":"+day), counterTTL)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", bucket, err)
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, day, width, n), nil
}
