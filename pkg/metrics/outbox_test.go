package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Settled(OutboxDelivered, "order_created")
	m.Settled(OutboxDelivered, "order_created")
	m.Settled(OutboxDeadLettered, "")
	m.ObserveBatch(40 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_outbox_events_total", "outcome", OutboxDelivered); err != nil || got != 2 {
		t.Fatalf("expected delivered=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_outbox_events_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("blank event type should be labelled unknown, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "storefront_outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one batch observation")
	}

	var none *OutboxMetrics
	none.Settled(OutboxRetried, "order_created")
	none.ObserveBatch(time.Second)
}
