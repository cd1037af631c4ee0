package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics counts inventory and order workflow outcomes.
type StoreMetrics struct {
	stockMovements   *prometheus.CounterVec
	stockRejections  *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	lowStockAlerts   prometheus.Counter
}

// NewStoreMetrics registers the storefront counters. A nil registerer yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	m := &StoreMetrics{
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "units_total",
			Help:      "Stock units moved by the ledger.",
		}, []string{"direction"}),
		stockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "rejections_total",
			Help:      "Stock reservations refused by the ledger.",
		}, []string{"reason"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order and shipment status transitions applied.",
		}, []string{"entity", "status"}),
		lowStockAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "low_stock_alerts_total",
			Help:      "Low stock alerts dispatched.",
		}),
	}
	reg.MustRegister(m.stockMovements, m.stockRejections, m.orderTransitions, m.lowStockAlerts)
	return m
}

// StockReserved adds units taken out of stock.
func (m *StoreMetrics) StockReserved(units int) {
	if m == nil || m.stockMovements == nil {
		return
	}
	m.stockMovements.WithLabelValues("reserved").Add(float64(units))
}

// StockReleased adds units returned to stock.
func (m *StoreMetrics) StockReleased(units int) {
	if m == nil || m.stockMovements == nil {
		return
	}
	m.stockMovements.WithLabelValues("released").Add(float64(units))
}

// StockRejected counts a refused reservation by reason (insufficient, variation_not_found).
func (m *StoreMetrics) StockRejected(reason string) {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// Transition counts an applied status change.
func (m *StoreMetrics) Transition(entity, status string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(entity), normalizeLabel(status)).Inc()
}

// LowStockAlert counts a dispatched low stock alert.
func (m *StoreMetrics) LowStockAlert() {
	if m == nil || m.lowStockAlerts == nil {
		return
	}
	m.lowStockAlerts.Inc()
}
