package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts the order-lifecycle outcomes the operations team watches.
type OrderMetrics struct {
	created           *prometheus.CounterVec
	declined          prometheus.Counter
	reservationDenied *prometheus.CounterVec
	reconciliation    prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed, labeled by entry path (direct or checkout).",
	}, []string{"path"})
	declined := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_declined_total",
		Help: "Orders declined by store staff with stock restored.",
	})
	reservationDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservation_denied_total",
		Help: "Reservation attempts rejected, labeled by reason.",
	}, []string{"reason"})
	reconciliation := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciliation_inconsistencies_total",
		Help: "Captured payments whose order-creation transaction failed.",
	})
	reg.MustRegister(created, declined, reservationDenied, reconciliation)
	return &OrderMetrics{
		created:           created,
		declined:          declined,
		reservationDenied: reservationDenied,
		reconciliation:    reconciliation,
	}
}

// IncCreated increments the created counter for the given entry path.
func (m *OrderMetrics) IncCreated(path string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncDeclined increments the declined counter.
func (m *OrderMetrics) IncDeclined() {
	if m == nil || m.declined == nil {
		return
	}
	m.declined.Inc()
}

// IncReservationDenied increments the denial counter for the given reason.
func (m *OrderMetrics) IncReservationDenied(reason string) {
	if m == nil || m.reservationDenied == nil {
		return
	}
	m.reservationDenied.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncReconciliationInconsistency increments the reconciliation counter.
func (m *OrderMetrics) IncReconciliationInconsistency() {
	if m == nil || m.reconciliation == nil {
		return
	}
	m.reconciliation.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
