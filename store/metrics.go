package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes recorded by Metrics.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeNotFound  = "not_found"
	OutcomeConflict  = "conflict"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus collectors for repository operations.
// Collectors are not registered until Register is called.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates repository metrics under namespace ("docket" if empty).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "docket"
	}
	return &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repository_operations_total",
				Help:      "Total number of repository operations",
			},
			[]string{"operation", "collection", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "repository_operation_duration_seconds",
				Help:      "Repository operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "collection"},
		),
	}
}

// Collectors returns the collectors for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.duration}
}

// Register registers the collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(operation, collection, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(operation, collection, outcome).Inc()
	m.duration.WithLabelValues(operation, collection).Observe(elapsed.Seconds())
}

// Outcome classifies an operation error into a metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrDuplicateEntity):
		return OutcomeDuplicate
	case errors.Is(err, ErrEntityNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConcurrencyConflict):
		return OutcomeConflict
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidID):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
