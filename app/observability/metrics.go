package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the hub.
type Metrics struct {
	AuthFailuresTotal      prometheus.Counter
	RateLimitThrottled     *prometheus.CounterVec
	TestRunsTotal          *prometheus.CounterVec
	SyncRunsTotal          *prometheus.CounterVec
	ActivityWriteFailures  prometheus.Counter
	BreakerTripsTotal      *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
	WebhookDeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		AuthFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of rejected API key authentications",
		}),
		RateLimitThrottled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "ratelimit",
			Name:      "throttled_total",
			Help:      "Total number of rate-limited requests by binding window",
		}, []string{"window"}),
		TestRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "orchestrator",
			Name:      "test_runs_total",
			Help:      "Total number of connectivity tests by outcome",
		}, []string{"outcome"}),
		SyncRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "orchestrator",
			Name:      "sync_runs_total",
			Help:      "Total number of sync runs by outcome",
		}, []string{"outcome"}),
		ActivityWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "activity",
			Name:      "write_failures_total",
			Help:      "Total number of swallowed activity log persistence failures",
		}),
		BreakerTripsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "breaker",
			Name:      "trips_total",
			Help:      "Total number of circuit breaker trips by integration",
		}, []string{"integration"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "integration_hub",
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state by integration (0=closed, 1=half-open, 2=open)",
		}, []string{"integration"}),
		WebhookDeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total number of inbound webhook deliveries by status",
		}, []string{"status"}),
	}
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, registering it against the
// default registry on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		if globalMetrics == nil {
			globalMetrics = NewMetrics(nil)
		}
	})
	return globalMetrics
}

// SetMetrics overrides the global metrics instance (useful for testing with
// a private registry).
func SetMetrics(m *Metrics) {
	globalMetrics = m
	metricsOnce.Do(func() {})
}
