// Package metrics exposes Prometheus instrumentation for the stock ledger.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config scopes metric const-labels to a service and environment.
type Config struct {
	ServiceName string
	Environment string
}

// LedgerMetrics counts ledger activity and stock-health classifications.
type LedgerMetrics struct {
	movementsApplied  *prometheus.CounterVec
	casConflicts      prometheus.Counter
	driftDetected     prometheus.Counter
	applyDuration     prometheus.Histogram
	alertTierItems    *prometheus.GaugeVec
	alertFeedRequests *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering them on first use.
func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

// LedgerWithConfig returns the process-wide ledger metrics with explicit labels.
func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

// ResetLedgerMetricsForTest clears the singleton between test registries.
func ResetLedgerMetricsForTest() {
	ledgerMetricsOnce = sync.Once{}
	ledgerMetrics = nil
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "stockledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	movementsApplied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stockledger_movements_applied_total",
			Help:        "Movement events processed by kind and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "result"}, // result: applied | duplicate | rejected
	)

	casConflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "stockledger_cas_conflicts_total",
			Help:        "Optimistic-concurrency conflicts hit while applying movements.",
			ConstLabels: constLabels,
		},
	)

	driftDetected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "stockledger_drift_detected_total",
			Help:        "Recomputations where the replayed sum disagreed with the incremental value.",
			ConstLabels: constLabels,
		},
	)

	applyDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "stockledger_movement_apply_seconds",
			Help:        "Latency of movement application including retries.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			ConstLabels: constLabels,
		},
	)

	alertTierItems := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "stockledger_alert_tier_items",
			Help:        "Items per stock-health tier as of the last alert computation.",
			ConstLabels: constLabels,
		},
		[]string{"tier"},
	)

	alertFeedRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stockledger_alert_feed_requests_total",
			Help:        "Alert feed computations by cache outcome.",
			ConstLabels: constLabels,
		},
		[]string{"cache"}, // hit | miss
	)

	for _, collector := range []prometheus.Collector{
		movementsApplied,
		casConflicts,
		driftDetected,
		applyDuration,
		alertTierItems,
		alertFeedRequests,
	} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return &LedgerMetrics{
		movementsApplied:  movementsApplied,
		casConflicts:      casConflicts,
		driftDetected:     driftDetected,
		applyDuration:     applyDuration,
		alertTierItems:    alertTierItems,
		alertFeedRequests: alertFeedRequests,
	}
}

// ObserveMovement records one movement outcome.
func (m *LedgerMetrics) ObserveMovement(kind, result string, seconds float64) {
	if m == nil {
		return
	}
	m.movementsApplied.WithLabelValues(kind, result).Inc()
	m.applyDuration.Observe(seconds)
}

// IncCASConflict records one optimistic-lock retry.
func (m *LedgerMetrics) IncCASConflict() {
	if m == nil {
		return
	}
	m.casConflicts.Inc()
}

// IncDrift records one detected integrity fault.
func (m *LedgerMetrics) IncDrift() {
	if m == nil {
		return
	}
	m.driftDetected.Inc()
}

// SetTierCount records the current number of items in a tier.
func (m *LedgerMetrics) SetTierCount(tier string, count int) {
	if m == nil {
		return
	}
	m.alertTierItems.WithLabelValues(tier).Set(float64(count))
}

// IncFeedRequest records one alert feed computation.
func (m *LedgerMetrics) IncFeedRequest(cacheOutcome string) {
	if m == nil {
		return
	}
	m.alertFeedRequests.WithLabelValues(cacheOutcome).Inc()
}
