package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector tracks step execution, candidate attempts, history cache
// effectiveness, and driver action latency. A nil *Collector is valid and
// records nothing, so callers never have to guard.
type Collector struct {
	// Step metrics
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	winningRank  *prometheus.HistogramVec

	// Attempt metrics
	attemptsTotal   *prometheus.CounterVec
	fallbacksTotal  *prometheus.CounterVec
	validatorsTotal *prometheus.CounterVec

	// History cache metrics
	historyHits   *prometheus.CounterVec
	historyMisses *prometheus.CounterVec
	historyErrors *prometheus.CounterVec

	// Driver metrics
	actionDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on the default
// Prometheus registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of executed steps",
		},
		[]string{"action", "status"},
	)

	c.stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"action"},
	)

	c.winningRank = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "winning_candidate_rank",
			Help:      "Rank of the candidate that succeeded for a step",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"action"},
	)

	c.attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_attempts_total",
			Help:      "Total number of candidate attempts",
		},
		[]string{"action", "outcome"},
	)

	c.fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_fallbacks_total",
			Help:      "Total number of in-place script fallback dispatches",
		},
		[]string{"action"},
	)

	c.validatorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validator_evaluations_total",
			Help:      "Total number of validator evaluations",
		},
		[]string{"kind", "outcome"},
	)

	c.historyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_hits_total",
			Help:      "History lookups that found a learned selector",
		},
		[]string{"store"},
	)

	c.historyMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_misses_total",
			Help:      "History lookups that found no entry",
		},
		[]string{"store"},
	)

	c.historyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_errors_total",
			Help:      "History store I/O errors (never fatal to a session)",
		},
		[]string{"store", "op"},
	)

	c.actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "driver_action_duration_seconds",
			Help:      "Driver action duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action", "dispatch"}, // dispatch: primary, script
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordStep records a finished step.
func (c *Collector) RecordStep(action, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stepsTotal.WithLabelValues(action, status).Inc()
	c.stepDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordWinningRank records the rank of the candidate that succeeded.
func (c *Collector) RecordWinningRank(action string, rank int) {
	if c == nil {
		return
	}
	c.winningRank.WithLabelValues(action).Observe(float64(rank))
}

// RecordAttempt records one candidate attempt.
func (c *Collector) RecordAttempt(action, outcome string) {
	if c == nil {
		return
	}
	c.attemptsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordFallback records one in-place script fallback dispatch.
func (c *Collector) RecordFallback(action string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(action).Inc()
}

// RecordValidator records one validator evaluation.
func (c *Collector) RecordValidator(kind string, passed bool) {
	if c == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	c.validatorsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordHistoryHit records a history lookup that found an entry.
func (c *Collector) RecordHistoryHit(store string) {
	if c == nil {
		return
	}
	c.historyHits.WithLabelValues(store).Inc()
}

// RecordHistoryMiss records a history lookup that found nothing.
func (c *Collector) RecordHistoryMiss(store string) {
	if c == nil {
		return
	}
	c.historyMisses.WithLabelValues(store).Inc()
}

// RecordHistoryError records a history store I/O error.
func (c *Collector) RecordHistoryError(store, op string) {
	if c == nil {
		return
	}
	c.historyErrors.WithLabelValues(store, op).Inc()
}

// RecordDriverAction records one driver invocation.
func (c *Collector) RecordDriverAction(action, dispatch string, duration time.Duration) {
	if c == nil {
		return
	}
	c.actionDuration.WithLabelValues(action, dispatch).Observe(duration.Seconds())
}
