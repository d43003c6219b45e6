package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeCandidate labels a rule evaluation that produced at least one candidate.
	OutcomeCandidate = "candidate"
	// OutcomeNone labels a rule evaluation that stayed below its threshold.
	OutcomeNone = "none"
	// OutcomeError labels a rule evaluation aborted by a store failure.
	OutcomeError = "error"

	// AlertCreated labels a persisted automatic alert.
	AlertCreated = "created"
	// AlertSuppressed labels a candidate dropped by the dedup guard.
	AlertSuppressed = "suppressed"
	// AlertFailed labels a candidate whose insert failed.
	AlertFailed = "failed"
)

var (
	detectionRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "detection_runs_total",
			Help:      "Total number of outbreak detection runs.",
		},
	)

	detectionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "outbreak_engine",
			Name:      "detection_seconds",
			Help:      "Outbreak detection run latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	ruleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluations, partitioned by rule and outcome.",
		},
		[]string{"rule", "outcome"},
	)

	autoAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "auto_alerts_total",
			Help:      "Automatic alert candidates, partitioned by alert type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	reportsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "reports_ingested_total",
			Help:      "Reports persisted, partitioned by submission channel.",
		},
		[]string{"channel"},
	)
)

// Register attaches outbreak-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		detectionRunsTotal,
		detectionDurationSeconds,
		ruleEvaluationsTotal,
		autoAlertsTotal,
		reportsIngestedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDetection records a detection run duration.
func ObserveDetection(duration time.Duration) {
	detectionRunsTotal.Inc()
	if duration < 0 {
		duration = 0
	}
	detectionDurationSeconds.Observe(duration.Seconds())
}

// ObserveRule records the outcome of one rule evaluation.
func ObserveRule(rule, outcome string) {
	ruleEvaluationsTotal.WithLabelValues(rule, outcome).Inc()
}

// ObserveAlert records what happened to an automatic alert candidate.
func ObserveAlert(alertType, outcome string) {
	autoAlertsTotal.WithLabelValues(alertType, outcome).Inc()
}

// ObserveReport records a persisted report.
func ObserveReport(channel string) {
	if channel == "" {
		channel = "unknown"
	}
	reportsIngestedTotal.WithLabelValues(channel).Inc()
}
