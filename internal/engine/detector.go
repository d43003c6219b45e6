package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/cache"
	"github.com/jalrakshak/outbreak-engine/internal/metrics"
	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// DetectorConfig tunes a Detector.
type DetectorConfig struct {
	Thresholds Thresholds
	// AuthorTTL bounds how long the resolved alert author is cached.
	AuthorTTL time.Duration
}

// RunSummary describes the outcome of one detection run.
type RunSummary struct {
	StartedAt  time.Time
	Created    []models.Alert
	Suppressed int
	Failed     int
	// RuleErrors holds the store failure that aborted a rule, keyed by rule name.
	RuleErrors map[string]error
}

// Detector runs the outbreak rules and persists accepted candidates.
type Detector struct {
	logger *slog.Logger
	store  Store
	clock  Clock
	rules  []Rule
	cfg    DetectorConfig
	guard  *DedupGuard
	synth  *Synthesizer
}

// NewDetector wires a detector over store. Nil clock and provider fall back to the wall
// clock and no caching; a zero Thresholds uses DefaultThresholds.
func NewDetector(logger *slog.Logger, store Store, clock Clock, provider cache.Provider, cfg DetectorConfig) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.Thresholds.Window <= 0 {
		cfg.Thresholds = DefaultThresholds()
	}

	return &Detector{
		logger: logger,
		store:  store,
		clock:  clock,
		rules:  DefaultRules(),
		cfg:    cfg,
		guard:  NewDedupGuard(store, cfg.Thresholds.Window, logger),
		synth:  NewSynthesizer(store, provider, cfg.AuthorTTL, logger),
	}
}

// Thresholds returns the active rule settings.
func (d *Detector) Thresholds() Thresholds {
	return d.cfg.Thresholds
}

// Run evaluates the water-quality rule and, when trigger is non-nil, the disease-cluster
// and seasonal rules for the trigger's village. A failing rule is logged and skipped;
// Run never returns an error.
//
// Rules run in order and each accepted candidate is persisted before the next is
// considered, so a water-quality alert inserted earlier in the run suppresses later
// candidates for the same village and parameter.
func (d *Detector) Run(ctx context.Context, trigger *models.ReportTrigger) RunSummary {
	now := d.clock.Now()
	summary := RunSummary{StartedAt: now}
	env := NewEnv(d.store, now, d.cfg.Thresholds)

	logger := d.logger
	if trigger != nil {
		logger = logger.With(slog.String("village", trigger.Village), slog.String("symptoms", trigger.Symptoms))
	}

	started := time.Now()
	defer func() { metrics.ObserveDetection(time.Since(started)) }()

	for _, rule := range d.rules {
		if rule.NeedsTrigger && trigger == nil {
			continue
		}

		candidates, err := rule.Evaluate(ctx, env, trigger)
		if err != nil {
			logger.Warn("outbreak rule failed", slog.String("rule", rule.Name), slog.Any("error", err))
			metrics.ObserveRule(rule.Name, metrics.OutcomeError)
			if summary.RuleErrors == nil {
				summary.RuleErrors = make(map[string]error)
			}
			summary.RuleErrors[rule.Name] = err
			continue
		}
		if len(candidates) == 0 {
			metrics.ObserveRule(rule.Name, metrics.OutcomeNone)
			continue
		}
		metrics.ObserveRule(rule.Name, metrics.OutcomeCandidate)

		for _, candidate := range candidates {
			if candidate.RequiresDedup && d.guard.Suppress(ctx, now, candidate.Village, candidate.DiseaseOrParameter) {
				logger.Debug("duplicate alert suppressed",
					slog.String("rule", rule.Name),
					slog.String("alert_village", candidate.Village),
					slog.String("parameter", candidate.DiseaseOrParameter),
				)
				metrics.ObserveAlert(string(candidate.Type), metrics.AlertSuppressed)
				summary.Suppressed++
				continue
			}

			alert, err := d.synth.Create(ctx, candidate)
			if err != nil {
				logger.Error("persist automatic alert failed", slog.String("rule", rule.Name), slog.Any("error", err))
				metrics.ObserveAlert(string(candidate.Type), metrics.AlertFailed)
				summary.Failed++
				continue
			}
			metrics.ObserveAlert(string(candidate.Type), metrics.AlertCreated)
			summary.Created = append(summary.Created, alert)
		}
	}

	logger.Debug("detection run complete",
		slog.Int("created", len(summary.Created)),
		slog.Int("suppressed", summary.Suppressed),
		slog.Int("failed", summary.Failed),
	)
	return summary
}
