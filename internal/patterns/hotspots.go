package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/cache"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

// Risk bands by case count inside the hotspot window.
const (
	HighRiskAbove  = 5
	MediumRiskFrom = 3
)

// ReportSource abstracts the report query used for hotspot mining.
type ReportSource interface {
	QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// ReportSourceFunc adapts a function to ReportSource.
type ReportSourceFunc func(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)

// QueryReports implements ReportSource.
func (f ReportSourceFunc) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	return f(ctx, filter)
}

// HotspotMiner groups recent reports by village and grades each village's risk.
type HotspotMiner struct {
	source   ReportSource
	logger   *slog.Logger
	now      func() time.Time
	window   time.Duration
	cache    cache.Provider
	cacheTTL time.Duration
}

// NewHotspotMiner constructs a miner over window. A nil provider disables caching.
func NewHotspotMiner(logger *slog.Logger, source ReportSource, window time.Duration, provider cache.Provider, cacheTTL time.Duration) *HotspotMiner {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &HotspotMiner{
		source:   source,
		logger:   logger,
		now:      time.Now,
		window:   window,
		cache:    provider,
		cacheTTL: cacheTTL,
	}
}

// WithClock overrides the evaluation clock.
func (m *HotspotMiner) WithClock(now func() time.Time) *HotspotMiner {
	m.now = now
	return m
}

// Mine returns village hotspots for the trailing window, busiest village first.
func (m *HotspotMiner) Mine(ctx context.Context) ([]models.VillageHotspot, error) {
	key := m.cacheKey()

	var cached []models.VillageHotspot
	if err := cache.GetJSON(ctx, m.cache, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		m.logger.Debug("hotspot cache read failed", slog.Any("error", err))
	}

	reports, err := m.source.QueryReports(ctx, models.ReportFilter{
		CreatedAfter: utils.WindowStart(m.now(), m.window),
	})
	if err != nil {
		return nil, fmt.Errorf("query hotspot reports: %w", err)
	}

	hotspots := Aggregate(reports)
	if m.cacheTTL > 0 {
		if err := cache.SetJSON(ctx, m.cache, key, hotspots, m.cacheTTL); err != nil {
			m.logger.Debug("hotspot cache write failed", slog.Any("error", err))
		}
	}
	return hotspots, nil
}

// Invalidate drops the cached hotspot rows so the next Mine reads fresh reports.
func (m *HotspotMiner) Invalidate(ctx context.Context) {
	if err := m.cache.Del(ctx, m.cacheKey()); err != nil {
		m.logger.Debug("hotspot cache invalidate failed", slog.Any("error", err))
	}
}

func (m *HotspotMiner) cacheKey() string {
	return fmt.Sprintf("outbreak:hotspots:%s", m.window)
}

// Aggregate groups reports by village. The most common symptom label wins; ties go
// to the label seen first in the input.
func Aggregate(reports []models.Report) []models.VillageHotspot {
	stats := make(map[string]*villageAggregate)
	for _, report := range reports {
		agg := ensureAggregate(stats, report.Village)
		agg.cases++
		if report.CreatedAt.After(agg.lastSeen) {
			agg.lastSeen = report.CreatedAt
		}
		if _, ok := agg.symptomCounts[report.Symptoms]; !ok {
			agg.symptomOrder = append(agg.symptomOrder, report.Symptoms)
		}
		agg.symptomCounts[report.Symptoms]++
	}

	hotspots := make([]models.VillageHotspot, 0, len(stats))
	for village, agg := range stats {
		hotspots = append(hotspots, models.VillageHotspot{
			Village:           village,
			CaseCount:         agg.cases,
			MostCommonSymptom: agg.topSymptom(),
			RiskLevel:         RiskFor(agg.cases),
			LastReportAt:      agg.lastSeen,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].CaseCount != hotspots[j].CaseCount {
			return hotspots[i].CaseCount > hotspots[j].CaseCount
		}
		return hotspots[i].Village < hotspots[j].Village
	})
	return hotspots
}

// RiskFor grades a case count.
func RiskFor(cases int) models.RiskLevel {
	switch {
	case cases > HighRiskAbove:
		return models.RiskHigh
	case cases >= MediumRiskFrom:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

type villageAggregate struct {
	cases         int
	lastSeen      time.Time
	symptomCounts map[string]int
	symptomOrder  []string
}

func ensureAggregate(m map[string]*villageAggregate, village string) *villageAggregate {
	if village == "" {
		village = "Unknown"
	}
	agg, ok := m[village]
	if !ok {
		agg = &villageAggregate{symptomCounts: make(map[string]int)}
		m[village] = agg
	}
	return agg
}

func (agg *villageAggregate) topSymptom() string {
	best, bestCount := "Unknown", 0
	for _, symptom := range agg.symptomOrder {
		if count := agg.symptomCounts[symptom]; count > bestCount {
			best, bestCount = symptom, count
		}
	}
	return best
}
