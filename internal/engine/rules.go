package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/extractors"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

// Rule names used in logs and metrics.
const (
	RuleWaterQuality   = "water_quality"
	RuleDiseaseCluster = "disease_cluster"
	RuleSeasonal       = "seasonal"
)

// WaterborneLabel is the DiseaseOrParameter recorded on seasonal alerts.
const WaterborneLabel = "water-borne diseases"

// Thresholds tunes the three outbreak rules.
type Thresholds struct {
	Window           time.Duration
	ClusterMinCases  int
	SeasonalMinCases int
	SeasonStart      time.Month
	SeasonEnd        time.Month
	SeasonalKeywords []string
	PHMin            float64
	TurbidityMax     float64
	// Location is the calendar used for the seasonal month; nil uses the clock's own zone.
	Location *time.Location
}

// DefaultThresholds returns the production rule settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:           24 * time.Hour,
		ClusterMinCases:  3,
		SeasonalMinCases: 2,
		SeasonStart:      time.July,
		SeasonEnd:        time.September,
		SeasonalKeywords: []string{"diarrhea", "cholera", "loose motions", "vomiting"},
		PHMin:            6.5,
		TurbidityMax:     5,
	}
}

// Env is the read-only input shared by the rules of one detection run.
type Env struct {
	Store      Store
	Now        time.Time
	Thresholds Thresholds
	Sensors    *extractors.SensorExtractor
	Waterborne *extractors.SymptomMatcher
}

// NewEnv prepares a rule environment for the evaluation instant now.
func NewEnv(store Store, now time.Time, th Thresholds) Env {
	return Env{
		Store:      store,
		Now:        now,
		Thresholds: th,
		Sensors:    extractors.NewSensorExtractor(th.PHMin, th.TurbidityMax),
		Waterborne: extractors.NewSymptomMatcher(th.SeasonalKeywords),
	}
}

// WindowStart is the earliest creation time inside the rolling window.
func (e Env) WindowStart() time.Time {
	return utils.WindowStart(e.Now, e.Thresholds.Window)
}

// Candidate is a proposed automatic alert.
type Candidate struct {
	Village            string
	Type               models.AlertType
	Message            string
	DiseaseOrParameter string
	Value              float64
	TargetRoles        []models.Role
	// RequiresDedup asks the detector to consult the dedup guard before persisting.
	RequiresDedup bool
}

// RuleFunc evaluates one outbreak rule. Rules are stateless; a nil trigger means the
// run was not started by a report.
type RuleFunc func(ctx context.Context, env Env, trigger *models.ReportTrigger) ([]Candidate, error)

// Rule binds a RuleFunc to its name.
type Rule struct {
	Name         string
	Evaluate     RuleFunc
	NeedsTrigger bool
}

// DefaultRules returns the rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleWaterQuality, Evaluate: WaterQuality},
		{Name: RuleDiseaseCluster, Evaluate: DiseaseCluster, NeedsTrigger: true},
		{Name: RuleSeasonal, Evaluate: Seasonal, NeedsTrigger: true},
	}
}

func outbreakAudience() []models.Role {
	return []models.Role{models.RoleOfficial, models.RoleCommunity, models.RoleVillager}
}

// DiseaseCluster counts reports in the trigger's village with exactly the same symptom
// label inside the window and proposes an alert once the count reaches ClusterMinCases.
// Labels differing in case or wording count as separate clusters.
func DiseaseCluster(ctx context.Context, env Env, trigger *models.ReportTrigger) ([]Candidate, error) {
	if trigger == nil {
		return nil, nil
	}

	reports, err := env.Store.QueryReports(ctx, models.ReportFilter{
		Village:      trigger.Village,
		Symptoms:     trigger.Symptoms,
		CreatedAfter: env.WindowStart(),
	})
	if err != nil {
		return nil, fmt.Errorf("query disease cluster reports: %w", err)
	}

	count := len(reports)
	if count < env.Thresholds.ClusterMinCases {
		return nil, nil
	}

	return []Candidate{{
		Village: trigger.Village,
		Type:    models.AlertTypeDiseaseCluster,
		Message: fmt.Sprintf("🚨 Disease outbreak detected: %d cases of %s in %s within %s",
			count, trigger.Symptoms, trigger.Village, describeWindow(env.Thresholds.Window)),
		DiseaseOrParameter: trigger.Symptoms,
		Value:              float64(count),
		TargetRoles:        outbreakAudience(),
	}}, nil
}

// Seasonal runs only inside the monsoon months. When the trigger's label names a
// water-borne illness it counts every report in the village whose symptoms mention any
// water-borne keyword and proposes an alert at SeasonalMinCases.
func Seasonal(ctx context.Context, env Env, trigger *models.ReportTrigger) ([]Candidate, error) {
	if trigger == nil {
		return nil, nil
	}
	th := env.Thresholds
	if !inSeason(utils.MonthIn(env.Now, th.Location), th.SeasonStart, th.SeasonEnd) {
		return nil, nil
	}
	if !env.Waterborne.Matches(trigger.Symptoms) {
		return nil, nil
	}

	reports, err := env.Store.QueryReports(ctx, models.ReportFilter{
		Village:               trigger.Village,
		SymptomsContainsAnyOf: env.Waterborne.Keywords(),
		CreatedAfter:          env.WindowStart(),
	})
	if err != nil {
		return nil, fmt.Errorf("query seasonal reports: %w", err)
	}

	count := len(reports)
	if count < th.SeasonalMinCases {
		return nil, nil
	}

	return []Candidate{{
		Village: trigger.Village,
		Type:    models.AlertTypeSeasonal,
		Message: fmt.Sprintf("⚠️ Monsoon season alert: %d cases of %s in %s. High risk period (%s-%s)",
			count, WaterborneLabel, trigger.Village, th.SeasonStart, th.SeasonEnd),
		DiseaseOrParameter: WaterborneLabel,
		Value:              float64(count),
		TargetRoles:        outbreakAudience(),
	}}, nil
}

// WaterQuality scans every sensor reading inside the window, independent of the trigger,
// and proposes one alert per unsafe reading in the order the store returned them.
func WaterQuality(ctx context.Context, env Env, _ *models.ReportTrigger) ([]Candidate, error) {
	phMin, turbidityMax := env.Sensors.Thresholds()
	readings, err := env.Store.QuerySensors(ctx, models.SensorFilter{
		CreatedAfter:   env.WindowStart(),
		PHBelow:        models.Float64(phMin),
		TurbidityAbove: models.Float64(turbidityMax),
	})
	if err != nil {
		return nil, fmt.Errorf("query sensor readings: %w", err)
	}

	breaches := env.Sensors.Detect(readings)
	candidates := make([]Candidate, 0, len(breaches))
	for _, breach := range breaches {
		village := breach.Reading.Village
		var message string
		switch breach.Parameter {
		case extractors.ParameterPH:
			message = fmt.Sprintf("💧 Water quality alert: Acidic water detected in %s (pH: %s)", village, formatValue(breach.Value))
		default:
			message = fmt.Sprintf("💧 Water quality alert: High turbidity in %s (%s NTU)", village, formatValue(breach.Value))
		}
		candidates = append(candidates, Candidate{
			Village:            village,
			Type:               models.AlertTypeWaterQuality,
			Message:            message,
			DiseaseOrParameter: breach.Parameter,
			Value:              breach.Value,
			TargetRoles:        outbreakAudience(),
			RequiresDedup:      true,
		})
	}
	return candidates, nil
}

// inSeason reports whether month lies in [start, end], wrapping across the year end.
func inSeason(month, start, end time.Month) bool {
	if start <= end {
		return month >= start && month <= end
	}
	return month >= start || month <= end
}

func describeWindow(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
