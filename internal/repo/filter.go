package repo

import (
	"strings"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// Predicates shared by stores that filter in process.

func matchReport(r models.Report, f models.ReportFilter) bool {
	if f.Village != "" && r.Village != f.Village {
		return false
	}
	if f.Symptoms != "" && r.Symptoms != f.Symptoms {
		return false
	}
	if !inWindow(r.CreatedAt, f.CreatedAfter) {
		return false
	}
	if len(f.SymptomsContainsAnyOf) > 0 {
		label := strings.ToLower(r.Symptoms)
		for _, kw := range f.SymptomsContainsAnyOf {
			if kw != "" && strings.Contains(label, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}
	return true
}

func matchSensor(s models.SensorReading, f models.SensorFilter) bool {
	if !inWindow(s.CreatedAt, f.CreatedAfter) {
		return false
	}
	switch {
	case f.PHBelow != nil && f.TurbidityAbove != nil:
		return s.PH < *f.PHBelow || s.Turbidity > *f.TurbidityAbove
	case f.PHBelow != nil:
		return s.PH < *f.PHBelow
	case f.TurbidityAbove != nil:
		return s.Turbidity > *f.TurbidityAbove
	}
	return true
}

func matchAlert(a models.Alert, f models.AlertFilter) bool {
	if f.Village != "" && a.Village != f.Village {
		return false
	}
	if f.DiseaseOrParameter != "" && a.DiseaseOrParameter != f.DiseaseOrParameter {
		return false
	}
	if f.Auto != nil && a.Auto != *f.Auto {
		return false
	}
	if !inWindow(a.CreatedAt, f.CreatedAfter) {
		return false
	}
	if len(f.TargetRolesOverlap) > 0 {
		for _, role := range f.TargetRolesOverlap {
			if a.Targets(role) {
				return true
			}
		}
		return false
	}
	return true
}

// inWindow treats the lower bound as inclusive; a zero bound admits everything.
func inWindow(created, after time.Time) bool {
	return after.IsZero() || !created.Before(after)
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
