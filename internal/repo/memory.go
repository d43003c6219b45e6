package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// MemoryStore keeps every collection in process. It backs tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	reports  []models.Report
	sensors  []models.SensorReading
	alerts   []models.Alert
	profiles []models.Profile
}

// NewMemoryStore creates an empty store stamping records with the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// WithNow overrides the clock used to stamp inserted records.
func (s *MemoryStore) WithNow(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// QueryReports returns matching reports, newest first.
func (s *MemoryStore) QueryReports(_ context.Context, filter models.ReportFilter) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Report, 0)
	for _, r := range s.reports {
		if matchReport(r, filter) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return applyLimit(out, filter.Limit), nil
}

// QuerySensors returns matching readings, newest first.
func (s *MemoryStore) QuerySensors(_ context.Context, filter models.SensorFilter) ([]models.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SensorReading, 0)
	for _, r := range s.sensors {
		if matchSensor(r, filter) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// QueryAlerts returns matching alerts, newest first.
func (s *MemoryStore) QueryAlerts(_ context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, 0)
	for _, a := range s.alerts {
		if matchAlert(a, filter) {
			out = append(out, cloneAlert(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return applyLimit(out, filter.Limit), nil
}

// QueryProfiles returns matching profiles in insertion order.
func (s *MemoryStore) QueryProfiles(_ context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Profile, 0)
	for _, p := range s.profiles {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		out = append(out, p)
	}
	return applyLimit(out, filter.Limit), nil
}

// InsertAlert stores a new alert.
func (s *MemoryStore) InsertAlert(_ context.Context, insert models.AlertInsert) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	alert := models.Alert{
		ID:                 uuid.NewString(),
		Message:            insert.Message,
		TargetRoles:        append([]models.Role(nil), insert.TargetRoles...),
		CreatedBy:          insert.CreatedBy,
		Village:            insert.Village,
		Type:               insert.Type,
		DiseaseOrParameter: insert.DiseaseOrParameter,
		Auto:               insert.Auto,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if insert.Value != nil {
		alert.Value = models.Float64(*insert.Value)
	}
	s.alerts = append(s.alerts, alert)
	return cloneAlert(alert), nil
}

// InsertReport stores a new report. A zero CreatedAt is stamped with the store clock.
func (s *MemoryStore) InsertReport(_ context.Context, sub models.ReportSubmission) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := sub.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	report := models.Report{
		ID:           uuid.NewString(),
		PatientName:  sub.PatientName,
		Village:      sub.Village,
		Symptoms:     sub.Symptoms,
		WaterSource:  sub.WaterSource,
		SubmittedVia: sub.SubmittedVia,
		SubmitterID:  sub.SubmitterID,
		CreatedAt:    created,
	}
	s.reports = append(s.reports, report)
	return report, nil
}

// InsertSensorReading stores a new reading. A zero CreatedAt is stamped with the store clock.
func (s *MemoryStore) InsertSensorReading(_ context.Context, sub models.SensorSubmission) (models.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := sub.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	reading := models.SensorReading{
		ID:        uuid.NewString(),
		Village:   sub.Village,
		PH:        sub.PH,
		Turbidity: sub.Turbidity,
		CreatedAt: created,
	}
	s.sensors = append(s.sensors, reading)
	return reading, nil
}

// InsertProfile stores a profile, assigning missing ids.
func (s *MemoryStore) InsertProfile(_ context.Context, profile models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(profile.ID) == "" {
		profile.ID = uuid.NewString()
	}
	if strings.TrimSpace(profile.UserID) == "" {
		profile.UserID = uuid.NewString()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now()
	}
	s.profiles = append(s.profiles, profile)
	return profile, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneAlert(a models.Alert) models.Alert {
	a.TargetRoles = append([]models.Role(nil), a.TargetRoles...)
	if a.Value != nil {
		a.Value = models.Float64(*a.Value)
	}
	return a
}
