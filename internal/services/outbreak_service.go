package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/metrics"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/sms"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

// ErrInvalidSubmission marks caller input that cannot be accepted.
var ErrInvalidSubmission = models.ErrInvalidSubmission

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	unknownWater      = "Unknown"
)

// Store is the record store used by the service.
type Store interface {
	InsertReport(ctx context.Context, report models.ReportSubmission) (models.Report, error)
	InsertSensorReading(ctx context.Context, reading models.SensorSubmission) (models.SensorReading, error)
	QueryAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
}

// HotspotSource produces village hotspot rows. Invalidate is called after every stored
// report.
type HotspotSource interface {
	Mine(ctx context.Context) ([]models.VillageHotspot, error)
	Invalidate(ctx context.Context)
}

// OutbreakService accepts reports and sensor readings, triggers outbreak detection and
// serves the alert and hotspot views.
type OutbreakService struct {
	logger     *slog.Logger
	store      Store
	detector   Runner
	hotspots   HotspotSource
	dispatcher *Dispatcher
	location   *time.Location
	latencies  *utils.LatencyTracker
}

// NewOutbreakService wires the service. loc is used to read SMS timestamps without a zone.
func NewOutbreakService(logger *slog.Logger, store Store, detector Runner, hotspots HotspotSource, loc *time.Location) *OutbreakService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &OutbreakService{
		logger:     logger,
		store:      store,
		detector:   detector,
		hotspots:   hotspots,
		dispatcher: NewDispatcher(logger, detector),
		location:   loc,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// SubmitReport stores a report and starts detection for its village and symptoms in the
// background. Detection outcomes never affect the result.
func (s *OutbreakService) SubmitReport(ctx context.Context, sub models.ReportSubmission) (models.Report, error) {
	sub, err := normaliseReport(sub, models.ChannelOnline)
	if err != nil {
		return models.Report{}, err
	}
	return s.storeReport(ctx, sub)
}

// SyncReports stores queued offline reports one at a time. Every stored report starts
// its own detection run; failures are counted and do not stop the batch.
func (s *OutbreakService) SyncReports(ctx context.Context, subs []models.ReportSubmission) models.SyncResult {
	var result models.SyncResult
	for i, sub := range subs {
		normalised, err := normaliseReport(sub, models.ChannelOfflineVillager)
		if err == nil {
			_, err = s.storeReport(ctx, normalised)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("report %d: %v", i, err))
			continue
		}
		result.Synced++
	}
	if result.Failed > 0 {
		s.logger.Warn("offline sync incomplete", slog.Int("synced", result.Synced), slog.Int("failed", result.Failed))
	}
	return result
}

// SubmitSMS parses an SMS report body and stores it.
func (s *OutbreakService) SubmitSMS(ctx context.Context, body, submitterID string, viaASHA bool) (models.Report, error) {
	msg, err := s.ParseSMS(body)
	if err != nil {
		return models.Report{}, err
	}
	return s.SubmitReport(ctx, msg.Submission(submitterID, viaASHA))
}

// ParseSMS reads an SMS report body without storing it.
func (s *OutbreakService) ParseSMS(body string) (sms.Message, error) {
	msg, err := sms.Parse(body, s.location)
	if err != nil {
		return sms.Message{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return msg, nil
}

// SubmitSensorReading stores a water-quality sample and starts a water-quality sweep.
func (s *OutbreakService) SubmitSensorReading(ctx context.Context, sub models.SensorSubmission) (models.SensorReading, error) {
	sub.Village = strings.TrimSpace(sub.Village)
	switch {
	case sub.Village == "":
		return models.SensorReading{}, fmt.Errorf("%w: village is required", ErrInvalidSubmission)
	case math.IsNaN(sub.PH) || sub.PH < 0 || sub.PH > 14:
		return models.SensorReading{}, fmt.Errorf("%w: ph must be within 0-14", ErrInvalidSubmission)
	case math.IsNaN(sub.Turbidity) || sub.Turbidity < 0:
		return models.SensorReading{}, fmt.Errorf("%w: turbidity must not be negative", ErrInvalidSubmission)
	}
	sub.CreatedAt = time.Time{}

	reading, err := s.store.InsertSensorReading(ctx, sub)
	if err != nil {
		s.logger.Error("store sensor reading failed", slog.String("village", sub.Village), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return models.SensorReading{}, err
	}
	s.dispatcher.Dispatch(nil)
	return reading, nil
}

// ListAlerts returns alerts addressed to the caller's role, newest first.
func (s *OutbreakService) ListAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	role, ok := models.ParseRole(string(q.Role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidSubmission, q.Role)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts, err := s.store.QueryAlerts(ctx, models.AlertFilter{
		Village:            strings.TrimSpace(q.Village),
		TargetRolesOverlap: []models.Role{role},
		Limit:              limit,
	})
	if err != nil {
		s.logger.Error("list alerts failed", slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return nil, err
	}
	return alerts, nil
}

// Hotspots returns village hotspots for the trailing week.
func (s *OutbreakService) Hotspots(ctx context.Context) ([]models.VillageHotspot, error) {
	if s.hotspots == nil {
		return nil, errors.New("hotspot mining not configured")
	}
	return s.hotspots.Mine(ctx)
}

// RunDetection runs the detector synchronously. A nil trigger sweeps water quality only.
func (s *OutbreakService) RunDetection(ctx context.Context, trigger *models.ReportTrigger) (engine.RunSummary, error) {
	if trigger != nil {
		trigger = &models.ReportTrigger{Village: strings.TrimSpace(trigger.Village), Symptoms: strings.TrimSpace(trigger.Symptoms)}
		if trigger.Village == "" || trigger.Symptoms == "" {
			return engine.RunSummary{}, fmt.Errorf("%w: trigger needs village and symptoms", ErrInvalidSubmission)
		}
	}

	start := time.Now()
	summary := s.detector.Run(ctx, trigger)
	s.latencies.Observe(time.Since(start))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("detection latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
	return summary, nil
}

// Close waits for background detection runs to finish.
func (s *OutbreakService) Close(ctx context.Context) error {
	return s.dispatcher.Close(ctx)
}

func (s *OutbreakService) storeReport(ctx context.Context, sub models.ReportSubmission) (models.Report, error) {
	report, err := s.store.InsertReport(ctx, sub)
	if err != nil {
		s.logger.Error("store report failed", slog.String("village", sub.Village), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return models.Report{}, err
	}
	if s.hotspots != nil {
		s.hotspots.Invalidate(ctx)
	}
	metrics.ObserveReport(string(report.SubmittedVia))
	s.dispatcher.Dispatch(report.Trigger())
	return report, nil
}

func normaliseReport(sub models.ReportSubmission, defaultChannel models.Channel) (models.ReportSubmission, error) {
	sub.PatientName = strings.TrimSpace(sub.PatientName)
	sub.Village = strings.TrimSpace(sub.Village)
	sub.Symptoms = strings.TrimSpace(sub.Symptoms)
	sub.WaterSource = strings.TrimSpace(sub.WaterSource)
	sub.SubmitterID = strings.TrimSpace(sub.SubmitterID)

	var missing []string
	if sub.PatientName == "" {
		missing = append(missing, "patient_name")
	}
	if sub.Village == "" {
		missing = append(missing, "village")
	}
	if sub.Symptoms == "" {
		missing = append(missing, "symptoms")
	}
	if sub.SubmitterID == "" {
		missing = append(missing, "asha_id")
	}
	if len(missing) > 0 {
		return sub, fmt.Errorf("%w: missing %s", ErrInvalidSubmission, strings.Join(missing, ", "))
	}

	if sub.SubmittedVia == "" {
		sub.SubmittedVia = defaultChannel
	}
	if !sub.SubmittedVia.Valid() {
		return sub, fmt.Errorf("%w: unknown channel %q", ErrInvalidSubmission, sub.SubmittedVia)
	}
	if sub.WaterSource == "" && sub.SubmittedVia.Villager() {
		sub.WaterSource = unknownWater
	}
	// Reports are stamped with the store's insert time.
	sub.CreatedAt = time.Time{}
	return sub, nil
}
