package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/sms"
)

var testNow = time.Date(2024, time.August, 14, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	submitted  []models.ReportSubmission
	triggers   []*models.ReportTrigger
	alertQuery models.AlertQuery
	smsArgs    []string
	failWith   error
}

func (f *fakeBackend) SubmitReport(_ context.Context, sub models.ReportSubmission) (models.Report, error) {
	if f.failWith != nil {
		return models.Report{}, f.failWith
	}
	if sub.PatientName == "" {
		return models.Report{}, fmt.Errorf("%w: missing patient_name", models.ErrInvalidSubmission)
	}
	f.submitted = append(f.submitted, sub)
	return models.Report{
		ID: "r-1", PatientName: sub.PatientName, Village: sub.Village, Symptoms: sub.Symptoms,
		SubmittedVia: models.ChannelOnline, SubmitterID: sub.SubmitterID, CreatedAt: testNow,
	}, nil
}

func (f *fakeBackend) SyncReports(_ context.Context, subs []models.ReportSubmission) models.SyncResult {
	f.submitted = append(f.submitted, subs...)
	return models.SyncResult{Synced: len(subs)}
}

func (f *fakeBackend) SubmitSMS(ctx context.Context, body, submitterID string, viaASHA bool) (models.Report, error) {
	f.smsArgs = []string{body, submitterID, fmt.Sprint(viaASHA)}
	msg, err := f.ParseSMS(body)
	if err != nil {
		return models.Report{}, err
	}
	return f.SubmitReport(ctx, msg.Submission(submitterID, viaASHA))
}

func (f *fakeBackend) ParseSMS(body string) (sms.Message, error) {
	msg, err := sms.Parse(body, time.UTC)
	if err != nil {
		return sms.Message{}, fmt.Errorf("%w: %v", models.ErrInvalidSubmission, err)
	}
	return msg, nil
}

func (f *fakeBackend) SubmitSensorReading(_ context.Context, sub models.SensorSubmission) (models.SensorReading, error) {
	return models.SensorReading{ID: "s-1", Village: sub.Village, PH: sub.PH, Turbidity: sub.Turbidity, CreatedAt: testNow}, nil
}

func (f *fakeBackend) RunDetection(_ context.Context, trigger *models.ReportTrigger) (engine.RunSummary, error) {
	f.triggers = append(f.triggers, trigger)
	summary := engine.RunSummary{StartedAt: testNow, Suppressed: 1}
	if trigger != nil {
		summary.Created = []models.Alert{{ID: "a-1", Village: trigger.Village, Type: models.AlertTypeDiseaseCluster, Auto: true}}
		summary.RuleErrors = map[string]error{engine.RuleWaterQuality: errors.New("sensors unavailable")}
	}
	return summary, nil
}

func (f *fakeBackend) ListAlerts(_ context.Context, q models.AlertQuery) ([]models.Alert, error) {
	f.alertQuery = q
	if _, ok := models.ParseRole(string(q.Role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidSubmission, q.Role)
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	return []models.Alert{{ID: "a-1", Message: "hello", TargetRoles: []models.Role{q.Role}}}, nil
}

func (f *fakeBackend) Hotspots(context.Context) ([]models.VillageHotspot, error) {
	return []models.VillageHotspot{{Village: "Rampur", CaseCount: 6, MostCommonSymptom: "Diarrhea", RiskLevel: models.RiskHigh, LastReportAt: testNow}}, nil
}

const smsBody = "[VILLAGER HEALTH REPORT]\nName: Ravi\nAge: 34\nVillage: Rampur\nSymptoms: Diarrhea\nTime: 2024-08-14 09:30:00\n[Please process this villager report]"
