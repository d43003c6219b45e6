package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/cache"
	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/patterns"
	"github.com/jalrakshak/outbreak-engine/internal/repo"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

func newTestService(t *testing.T, store *repo.MemoryStore, runner Runner) *OutbreakService {
	t.Helper()
	miner := patterns.NewHotspotMiner(utils.DiscardLogger(), store, 0, nil, 0)
	svc := NewOutbreakService(utils.DiscardLogger(), store, runner, miner, time.UTC)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func validReport() models.ReportSubmission {
	return models.ReportSubmission{PatientName: "Ravi", Village: "Rampur", Symptoms: "Diarrhea", SubmitterID: "asha-1"}
}

func TestSubmitReportStoresAndDispatches(t *testing.T) {
	store := repo.NewMemoryStore()
	runner := &recordingRunner{}
	svc := newTestService(t, store, runner)

	sub := validReport()
	sub.Village = "  Rampur "
	report, err := svc.SubmitReport(context.Background(), sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Village != "Rampur" || report.SubmittedVia != models.ChannelOnline || report.ID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	seen := runner.seen()
	if len(seen) != 1 || seen[0].Village != "Rampur" || seen[0].Symptoms != "Diarrhea" {
		t.Fatalf("unexpected triggers %+v", seen)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	svc := newTestService(t, repo.NewMemoryStore(), &recordingRunner{})

	_, err := svc.SubmitReport(context.Background(), models.ReportSubmission{Village: "Rampur"})
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected invalid submission, got %v", err)
	}
	if !strings.Contains(err.Error(), "patient_name, symptoms, asha_id") {
		t.Fatalf("missing fields not listed: %v", err)
	}

	sub := validReport()
	sub.SubmittedVia = "carrier_pigeon"
	if _, err := svc.SubmitReport(context.Background(), sub); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected unknown channel rejection, got %v", err)
	}
}

func TestSyncReportsCountsFailures(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := newTestService(t, store, &recordingRunner{})

	bad := validReport()
	bad.Symptoms = ""
	result := svc.SyncReports(context.Background(), []models.ReportSubmission{validReport(), bad, validReport()})
	if result.Synced != 2 || result.Failed != 1 || len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "report 1:") {
		t.Fatalf("unexpected result %+v", result)
	}

	reports, err := store.QueryReports(context.Background(), models.ReportFilter{Village: "Rampur"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, r := range reports {
		if r.SubmittedVia != models.ChannelOfflineVillager || r.WaterSource != "Unknown" {
			t.Fatalf("offline defaults not applied: %+v", r)
		}
	}
}

func TestSubmitSMS(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := newTestService(t, store, &recordingRunner{})

	body := "[VILLAGER HEALTH REPORT]\nName: Meena\nVillage: Sonpur\nSymptoms: Vomiting\n[Please process this villager report]"
	report, err := svc.SubmitSMS(context.Background(), body, "asha-7", true)
	if err != nil {
		t.Fatalf("submit sms: %v", err)
	}
	if report.SubmittedVia != models.ChannelSMS || report.Village != "Sonpur" || report.SubmitterID != "asha-7" {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := svc.SubmitSMS(context.Background(), "hi", "asha-7", false); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected invalid submission, got %v", err)
	}
}

func TestSubmitSensorReadingValidation(t *testing.T) {
	runner := &recordingRunner{}
	svc := newTestService(t, repo.NewMemoryStore(), runner)

	cases := []models.SensorSubmission{
		{Village: "", PH: 7, Turbidity: 1},
		{Village: "Rampur", PH: 15, Turbidity: 1},
		{Village: "Rampur", PH: 7, Turbidity: -1},
	}
	for i, c := range cases {
		if _, err := svc.SubmitSensorReading(context.Background(), c); !errors.Is(err, ErrInvalidSubmission) {
			t.Fatalf("case %d: expected rejection, got %v", i, err)
		}
	}

	if _, err := svc.SubmitSensorReading(context.Background(), models.SensorSubmission{Village: "Rampur", PH: 6.2, Turbidity: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if seen := runner.seen(); len(seen) != 1 || seen[0] != nil {
		t.Fatalf("sensor submissions should sweep without a trigger: %+v", seen)
	}
}

func TestListAlertsFiltersByRole(t *testing.T) {
	store := repo.NewMemoryStore()
	for _, insert := range []models.AlertInsert{
		{Message: "officials only", TargetRoles: []models.Role{models.RoleOfficial}, CreatedBy: "u"},
		{Message: "everyone", TargetRoles: []models.Role{models.RoleOfficial, models.RoleVillager}, CreatedBy: "u"},
	} {
		if _, err := store.InsertAlert(context.Background(), insert); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := newTestService(t, store, &recordingRunner{})

	alerts, err := svc.ListAlerts(context.Background(), models.AlertQuery{Role: models.RoleVillager})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Message != "everyone" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
	if _, err := svc.ListAlerts(context.Background(), models.AlertQuery{Role: "mayor"}); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected unknown role rejection, got %v", err)
	}
}

func TestRunDetectionEndToEnd(t *testing.T) {
	store := repo.NewMemoryStore()
	th := engine.DefaultThresholds()
	th.Location = time.UTC
	detector := engine.NewDetector(utils.DiscardLogger(), store, engine.SystemClock(), nil, engine.DetectorConfig{Thresholds: th})
	svc := newTestService(t, store, detector)

	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitReport(context.Background(), validReport()); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	clusters, err := store.QueryAlerts(context.Background(), models.AlertFilter{Village: "Rampur", DiseaseOrParameter: "Diarrhea"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(clusters) == 0 {
		t.Fatalf("expected background runs to raise a cluster alert")
	}

	if _, err := svc.RunDetection(context.Background(), &models.ReportTrigger{Village: " "}); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected blank trigger rejection, got %v", err)
	}
	summary, err := svc.RunDetection(context.Background(), &models.ReportTrigger{Village: "Rampur", Symptoms: "Diarrhea"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	found := false
	for _, a := range summary.Created {
		if a.Type == models.AlertTypeDiseaseCluster && *a.Value == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("synchronous run should report the cluster: %+v", summary.Created)
	}

	hotspots, err := svc.Hotspots(context.Background())
	if err != nil {
		t.Fatalf("hotspots: %v", err)
	}
	if len(hotspots) != 1 || hotspots[0].CaseCount != 3 || hotspots[0].RiskLevel != models.RiskMedium {
		t.Fatalf("unexpected hotspots %+v", hotspots)
	}
}

func TestIntakeStampsStoreTime(t *testing.T) {
	stamped := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store := repo.NewMemoryStore().WithNow(func() time.Time { return stamped })
	svc := newTestService(t, store, &recordingRunner{})
	ctx := context.Background()

	body := "[VILLAGER HEALTH REPORT]\nName: Meena\nVillage: Sonpur\nSymptoms: Vomiting\nTime: 2030-01-01 00:00:00\n[Please process this villager report]"
	for i := 0; i < 3; i++ {
		report, err := svc.SubmitSMS(ctx, body, "asha-7", false)
		if err != nil {
			t.Fatalf("submit sms %d: %v", i, err)
		}
		if !report.CreatedAt.Equal(stamped) {
			t.Fatalf("sms report %d stamped %v, want %v", i, report.CreatedAt, stamped)
		}
	}

	online := validReport()
	online.CreatedAt = future
	report, err := svc.SubmitReport(ctx, online)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !report.CreatedAt.Equal(stamped) {
		t.Fatalf("online report stamped %v, want %v", report.CreatedAt, stamped)
	}

	queued := validReport()
	queued.Village = "Kalipur"
	queued.CreatedAt = future
	if result := svc.SyncReports(ctx, []models.ReportSubmission{queued}); result.Synced != 1 {
		t.Fatalf("unexpected sync result %+v", result)
	}
	synced, err := store.QueryReports(ctx, models.ReportFilter{Village: "Kalipur"})
	if err != nil || len(synced) != 1 || !synced[0].CreatedAt.Equal(stamped) {
		t.Fatalf("synced report not stamped with store time: %+v err=%v", synced, err)
	}

	reading, err := svc.SubmitSensorReading(ctx, models.SensorSubmission{Village: "Sonpur", PH: 7, Turbidity: 1, CreatedAt: future})
	if err != nil {
		t.Fatalf("submit sensor: %v", err)
	}
	if !reading.CreatedAt.Equal(stamped) {
		t.Fatalf("sensor reading stamped %v, want %v", reading.CreatedAt, stamped)
	}

	// A day later the SMS reports have aged out of the cluster window.
	th := engine.DefaultThresholds()
	th.Location = time.UTC
	later := engine.NewDetector(utils.DiscardLogger(), store, engine.FixedClock(stamped.Add(25*time.Hour)), nil, engine.DetectorConfig{Thresholds: th})
	summary := later.Run(ctx, &models.ReportTrigger{Village: "Sonpur", Symptoms: "Vomiting"})
	if len(summary.Created) != 0 {
		t.Fatalf("stale reports should not raise alerts: %+v", summary.Created)
	}
}

func TestSubmitReportRefreshesCachedHotspots(t *testing.T) {
	store := repo.NewMemoryStore()
	miner := patterns.NewHotspotMiner(utils.DiscardLogger(), store, 0, cache.NewMemoryProvider(), time.Hour)
	svc := NewOutbreakService(utils.DiscardLogger(), store, &recordingRunner{}, miner, time.UTC)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	if hotspots, err := svc.Hotspots(ctx); err != nil || len(hotspots) != 0 {
		t.Fatalf("expected no hotspots yet, got %+v err=%v", hotspots, err)
	}
	if _, err := svc.SubmitReport(ctx, validReport()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	hotspots, err := svc.Hotspots(ctx)
	if err != nil {
		t.Fatalf("hotspots: %v", err)
	}
	if len(hotspots) != 1 || hotspots[0].Village != "Rampur" || hotspots[0].CaseCount != 1 {
		t.Fatalf("cached hotspots were not refreshed: %+v", hotspots)
	}
}
