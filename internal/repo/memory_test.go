package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (p *recordingPublisher) PublishAlert(alert models.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
}

func TestMemoryStoreAlertFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithNow(func() time.Time { return now.Add(-2 * time.Hour) })

	if _, err := store.InsertAlert(ctx, models.AlertInsert{
		Message: "old", Village: "X", DiseaseOrParameter: "pH", Auto: true,
		TargetRoles: []models.Role{models.RoleOfficial},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store.WithNow(func() time.Time { return now })
	if _, err := store.InsertAlert(ctx, models.AlertInsert{
		Message: "manual", Village: "X", DiseaseOrParameter: "pH", Auto: false,
		TargetRoles: []models.Role{models.RoleVillager},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	auto, err := store.QueryAlerts(ctx, models.AlertFilter{
		Village: "X", DiseaseOrParameter: "pH", Auto: models.Bool(true),
		CreatedAfter: now.Add(-24 * time.Hour), Limit: 1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(auto) != 1 || auto[0].Message != "old" {
		t.Fatalf("unexpected auto alerts: %+v", auto)
	}

	all, err := store.QueryAlerts(ctx, models.AlertFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 || all[0].Message != "manual" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	none, err := store.QueryAlerts(ctx, models.AlertFilter{Village: "Y"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no alerts for Y, got %d", len(none))
	}
}

func TestMemoryStoreWindowIsInclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	edge := now.Add(-24 * time.Hour)

	if _, err := store.InsertReport(ctx, models.ReportSubmission{PatientName: "a", Village: "V", Symptoms: "Fever", CreatedAt: edge}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.InsertReport(ctx, models.ReportSubmission{PatientName: "b", Village: "V", Symptoms: "Fever", CreatedAt: edge.Add(-time.Nanosecond)}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reports, err := store.QueryReports(ctx, models.ReportFilter{Village: "V", Symptoms: "Fever", CreatedAfter: edge})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(reports) != 1 || reports[0].PatientName != "a" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestPublishingGatewayPublishesStoredAlerts(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	gateway := NewPublishingGateway(NewMemoryStore(), publisher)

	alert, err := gateway.InsertAlert(ctx, models.AlertInsert{Message: "boil water", TargetRoles: []models.Role{models.RoleVillager}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(publisher.alerts) != 1 || publisher.alerts[0].ID != alert.ID {
		t.Fatalf("expected stored alert to be published, got %+v", publisher.alerts)
	}

	if _, err := gateway.InsertReport(ctx, models.ReportSubmission{PatientName: "a", Village: "V", Symptoms: "Fever"}); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	if len(publisher.alerts) != 1 {
		t.Fatalf("reports must not be published")
	}
}
