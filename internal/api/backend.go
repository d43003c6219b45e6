package api

import (
	"context"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/sms"
)

// Backend is the outbreak service surface exposed over gRPC and HTTP.
type Backend interface {
	SubmitReport(ctx context.Context, sub models.ReportSubmission) (models.Report, error)
	SyncReports(ctx context.Context, subs []models.ReportSubmission) models.SyncResult
	SubmitSMS(ctx context.Context, body, submitterID string, viaASHA bool) (models.Report, error)
	ParseSMS(body string) (sms.Message, error)
	SubmitSensorReading(ctx context.Context, sub models.SensorSubmission) (models.SensorReading, error)
	RunDetection(ctx context.Context, trigger *models.ReportTrigger) (engine.RunSummary, error)
	ListAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error)
	Hotspots(ctx context.Context) ([]models.VillageHotspot, error)
}
