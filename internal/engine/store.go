package engine

import (
	"context"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// Store defines the record-store operations the detector relies on.
type Store interface {
	QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	QuerySensors(ctx context.Context, filter models.SensorFilter) ([]models.SensorReading, error)
	QueryAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	QueryProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	InsertAlert(ctx context.Context, alert models.AlertInsert) (models.Alert, error)
}
