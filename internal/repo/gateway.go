package repo

import (
	"context"
	"errors"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// ErrNotFound is returned when an insert yields no stored row.
var ErrNotFound = errors.New("record not found")

// Gateway is the record store behind the outbreak engine: patient reports, sensor
// readings, alerts and user profiles.
type Gateway interface {
	QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	QuerySensors(ctx context.Context, filter models.SensorFilter) ([]models.SensorReading, error)
	QueryAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	QueryProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	InsertAlert(ctx context.Context, alert models.AlertInsert) (models.Alert, error)
	InsertReport(ctx context.Context, report models.ReportSubmission) (models.Report, error)
	InsertSensorReading(ctx context.Context, reading models.SensorSubmission) (models.SensorReading, error)
	InsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	Close() error
}
