package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

// DedupGuard suppresses repeat automatic alerts for the same village and parameter.
//
// The check and the later insert are not atomic. Two runs racing on the same
// village can both pass the guard and persist duplicate alerts.
type DedupGuard struct {
	store  Store
	window time.Duration
	logger *slog.Logger
}

// NewDedupGuard returns a guard looking back over window.
func NewDedupGuard(store Store, window time.Duration, logger *slog.Logger) *DedupGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupGuard{store: store, window: window, logger: logger}
}

// Suppress reports whether an automatic alert for village and parameter already exists
// inside the window ending at now. A failed lookup does not suppress.
func (g *DedupGuard) Suppress(ctx context.Context, now time.Time, village, parameter string) bool {
	existing, err := g.store.QueryAlerts(ctx, models.AlertFilter{
		Village:            village,
		DiseaseOrParameter: parameter,
		Auto:               models.Bool(true),
		CreatedAfter:       utils.WindowStart(now, g.window),
		Limit:              1,
	})
	if err != nil {
		g.logger.Warn("dedup lookup failed, alerting anyway",
			slog.String("village", village),
			slog.String("parameter", parameter),
			slog.Any("error", err),
		)
		return false
	}
	return len(existing) > 0
}
