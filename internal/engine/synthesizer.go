package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jalrakshak/outbreak-engine/internal/cache"
	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// SystemAuthorID attributes automatic alerts when no official profile exists.
var SystemAuthorID = uuid.Nil.String()

const authorCacheKey = "outbreak:author:official"

// Synthesizer turns accepted candidates into persisted automatic alerts.
type Synthesizer struct {
	store     Store
	cache     cache.Provider
	authorTTL time.Duration
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer. A nil provider disables author caching.
func NewSynthesizer(store Store, provider cache.Provider, authorTTL time.Duration, logger *slog.Logger) *Synthesizer {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{store: store, cache: provider, authorTTL: authorTTL, logger: logger}
}

// ResolveAuthor returns the user id of any official profile, or SystemAuthorID.
func (s *Synthesizer) ResolveAuthor(ctx context.Context) string {
	if cached, err := s.cache.Get(ctx, authorCacheKey); err == nil && len(cached) > 0 {
		return string(cached)
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Debug("author cache lookup failed", slog.Any("error", err))
	}

	profiles, err := s.store.QueryProfiles(ctx, models.ProfileFilter{Role: models.RoleOfficial, Limit: 1})
	if err != nil {
		s.logger.Warn("official lookup failed, using system author", slog.Any("error", err))
		return SystemAuthorID
	}
	if len(profiles) == 0 || profiles[0].UserID == "" {
		return SystemAuthorID
	}

	author := profiles[0].UserID
	if s.authorTTL > 0 {
		if err := s.cache.Set(ctx, authorCacheKey, []byte(author), s.authorTTL); err != nil {
			s.logger.Debug("author cache store failed", slog.Any("error", err))
		}
	}
	return author
}

// Create persists the candidate as an automatic alert.
func (s *Synthesizer) Create(ctx context.Context, c Candidate) (models.Alert, error) {
	insert := models.AlertInsert{
		Message:            c.Message,
		TargetRoles:        append([]models.Role(nil), c.TargetRoles...),
		CreatedBy:          s.ResolveAuthor(ctx),
		Village:            c.Village,
		Type:               c.Type,
		DiseaseOrParameter: c.DiseaseOrParameter,
		Value:              models.Float64(c.Value),
		Auto:               true,
	}

	alert, err := s.store.InsertAlert(ctx, insert)
	if err != nil {
		return models.Alert{}, fmt.Errorf("insert %s alert for %s: %w", c.Type, c.Village, err)
	}

	s.logger.Info("automatic alert created",
		slog.String("alert_id", alert.ID),
		slog.String("type", string(c.Type)),
		slog.String("village", c.Village),
		slog.String("parameter", c.DiseaseOrParameter),
		slog.Float64("value", c.Value),
	)
	return alert, nil
}
