package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/cache"
	"github.com/jalrakshak/outbreak-engine/internal/config"
	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/repo"
)

func openStore(cfg config.StoreConfig) (repo.Gateway, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return repo.NewMemoryStore(), nil
	case config.StoreSQLite:
		store, err := repo.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StorePostgREST:
		return repo.NewPostgRESTStore(repo.PostgRESTOptions{
			BaseURL: cfg.PostgREST.BaseURL,
			APIKey:  cfg.PostgREST.APIKey,
			Schema:  cfg.PostgREST.Schema,
			Timeout: cfg.PostgREST.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openCache prefers Valkey and falls back to an in-process cache so the author lookup
// is still memoised on a single node.
func openCache(logger *slog.Logger, cfg config.CacheConfig) cache.Provider {
	if cfg.Enabled && cfg.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err == nil {
			return provider
		}
		logger.Warn("valkey cache unavailable, using in-process cache", slog.Any("error", err))
	}
	return cache.NewMemoryProvider()
}

func thresholdsFrom(rules config.RulesConfig) (engine.Thresholds, error) {
	loc, err := rules.Location()
	if err != nil {
		return engine.Thresholds{}, err
	}
	th := engine.DefaultThresholds()
	if rules.Window > 0 {
		th.Window = rules.Window
	}
	if rules.ClusterMinCases > 0 {
		th.ClusterMinCases = rules.ClusterMinCases
	}
	if rules.SeasonalMinCases > 0 {
		th.SeasonalMinCases = rules.SeasonalMinCases
	}
	if rules.SeasonStartMonth > 0 {
		th.SeasonStart = time.Month(rules.SeasonStartMonth)
	}
	if rules.SeasonEndMonth > 0 {
		th.SeasonEnd = time.Month(rules.SeasonEndMonth)
	}
	if len(rules.SeasonalKeywords) > 0 {
		th.SeasonalKeywords = append([]string(nil), rules.SeasonalKeywords...)
	}
	if rules.PHMin > 0 {
		th.PHMin = rules.PHMin
	}
	if rules.TurbidityMax > 0 {
		th.TurbidityMax = rules.TurbidityMax
	}
	th.Location = loc
	return th, nil
}
