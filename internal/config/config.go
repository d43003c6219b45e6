package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Store drivers understood by the service.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePostgREST = "postgrest"
)

// Config captures the settings required to boot the outbreak engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Rules    RulesConfig    `yaml:"rules"`
	Hotspots HotspotsConfig `yaml:"hotspots"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Feed     FeedConfig     `yaml:"feed"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// StoreConfig selects and configures the record store gateway.
type StoreConfig struct {
	Driver     string          `yaml:"driver"`
	SQLitePath string          `yaml:"sqlitePath"`
	PostgREST  PostgRESTConfig `yaml:"postgrest"`
}

// PostgRESTConfig configures access to a Supabase/PostgREST instance.
type PostgRESTConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Schema  string        `yaml:"schema"`
	Timeout time.Duration `yaml:"timeout"`
}

// RulesConfig tunes outbreak detection thresholds.
type RulesConfig struct {
	Window           time.Duration `yaml:"window"`
	ClusterMinCases  int           `yaml:"clusterMinCases"`
	SeasonalMinCases int           `yaml:"seasonalMinCases"`
	SeasonStartMonth int           `yaml:"seasonStartMonth"`
	SeasonEndMonth   int           `yaml:"seasonEndMonth"`
	SeasonalKeywords []string      `yaml:"seasonalKeywords"`
	PHMin            float64       `yaml:"phMin"`
	TurbidityMax     float64       `yaml:"turbidityMax"`
	Timezone         string        `yaml:"timezone"`
}

// HotspotsConfig controls the village hotspot aggregation.
type HotspotsConfig struct {
	Window   time.Duration `yaml:"window"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// FeedConfig controls the websocket alert feed.
type FeedConfig struct {
	Enabled    bool `yaml:"enabled"`
	SendBuffer int  `yaml:"sendBuffer"`
}

// CacheConfig controls Valkey-backed caching of repeated lookups.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	AuthorTTL    time.Duration `yaml:"authorTTL"`
}

// Location resolves the configured timezone; an empty value means the process-local zone.
func (r RulesConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(r.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("OUTBREAK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgREST:
		if c.Store.PostgREST.BaseURL == "" {
			return fmt.Errorf("store.postgrest.baseURL is required for the postgrest driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Rules.SeasonStartMonth < 1 || c.Rules.SeasonStartMonth > 12 || c.Rules.SeasonEndMonth < 1 || c.Rules.SeasonEndMonth > 12 {
		return fmt.Errorf("rules season months must be within 1-12")
	}
	if _, err := c.Rules.Location(); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			SQLitePath: "data/outbreak.db",
			PostgREST: PostgRESTConfig{
				Schema:  "public",
				Timeout: 5 * time.Second,
			},
		},
		Rules: RulesConfig{
			Window:           24 * time.Hour,
			ClusterMinCases:  3,
			SeasonalMinCases: 2,
			SeasonStartMonth: 7,
			SeasonEndMonth:   9,
			SeasonalKeywords: []string{"diarrhea", "cholera", "loose motions", "vomiting"},
			PHMin:            6.5,
			TurbidityMax:     5,
		},
		Hotspots: HotspotsConfig{
			Window:   7 * 24 * time.Hour,
			CacheTTL: time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Feed:    FeedConfig{Enabled: true, SendBuffer: 32},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			AuthorTTL:    10 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OUTBREAK_GRPC_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OUTBREAK_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("OUTBREAK_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("OUTBREAK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("OUTBREAK_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("OUTBREAK_SUPABASE_URL"); v != "" {
		cfg.Store.PostgREST.BaseURL = v
	}
	if v := os.Getenv("OUTBREAK_SUPABASE_KEY"); v != "" {
		cfg.Store.PostgREST.APIKey = v
	}
	if v := os.Getenv("OUTBREAK_SUPABASE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.PostgREST.Timeout = d
		}
	}
	if v := os.Getenv("OUTBREAK_RULES_TIMEZONE"); v != "" {
		cfg.Rules.Timezone = v
	}
	if v := os.Getenv("OUTBREAK_RULES_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Rules.Window = d
		}
	}
	if v := os.Getenv("OUTBREAK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OUTBREAK_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("OUTBREAK_FEED_ENABLED"); v != "" {
		cfg.Feed.Enabled = parseBool(v)
	}
	if v := os.Getenv("OUTBREAK_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("OUTBREAK_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("OUTBREAK_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("OUTBREAK_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("OUTBREAK_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("OUTBREAK_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("OUTBREAK_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("OUTBREAK_CACHE_AUTHOR_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.AuthorTTL = d
		}
	}
	if v := os.Getenv("OUTBREAK_HOTSPOTS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Hotspots.CacheTTL = d
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
