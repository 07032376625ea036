package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Model     ModelConfig     `yaml:"model"`
	Storage   StorageConfig   `yaml:"storage"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// BackendConfig points at the remote prediction service.
type BackendConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	Timeout   time.Duration `yaml:"timeout"`
	Endpoints EndpointPaths `yaml:"endpoints"`
}

// EndpointPaths lists the backend routes. Paths changed across backend releases,
// so every one of them is configurable.
type EndpointPaths struct {
	Predict          string `yaml:"predict"`
	CurrentThreshold string `yaml:"currentThreshold"`
	VerifyPIN        string `yaml:"verifyPin"`
	UpdateThreshold  string `yaml:"updateThreshold"`
	SaveChartImage   string `yaml:"saveChartImage"`
	ExportCSV        string `yaml:"exportCsv"`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	CookieName string        `yaml:"cookieName"`
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	DefaultFractions  map[string]float64 `yaml:"defaultFractions"`
	RequireBatch      bool               `yaml:"requireBatch"`
	PixelCeiling      int                `yaml:"pixelCeiling"`
	ChartWidth        int                `yaml:"chartWidth"`
	ChartHeight       int                `yaml:"chartHeight"`
	SuccessCloseDelay time.Duration      `yaml:"successCloseDelay"`
	FallbackThreshold float64            `yaml:"fallbackThreshold"`
}

// ModelConfig describes the backend model for reports. It is display metadata only.
type ModelConfig struct {
	Name       string           `yaml:"name"`
	Indicator  string           `yaml:"indicator"`
	Parameters []ModelParameter `yaml:"parameters"`
}

// ModelParameter is one named hyperparameter shown in reports.
type ModelParameter struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// StorageConfig groups the optional persistence backends.
type StorageConfig struct {
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

// ValkeyConfig contains connection information for session and queue storage.
type ValkeyConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
	QueueKey   string        `yaml:"queueKey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// S3Config configures the chart snapshot archive.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_PREDICT_PATH"); v != "" {
		cfg.Backend.Endpoints.Predict = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = parsed
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		cfg.Session.Secure = parseBool(v)
	}
	if v := os.Getenv("DASHBOARD_REQUIRE_BATCH"); v != "" {
		cfg.Dashboard.RequireBatch = parseBool(v)
	}
	if v := os.Getenv("DASHBOARD_PIXEL_CEILING"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.PixelCeiling = parsed
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Storage.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Storage.Valkey.Addr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
			Endpoints: EndpointPaths{
				Predict:          "/predict-image",
				CurrentThreshold: "/current-threshold",
				VerifyPIN:        "/verify-pin",
				UpdateThreshold:  "/update-threshold",
				SaveChartImage:   "/save-chart-image",
				ExportCSV:        "/export-csv",
			},
		},
		Session: SessionConfig{
			CookieName: "thermostraw_session",
			Secret:     "change-me-in-production",
			TTL:        12 * time.Hour,
		},
		Dashboard: DashboardConfig{
			RequireBatch:      true,
			PixelCeiling:      900000,
			ChartWidth:        900,
			ChartHeight:       450,
			SuccessCloseDelay: 2 * time.Second,
			FallbackThreshold: 0.045,
		},
		Model: ModelConfig{
			Name:      "GP V4-BEST",
			Indicator: "EE_best",
			Parameters: []ModelParameter{
				{Name: "k500", Value: "1.83"},
				{Name: "k250", Value: "3.04"},
				{Name: "c", Value: "0.196"},
				{Name: "dmax", Value: "1.76%"},
				{Name: "α", Value: "0.572"},
			},
		},
		Storage: StorageConfig{
			Valkey: ValkeyConfig{
				Prefix:     "thermostraw",
				SessionTTL: 12 * time.Hour,
				QueueKey:   "thermostraw:snapshots",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			S3: S3Config{
				Bucket: "thermostraw-charts",
				Region: "auto",
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.baseUrl cannot be empty")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	endpoints := map[string]string{
		"predict":          c.Backend.Endpoints.Predict,
		"currentThreshold": c.Backend.Endpoints.CurrentThreshold,
		"verifyPin":        c.Backend.Endpoints.VerifyPIN,
		"updateThreshold":  c.Backend.Endpoints.UpdateThreshold,
		"saveChartImage":   c.Backend.Endpoints.SaveChartImage,
		"exportCsv":        c.Backend.Endpoints.ExportCSV,
	}
	for name, path := range endpoints {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("backend.endpoints.%s must start with /", name)
		}
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("session.cookieName cannot be empty")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("session.secret must be at least 16 characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Dashboard.PixelCeiling <= 0 {
		return errors.New("dashboard.pixelCeiling must be positive")
	}
	if c.Dashboard.ChartWidth <= 0 || c.Dashboard.ChartHeight <= 0 {
		return errors.New("dashboard chart size must be positive")
	}
	if c.Dashboard.SuccessCloseDelay < 0 {
		return errors.New("dashboard.successCloseDelay cannot be negative")
	}
	if c.Storage.Valkey.Enabled && strings.TrimSpace(c.Storage.Valkey.Addr) == "" {
		return errors.New("storage.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
