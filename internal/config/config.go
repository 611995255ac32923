// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, handoff retention, sentiment
// scoring, telemetry, rate limiting, and observability.
//
// Values are resolved in this order: process environment, then the optional
// YAML file named by CONFIG_FILE (flat KEY: value pairs using the same names
// as the environment variables), then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-handoff-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-handoff-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and addresses the document store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite)
	DSN    string // DB_DSN (postgres)
}

// SentimentConfig configures the Text Analytics sentiment collaborator.
// Scoring is disabled when Key is empty.
type SentimentConfig struct {
	Key      string        // TEXT_ANALYTICS_KEY
	URL      string        // TEXT_ANALYTICS_URL
	Language language.Tag  // SENTIMENT_LANGUAGE (BCP-47)
	Timeout  time.Duration // SENTIMENT_TIMEOUT
	RPS      float64       // SENTIMENT_RPS, 0 disables client-side limiting
}

// Enabled reports whether sentiment collection is configured.
func (s SentimentConfig) Enabled() bool { return strings.TrimSpace(s.Key) != "" }

// TelemetryConfig configures transcript event tracking.
type TelemetryConfig struct {
	Enabled bool   // TELEMETRY_ENABLED
	Sink    string // TELEMETRY_SINK: otel|log|both
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB DBConfig

	// Handoff
	RetainData bool // keep conversations (agent cleared) after a handoff ends

	// Collaborators
	Sentiment SentimentConfig
	Telemetry TelemetryConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables (and CONFIG_FILE when
// set), applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}

	cfg := Config{
		// Server
		Port:              src.getenv("PORT", "8080"),
		ReadTimeout:       src.getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: src.getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      src.getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       src.getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    src.getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(src.getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(src.getenv("LOG_LEVEL", "info")),
		LogPretty:      src.getbool("LOG_PRETTY", false),
		SwaggerEnabled: src.getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(src.getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(src.getenv("DB_DRIVER", "sqlite")),
			Path:   src.getenv("DB_PATH", "handoff.db"),
			DSN:    src.getenv("DB_DSN", ""),
		},

		// Handoff
		RetainData: src.getbool("RETAIN_DATA", false),

		// Collaborators
		Sentiment: SentimentConfig{
			Key:     src.getenv("TEXT_ANALYTICS_KEY", ""),
			URL:     src.getenv("TEXT_ANALYTICS_URL", "https://westus.api.cognitive.microsoft.com/text/analytics/v2.0/sentiment"),
			Timeout: src.getdur("SENTIMENT_TIMEOUT", 5*time.Second),
			RPS:     src.getfloat("SENTIMENT_RPS", 10),
		},
		Telemetry: TelemetryConfig{
			Enabled: src.getbool("TELEMETRY_ENABLED", false),
			Sink:    strings.ToLower(src.getenv("TELEMETRY_SINK", "log")),
		},

		// Rate limiting
		RateRPS:   src.getfloat("RATE_RPS", 20.0),
		RateBurst: src.getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(src.getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: src.getbool("ENABLE_HSTS", false),
			HSTSMaxAge: src.getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: src.getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     src.getbool("OTEL_ENABLED", false),
			Endpoint:    src.getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    src.getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: src.getenv("OTEL_SERVICE_NAME", "go-handoff-backend"),
			SampleRatio: src.getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	tag, err := language.Parse(src.getenv("SENTIMENT_LANGUAGE", "en"))
	if err != nil {
		return cfg, fmt.Errorf("SENTIMENT_LANGUAGE: %w", err)
	}
	cfg.Sentiment.Language = tag

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.Sentiment.Enabled() && strings.TrimSpace(cfg.Sentiment.URL) == "" {
		return cfg, errors.New("TEXT_ANALYTICS_URL must not be empty when TEXT_ANALYTICS_KEY is set")
	}
	if cfg.Sentiment.Timeout <= 0 {
		return cfg, errors.New("SENTIMENT_TIMEOUT must be > 0")
	}
	if cfg.Sentiment.RPS < 0 {
		return cfg, errors.New("SENTIMENT_RPS must be >= 0")
	}
	switch cfg.Telemetry.Sink {
	case "otel", "log", "both":
	default:
		return cfg, errors.New("TELEMETRY_SINK must be one of: otel, log, both")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// readFile parses a flat YAML mapping of setting names to scalar values.
func readFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(tv)
		}
	}
	return out, nil
}

// ---- helpers ----

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(k string) (string, bool) {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v, true
	}
	if v, ok := s.file[k]; ok && v != "" {
		return v, true
	}
	return "", false
}

func (s source) getenv(k, def string) string {
	if v, ok := s.lookup(k); ok {
		return v
	}
	return def
}

func (s source) getfloat(k string, def float64) float64 {
	if v, ok := s.lookup(k); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s source) getint(k string, def int) int {
	if v, ok := s.lookup(k); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) getbool(k string, def bool) bool {
	if v, ok := s.lookup(k); ok {
		if b, ok := sysutil.ParseBool(v); ok {
			return b
		}
	}
	return def
}

func (s source) getdur(k string, def time.Duration) time.Duration {
	if v, ok := s.lookup(k); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
