// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP host, logging, the relational store, the embedding provider, the
// vector index, the compiler, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS and the
// admin token secret that gates destructive endpoints.
type SecurityConfig struct {
	EnableHSTS     bool
	HSTSMaxAge     time.Duration
	AdminJWTSecret string // ADMIN_JWT_SECRET; empty disables hard delete over HTTP
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the relational store backing the overlay repository.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN (DATABASE_URL)
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	APIKey   string // OPENAI_API_KEY
	BaseURL  string // OPENAI_BASE_URL (optional, for proxies/compatible servers)
	Model    string // EMBEDDING_MODEL
	Dim      int    // EMBEDDING_DIM; 0 derives it from the model
	BatchMax int    // EMBEDDING_BATCH_MAX inputs per provider request
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	Provider   string        // qdrant|memory
	URL        string        // QDRANT_URL
	Collection string        // QDRANT_COLLECTION
	APIKey     string        // QDRANT_API_KEY
	Timeout    time.Duration // QDRANT_TIMEOUT
}

// CompilerConfig configures compile passes and inheritance resolution.
type CompilerConfig struct {
	BatchSize        int           // COMPILE_BATCH_SIZE
	AutoInterval     time.Duration // AUTO_COMPILE_INTERVAL; 0 disables the periodic loop
	OverrideKey      string        // OVERRIDE_KEY: domain_title|title
	OverrideFoldCase bool          // OVERRIDE_KEY_FOLD_CASE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	DB        DBConfig
	Embedding EmbeddingConfig
	Vector    VectorConfig
	Compiler  CompilerConfig

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

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:     getbool("ENABLE_HSTS", false),
			HSTSMaxAge:     getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			AdminJWTSecret: getenv("ADMIN_JWT_SECRET", ""),
		},

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "overlay.db"),
			DSN:    getenv("DATABASE_URL", ""),
		},
		Embedding: EmbeddingConfig{
			APIKey:   getenv("OPENAI_API_KEY", ""),
			BaseURL:  getenv("OPENAI_BASE_URL", ""),
			Model:    getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dim:      getint("EMBEDDING_DIM", 0),
			BatchMax: getint("EMBEDDING_BATCH_MAX", 256),
		},
		Vector: VectorConfig{
			Provider:   strings.ToLower(getenv("VECTOR_PROVIDER", "qdrant")),
			URL:        getenv("QDRANT_URL", "http://localhost:6333"),
			Collection: getenv("QDRANT_COLLECTION", "overlays"),
			APIKey:     getenv("QDRANT_API_KEY", ""),
			Timeout:    getdur("QDRANT_TIMEOUT", 10*time.Second),
		},
		Compiler: CompilerConfig{
			BatchSize:        getint("COMPILE_BATCH_SIZE", 10),
			AutoInterval:     getdur("AUTO_COMPILE_INTERVAL", 0),
			OverrideKey:      strings.ToLower(getenv("OVERRIDE_KEY", "domain_title")),
			OverrideFoldCase: getbool("OVERRIDE_KEY_FOLD_CASE", false),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "overlay-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
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
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}

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
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.Embedding.Model) == "" {
		return cfg, errors.New("EMBEDDING_MODEL must not be empty")
	}
	if cfg.Embedding.Dim < 0 {
		return cfg, errors.New("EMBEDDING_DIM must be >= 0")
	}
	if cfg.Embedding.BatchMax < 1 {
		return cfg, errors.New("EMBEDDING_BATCH_MAX must be >= 1")
	}
	switch cfg.Vector.Provider {
	case "memory":
	case "qdrant":
		if strings.TrimSpace(cfg.Vector.URL) == "" || strings.TrimSpace(cfg.Vector.Collection) == "" {
			return cfg, errors.New("QDRANT_URL and QDRANT_COLLECTION are required when VECTOR_PROVIDER=qdrant")
		}
		if cfg.Vector.Timeout <= 0 {
			return cfg, errors.New("QDRANT_TIMEOUT must be > 0")
		}
	default:
		return cfg, errors.New("VECTOR_PROVIDER must be one of: qdrant, memory")
	}
	if cfg.Compiler.BatchSize < 1 {
		return cfg, errors.New("COMPILE_BATCH_SIZE must be >= 1")
	}
	if cfg.Compiler.AutoInterval < 0 {
		return cfg, errors.New("AUTO_COMPILE_INTERVAL must be >= 0")
	}
	switch cfg.Compiler.OverrideKey {
	case "domain_title", "title":
	default:
		return cfg, errors.New("OVERRIDE_KEY must be one of: domain_title, title")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
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
