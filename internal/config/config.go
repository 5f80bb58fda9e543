// Package config binds the service settings to environment variables with
// github.com/caarlos0/env tags. Load normalizes the parsed values and
// validates them as a whole.
package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"  envDefault:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"                envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME"           envDefault:"go-summary-backend"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG"     envDefault:"1.0"` // [0..1]
}

// CompletionConfig points the summarization workflow at an OpenAI-compatible
// chat-completions endpoint. An empty APIKey is accepted at startup; the
// workflow reports it to callers instead of failing the process.
type CompletionConfig struct {
	APIKey   string `env:"GROQ_API_KEY"`
	BaseURL  string `env:"GROQ_BASE_URL"    envDefault:"https://api.groq.com/openai/v1"`
	Model    string `env:"GROQ_MODEL"       envDefault:"openai/gpt-oss-120b"`
	Language string `env:"SUMMARY_LANGUAGE" envDefault:"zh-Hant"` // BCP-47 tag of the summary language
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT"                envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT"        envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       envDefault:"120s"` // completions can be slow
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        envDefault:"60s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES"    envDefault:"1048576"`
	GinMode           string        `env:"GIN_MODE"            envDefault:"release"` // debug|release|test

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"` // trace|debug|info|warn|error|fatal|panic|disabled
	LogPretty      bool   `env:"LOG_PRETTY"      envDefault:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" envDefault:"false"`
	APIBasePath    string `env:"API_BASE_PATH"   envDefault:"/api"`

	// Service identity reported by the health endpoint
	ServiceName    string `env:"SERVICE_NAME"    envDefault:"AI Summary Service"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`

	// App
	DBPath string `env:"DB_PATH" envDefault:"summary.db"`

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS"   envDefault:"5"`
	RateBurst int     `env:"RATE_BURST" envDefault:"10"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Observability
	OTEL OTELConfig

	// Upstream completion API
	Completion CompletionConfig
}

// MustLoad is Load for process startup: it panics on invalid settings.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load parses the environment, normalizes the values and validates them.
// Every failed check is reported in the joined error.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, cfg.validate()
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	if c.GinMode != gin.DebugMode && c.GinMode != gin.TestMode {
		c.GinMode = gin.ReleaseMode
	}
	c.Port = strings.TrimSpace(c.Port)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	c.CORS.AllowedOrigins = cleanList(c.CORS.AllowedOrigins)
	c.Completion.APIKey = strings.TrimSpace(c.Completion.APIKey)
	c.Completion.BaseURL = strings.TrimRight(strings.TrimSpace(c.Completion.BaseURL), "/")
	c.Completion.Model = strings.TrimSpace(c.Completion.Model)
}

func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	lvl, err := zerolog.ParseLevel(c.LogLevel)
	check(err == nil && lvl != zerolog.NoLevel, "LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	check(c.Port != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(c.DBPath != "", "DB_PATH must not be empty")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	check(c.Completion.BaseURL != "", "GROQ_BASE_URL must not be empty")
	check(c.Completion.Model != "", "GROQ_MODEL must not be empty")
	if _, err := language.Parse(c.Completion.Language); err != nil {
		errs = append(errs, fmt.Errorf("SUMMARY_LANGUAGE must be a BCP-47 language tag: %w", err))
	}

	return errors.Join(errs...)
}

// cleanList trims entries and drops blanks; nothing left yields nil.
func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// normalizeBasePath returns p as a clean absolute path without a trailing
// slash; blank input maps to "/".
func normalizeBasePath(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}
