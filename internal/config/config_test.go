package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.APIBasePath != "/api" {
		t.Fatalf("defaults: base path %q", cfg.APIBasePath)
	}

	t.Setenv("RATE_BURST", "-3")
	panicked := func() (p any) {
		defer func() { p = recover() }()
		MustLoad()
		return nil
	}()
	err, ok := panicked.(error)
	if !ok || !strings.Contains(err.Error(), "RATE_BURST") {
		t.Fatalf("expected a RATE_BURST panic, got %v", panicked)
	}
}

// --- Load defaults ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" || cfg.WriteTimeout != 120*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server defaults unexpected: %+v", cfg)
	}
	if cfg.APIBasePath != "/api" || cfg.DBPath != "summary.db" {
		t.Fatalf("app defaults unexpected: %+v", cfg)
	}
	if cfg.ServiceName != "AI Summary Service" || cfg.ServiceVersion != "1.0.0" {
		t.Fatalf("identity defaults unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("limits defaults unexpected: %+v", cfg)
	}
	if cfg.Security.HSTSMaxAge != 180*24*time.Hour {
		t.Fatalf("HSTS default unexpected: %v", cfg.Security.HSTSMaxAge)
	}
	c := cfg.Completion
	if c.APIKey != "" || c.BaseURL != "https://api.groq.com/openai/v1" || c.Model != "openai/gpt-oss-120b" || c.Language != "zh-Hant" {
		t.Fatalf("completion defaults unexpected: %+v", c)
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("expected nil CORS origins by default, got %#v", cfg.CORS.AllowedOrigins)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	t.Setenv("LOG_LEVEL", "WARNING") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SWAGGER_ENABLED", "1")
	t.Setenv("API_BASE_PATH", "api/v2/") // -> "/api/v2"

	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("RATE_BURST", "3")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	t.Setenv("GROQ_API_KEY", "  sk-test  ")
	t.Setenv("GROQ_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("GROQ_MODEL", "llama-3.1-8b-instant")
	t.Setenv("SUMMARY_LANGUAGE", "en")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBPath != "db.sqlite" || cfg.RateRPS != 2.5 || cfg.RateBurst != 3 {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
	c := cfg.Completion
	if c.APIKey != "sk-test" || c.BaseURL != "http://localhost:9999/v1" || c.Model != "llama-3.1-8b-instant" || c.Language != "en" {
		t.Fatalf("completion unexpected: %+v", c)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("READ_TIMEOUT", "zzz")
		if _, err := Load(); err == nil || !containsErr(err, "parse environment") {
			t.Fatalf("expected parse error, got: %v", err)
		}
	})
	t.Run("bad float", func(t *testing.T) {
		t.Setenv("RATE_RPS", "x")
		if _, err := Load(); err == nil {
			t.Fatalf("expected parse error for RATE_RPS")
		}
	})
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", "IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
		{"blank base url", "GROQ_BASE_URL", "  ", "GROQ_BASE_URL"},
		{"blank model", "GROQ_MODEL", "  ", "GROQ_MODEL"},
		{"bad language tag", "SUMMARY_LANGUAGE", "not a tag!", "SUMMARY_LANGUAGE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %q validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Setenv("PORT", " ")
	t.Setenv("RATE_BURST", "0")
	t.Setenv("GROQ_MODEL", "  ")
	_, err := Load()
	for _, want := range []string{"PORT", "RATE_BURST", "GROQ_MODEL"} {
		if !containsErr(err, want) {
			t.Fatalf("error %v does not mention %s", err, want)
		}
	}
}

// --- helpers ---

func TestHelpers_cleanList_and_normalizeBasePath(t *testing.T) {
	if out := cleanList(nil); out != nil {
		t.Fatalf("cleanList(nil) should return nil")
	}
	if out := cleanList([]string{" ", ""}); out != nil {
		t.Fatalf("cleanList of blanks should return nil, got %#v", out)
	}
	want := []string{"a", "b", "c"}
	if got := cleanList([]string{" a", " ", "b ", "  c  "}); !reflect.DeepEqual(got, want) {
		t.Fatalf("cleanList mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
	if got := normalizeBasePath("//api//v1/"); got != "/api/v1" {
		t.Fatalf("normalizeBasePath(//api//v1/) = %q", got)
	}
}

// Ensure tests don't pick up values from the developer's shell.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "GROQ_API_KEY", "GROQ_BASE_URL", "GROQ_MODEL", "SUMMARY_LANGUAGE", "API_BASE_PATH", "DB_PATH", "CORS_ALLOWED_ORIGINS"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
