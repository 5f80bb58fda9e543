package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/tbourn/go-summary-backend/internal/config"
)

// withCleanGlobals restores the OTel globals and seams after the test.
func withCleanGlobals(t *testing.T) {
	t.Helper()
	tp, prop, eh := otel.GetTracerProvider(), otel.GetTextMapPropagator(), otel.GetErrorHandler()
	exp, res := newExporter, newResource
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		otel.SetErrorHandler(eh)
		newExporter, newResource = exp, res
	})
}

func enabledConfig(name string) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1,
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	withCleanGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Endpoint: "ignored:4317"}, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("got (%v, %v)", shutdown, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled setup must not replace the tracer provider")
	}
}

func TestSetupOTel_ExportsSpansWithServiceResource(t *testing.T) {
	withCleanGlobals(t)
	mem := tracetest.NewInMemoryExporter()
	newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return mem, nil
	}

	shutdown, err := SetupOTel(context.Background(), enabledConfig("summary-test"), "1.4.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "summarize")
	span.End()

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		t.Fatalf("expected an SDK tracer provider, got %T", otel.GetTracerProvider())
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := mem.GetSpans()
	if len(spans) != 1 || spans[0].Name != "summarize" {
		t.Fatalf("exported spans = %+v", spans)
	}
	attrs := spans[0].Resource.Set()
	if v, ok := attrs.Value(semconv.ServiceNameKey); !ok || v.AsString() != "summary-test" {
		t.Fatalf("service.name = %v", v)
	}
	if v, ok := attrs.Value(semconv.ServiceVersionKey); !ok || v.AsString() != "1.4.0" {
		t.Fatalf("service.version = %v", v)
	}
}

func TestSetupOTel_InstallsTraceContextPropagator(t *testing.T) {
	withCleanGlobals(t)
	newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return tracetest.NewInMemoryExporter(), nil
	}

	shutdown, err := SetupOTel(context.Background(), enabledConfig("svc"), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "outbound")
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	tp := carrier.Get("traceparent")
	if !strings.Contains(tp, span.SpanContext().TraceID().String()) {
		t.Fatalf("traceparent %q does not carry the trace id", tp)
	}
}

func TestSetupOTel_RealExporterBothTransports(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		withCleanGlobals(t)
		cfg := enabledConfig("svc")
		cfg.Insecure = insecure

		// The gRPC client connects lazily, so no collector is needed here.
		shutdown, err := SetupOTel(context.Background(), cfg, "v1")
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("insecure=%v: provider not installed", insecure)
		}
		_ = shutdown(context.Background())
	}
}

func TestSetupOTel_FailuresKeepGlobals(t *testing.T) {
	cases := map[string]func(){
		"exporter": func() {
			newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
				return nil, errors.New("dial refused")
			}
		},
		"resource": func() {
			newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
				return tracetest.NewInMemoryExporter(), nil
			}
			newResource = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("bad attrs")
			}
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			withCleanGlobals(t)
			breakIt()
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			if _, err := SetupOTel(context.Background(), enabledConfig("svc"), "v0"); err == nil ||
				!strings.Contains(err.Error(), name) {
				t.Fatalf("expected %s error, got %v", name, err)
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestExporterOptions(t *testing.T) {
	if n := len(exporterOptions(config.OTELConfig{Endpoint: "c:4317", Insecure: true})); n != 2 {
		t.Fatalf("insecure options = %d", n)
	}
	if n := len(exporterOptions(config.OTELConfig{Endpoint: "c:4317"})); n != 2 {
		t.Fatalf("tls options = %d", n)
	}
}

func TestSamplerFor(t *testing.T) {
	cases := map[float64]string{
		1:    "root:AlwaysOnSampler",
		2:    "root:AlwaysOnSampler",
		0:    "root:AlwaysOffSampler",
		-1:   "root:AlwaysOffSampler",
		0.25: "root:TraceIDRatioBased{0.25}",
	}
	for ratio, want := range cases {
		desc := samplerFor(ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{") || !strings.Contains(desc, want) {
			t.Fatalf("samplerFor(%v) = %s, want %s", ratio, desc, want)
		}
	}
}

func TestLogExportError_WritesWarn(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	logExportError(errors.New("collector unavailable"))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "collector unavailable") {
		t.Fatalf("unexpected log output: %s", out)
	}
}
