// Package tracing wires OpenTelemetry spans around catalog provider fetches.
// Disabled by default; when off, a no-op tracer keeps the call sites free.
package tracing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys for provider tracing.
const (
	AttrProviderKind = "provider.kind"
	AttrPromptName   = "prompt.name"
	AttrEntryCount   = "entry.count"
)

// Span is the span type handed back to call sites.
type Span = trace.Span

// Config configures the tracing subsystem.
type Config struct {
	// Enabled controls whether tracing is active. When false, spans are
	// no-ops with zero overhead.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the export backend: "stdout", "file" or "none".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// ServiceName identifies this process in exported spans.
	ServiceName string `mapstructure:"service_name"`
}

// DefaultConfig returns the shipped defaults: tracing off, stdout exporter
// when turned on.
func DefaultConfig() Config {
	return Config{Enabled: false, Exporter: "stdout", ServiceName: "sigil"}
}

// Provider manages the OpenTelemetry tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider creates and configures the trace provider. With tracing
// disabled a no-op provider is returned.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout", "":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file_path required for file exporter")
		}
		exporter, err = newFileExporter(cfg.FilePath)
	case "none":
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sigil"
	}
	// NewSchemaless avoids schema version conflicts with resource.Default().
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		enabled:  true,
	}, nil
}

// Start opens a span. Safe on a disabled provider (no-op span).
func (p *Provider) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	return p.tracer.Start(ctx, name, opts...)
}

// Enabled returns whether tracing is active.
func (p *Provider) Enabled() bool { return p.enabled }

// Shutdown flushes pending spans. Call on application exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// NoopSpan returns a span that records nothing, for call sites without a
// configured provider.
func NoopSpan() Span {
	_, span := noop.NewTracerProvider().Tracer("noop").Start(context.Background(), "noop")
	return span
}

// newFileExporter builds a stdouttrace exporter writing JSON spans to path,
// creating parent directories as needed.
func newFileExporter(path string) (sdktrace.SpanExporter, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 -- path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return stdouttrace.New(stdouttrace.WithWriter(f))
}
