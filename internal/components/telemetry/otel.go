package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bakpdlbot/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ConfigName is the file SetupFromEnv looks for, from the cwd upwards.
const ConfigName = "telemetry.json5"

// ErrNoExporter is returned by Setup when a signal has no endpoint configured.
var ErrNoExporter = errors.New("no otlp endpoint configured")

// Endpoint selects where a signal is exported to, grpc wins when both are set.
type Endpoint struct {
	Grpc    string            `json:"grpc_endpoint"`
	Http    string            `json:"http_endpoint"`
	Headers map[string]string `json:"headers"`
}

func (e Endpoint) kind() string {
	switch {
	case e.Grpc != "":
		return "grpc"
	case e.Http != "":
		return "http"
	}
	return ""
}

type Config struct {
	Otlp struct {
		Traces  Endpoint `json:"traces"`
		Metrics Endpoint `json:"metrics"`
	} `json:"otlp"`
	// MetricInterval is in seconds, it defaults to 30.
	MetricInterval int `json:"metric_interval"`
}

// Telemetry holds the installed otel providers.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv finds telemetry.json5 (and its .local override) and installs
// the providers it describes as the otel globals.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config](ConfigName)
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, err
	}

	spanExporter, err := newSpanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return Telemetry{}, fmt.Errorf("traces: %w", err)
	}
	metricExporter, err := newMetricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return Telemetry{}, fmt.Errorf("metrics: %w", err)
	}

	interval := time.Second * 30
	if config.MetricInterval > 0 {
		interval = time.Second * time.Duration(config.MetricInterval)
	}

	out := Telemetry{
		TracerProvider: trace.NewTracerProvider(
			trace.WithBatcher(spanExporter),
			trace.WithResource(r),
		),
		MeterProvider: metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(interval))),
			metric.WithResource(r),
		),
	}
	otel.SetTracerProvider(out.TracerProvider)
	otel.SetMeterProvider(out.MeterProvider)
	return out, nil
}

func logExporter(signal string, e Endpoint) {
	endpoint := e.Grpc
	if endpoint == "" {
		endpoint = e.Http
	}
	slog.Info(
		"otlp exporter initialized",
		"signal", signal,
		"type", e.kind(),
		"endpoint", endpoint,
		"headers", len(e.Headers) > 0,
	)
}

func newSpanExporter(ctx context.Context, e Endpoint) (trace.SpanExporter, error) {
	switch e.kind() {
	case "grpc":
		logExporter("traces", e)
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(e.Grpc), otlptracegrpc.WithHeaders(e.Headers))
	case "http":
		logExporter("traces", e)
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(e.Http), otlptracehttp.WithHeaders(e.Headers))
	}
	return nil, ErrNoExporter
}

func newMetricExporter(ctx context.Context, e Endpoint) (metric.Exporter, error) {
	switch e.kind() {
	case "grpc":
		logExporter("metrics", e)
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(e.Grpc), otlpmetricgrpc.WithHeaders(e.Headers))
	case "http":
		logExporter("metrics", e)
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(e.Http), otlpmetrichttp.WithHeaders(e.Headers))
	}
	return nil, ErrNoExporter
}
