package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"echoscribe/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// Telemetry is the sink for durations and counters recorded by the data
// access paths. Recording never blocks and never alters results.
type Telemetry interface {
	// RecordStoreRoundTrip records the wall-clock duration of one backing
	// store round trip, keyed by a logical operation name.
	RecordStoreRoundTrip(ctx context.Context, operation string, duration time.Duration)

	// RecordTranscriptResolution counts which resolver tier produced a path.
	RecordTranscriptResolution(ctx context.Context, tier string)

	Logger() *slog.Logger
	Shutdown(ctx context.Context) error
}

type OpenTelemetry struct {
	tracerProvider *trace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	meterProvider  *sdkmetric.MeterProvider
	config         config.TelemetryConfig

	// Metrics instruments
	storeRoundTripMs      metric.Float64Histogram
	transcriptResolutions metric.Int64Counter
}

// NewOpenTelemetry creates a telemetry instance with OTLP gRPC exporters for
// traces, logs, and metrics. Disabled telemetry yields a no-op instance that
// still provides a stderr slog logger.
func NewOpenTelemetry(cfg config.TelemetryConfig) (Telemetry, error) {
	if !cfg.Enabled || cfg.ExporterURL == "" {
		slog.Info("Telemetry disabled or no exporter URL provided")
		return &OpenTelemetry{config: cfg}, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	traceExporter, err := createTraceExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	logExporter, err := createLogExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	metricExporter, err := createMetricExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(cfg.SamplingRatio)),
	)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(10*time.Second))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tel := &OpenTelemetry{
		tracerProvider: tp,
		loggerProvider: lp,
		meterProvider:  mp,
		config:         cfg,
	}

	if err := tel.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	slog.Info("Telemetry initialized successfully",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.ExporterURL,
		"sampling_ratio", cfg.SamplingRatio,
	)

	return tel, nil
}

func createTraceExporter(cfg config.TelemetryConfig) (trace.SpanExporter, error) {
	return otlptracegrpc.New(context.Background(), []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.ExporterURL),
		otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()),
	}...)
}

func createLogExporter(cfg config.TelemetryConfig) (sdklog.Exporter, error) {
	return otlploggrpc.New(context.Background(), []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(cfg.ExporterURL),
		otlploggrpc.WithTLSCredentials(insecure.NewCredentials()),
	}...)
}

func createMetricExporter(cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	return otlpmetricgrpc.New(context.Background(), []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.ExporterURL),
		otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()),
	}...)
}

func (t *OpenTelemetry) initMetrics() error {
	if !t.IsEnabled() {
		return nil
	}

	meter := otel.Meter("echoscribe")

	var err error

	t.storeRoundTripMs, err = meter.Float64Histogram(
		"echoscribe_store_round_trip_duration_ms",
		metric.WithDescription("Wall-clock duration of backing store round trips"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store round trip histogram: %w", err)
	}

	t.transcriptResolutions, err = meter.Int64Counter(
		"echoscribe_transcript_resolutions_total",
		metric.WithDescription("Transcript path resolutions by tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transcript resolutions counter: %w", err)
	}

	return nil
}

// RecordStoreRoundTrip records the duration of one backing store round trip.
func (t *OpenTelemetry) RecordStoreRoundTrip(ctx context.Context, operation string, duration time.Duration) {
	if !t.IsEnabled() || t.storeRoundTripMs == nil {
		return
	}

	t.storeRoundTripMs.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordTranscriptResolution counts a resolution outcome by tier name
// ("pointer", "listing", "legacy").
func (t *OpenTelemetry) RecordTranscriptResolution(ctx context.Context, tier string) {
	if !t.IsEnabled() || t.transcriptResolutions == nil {
		return
	}

	t.transcriptResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
	))
}

// Shutdown gracefully shuts down the telemetry providers.
func (t *OpenTelemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}

	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log provider shutdown: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}

	return nil
}

// Tracer returns a tracer for the given name.
func (t *OpenTelemetry) Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

// Logger returns a slog.Logger sending logs to OpenTelemetry if enabled,
// otherwise to stderr.
func (t *OpenTelemetry) Logger() *slog.Logger {
	if t.IsEnabled() {
		return slog.New(NewOTelHandler(&slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{AddSource: true}))
}

// IsEnabled returns whether telemetry is enabled.
func (t *OpenTelemetry) IsEnabled() bool {
	return t.config.Enabled && t.tracerProvider != nil
}
