package monitoring

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelHandler bridges slog records into the OpenTelemetry log pipeline,
// stamping trace context onto every record emitted inside a span.
type OTelHandler struct {
	logger log.Logger
	opts   *slog.HandlerOptions
}

func NewOTelHandler(opts *slog.HandlerOptions) *OTelHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &OTelHandler{
		logger: global.GetLoggerProvider().Logger("echoscribe.slog"),
		opts:   opts,
	}
}

func (h *OTelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Level != nil {
		return level >= h.opts.Level.Level()
	}
	return level >= slog.LevelInfo
}

func (h *OTelHandler) Handle(ctx context.Context, record slog.Record) error {
	logRecord := log.Record{}
	logRecord.SetTimestamp(record.Time)
	logRecord.SetBody(log.StringValue(record.Message))
	logRecord.SetSeverity(severityFromLevel(record.Level))
	logRecord.SetSeverityText(record.Level.String())

	if span := oteltrace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		logRecord.AddAttributes(
			log.String("trace_id", spanCtx.TraceID().String()),
			log.String("span_id", spanCtx.SpanID().String()),
		)
	}

	if h.opts.AddSource {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			logRecord.AddAttributes(
				log.String("code.filepath", frame.File),
				log.String("code.function", frame.Function),
				log.Int("code.lineno", frame.Line),
			)
		}
	}

	record.Attrs(func(attr slog.Attr) bool {
		logRecord.AddAttributes(keyValueFromAttr(attr))
		return true
	})

	h.logger.Emit(ctx, logRecord)

	return nil
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OTelHandler{
		logger: h.logger,
		opts:   h.opts,
	}
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	return &OTelHandler{
		logger: h.logger,
		opts:   h.opts,
	}
}

func severityFromLevel(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

func keyValueFromAttr(attr slog.Attr) log.KeyValue {
	switch attr.Value.Kind() {
	case slog.KindString:
		return log.String(attr.Key, attr.Value.String())
	case slog.KindInt64:
		return log.Int64(attr.Key, attr.Value.Int64())
	case slog.KindFloat64:
		return log.Float64(attr.Key, attr.Value.Float64())
	case slog.KindBool:
		return log.Bool(attr.Key, attr.Value.Bool())
	case slog.KindDuration:
		return log.Int64(attr.Key, attr.Value.Duration().Nanoseconds())
	case slog.KindTime:
		return log.String(attr.Key, attr.Value.Time().Format(time.RFC3339))
	default:
		return log.String(attr.Key, attr.Value.String())
	}
}
