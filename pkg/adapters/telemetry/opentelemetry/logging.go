package opentelemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// LoggingProcessor logs every finished span
type LoggingProcessor struct {
	logger *zap.Logger
}

var _ sdktrace.SpanProcessor = (*LoggingProcessor)(nil)

// NewLoggingProcessor creates a span processor writing to logger
func NewLoggingProcessor(logger *zap.Logger) *LoggingProcessor {
	return &LoggingProcessor{logger: logger}
}

// OnStart is a no-op
func (p *LoggingProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span
func (p *LoggingProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsSampled() {
		return
	}

	fields := []zap.Field{
		zap.String("span", s.Name()),
		zap.String("trace_id", s.SpanContext().TraceID().String()),
		zap.String("span_id", s.SpanContext().SpanID().String()),
		zap.String("kind", s.SpanKind().String()),
		zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
		zap.String("status", s.Status().Code.String()),
	}
	if s.Parent().IsValid() {
		fields = append(fields, zap.String("parent_id", s.Parent().SpanID().String()))
	}

	p.logger.Info("span finished", fields...)
}

// Shutdown is a no-op
func (p *LoggingProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush is a no-op
func (p *LoggingProcessor) ForceFlush(context.Context) error { return nil }
