package opentelemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Sampler types
const (
	SamplerConst         = "const"
	SamplerProbabilistic = "probabilistic"
)

// Config holds tracer and meter provider configuration
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Span export
	ExportEnabled bool
	Protocol      string // "http" or "grpc"
	AgentEndpoint string // host:port
	FlushInterval time.Duration
	MaxQueueSize  int
	LogSpans      bool

	SamplerType  string
	SamplerParam float64

	// Metric export
	RuntimeMetrics      bool
	MetricsExport       bool
	MetricsEndpoint     string
	MetricsExportPeriod time.Duration

	Logger *zap.Logger
}

// Provider owns the tracer and meter providers of the process
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Propagator     propagation.TextMapPropagator

	mu            sync.Mutex
	shutdownFuncs []func(context.Context) error
}

// Option customizes Setup
type Option func(*options)

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	metricReaders  []sdkmetric.Reader
	global         bool
}

// WithSpanProcessor registers an additional span processor
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.spanProcessors = append(o.spanProcessors, sp)
	}
}

// WithMetricReader registers an additional metric reader
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		o.metricReaders = append(o.metricReaders, r)
	}
}

// WithoutGlobals keeps the providers out of the otel global state
func WithoutGlobals() Option {
	return func(o *options) {
		o.global = false
	}
}

// Setup bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call Shutdown for proper cleanup.
func Setup(ctx context.Context, cfg *Config, opts ...Option) (p *Provider, err error) {
	o := &options{global: true}
	for _, opt := range opts {
		opt(o)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p = &Provider{
		Propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}

	// Release whatever was already started before returning the error.
	defer func() {
		if err != nil {
			err = errors.Join(err, p.Shutdown(ctx))
			p = nil
		}
	}()

	sampler, err := newSampler(cfg.SamplerType, cfg.SamplerParam)
	if err != nil {
		return p, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	}

	if cfg.ExportEnabled {
		exporter, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return p, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.FlushInterval),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		))
	}
	if cfg.LogSpans {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(NewLoggingProcessor(logger)))
	}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}

	p.TracerProvider = sdktrace.NewTracerProvider(tpOpts...)
	p.addShutdown(p.TracerProvider.Shutdown)

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.MetricsExport {
		metricExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.MetricsEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return p, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.MetricsExportPeriod)),
		))
	}
	for _, r := range o.metricReaders {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(mpOpts...)
	p.addShutdown(p.MeterProvider.Shutdown)

	if cfg.RuntimeMetrics {
		err = runtime.Start(
			runtime.WithMeterProvider(p.MeterProvider),
			runtime.WithMinimumReadMemStatsInterval(time.Second),
		)
		if err != nil {
			return p, fmt.Errorf("failed to start runtime metrics: %w", err)
		}
	}

	if o.global {
		otel.SetTextMapPropagator(p.Propagator)
		otel.SetTracerProvider(p.TracerProvider)
		otel.SetMeterProvider(p.MeterProvider)
	}

	logger.Info("telemetry initialized",
		zap.String("service", cfg.ServiceName),
		zap.Bool("export", cfg.ExportEnabled),
		zap.String("protocol", cfg.Protocol),
		zap.String("agent", cfg.AgentEndpoint),
		zap.String("sampler", cfg.SamplerType),
		zap.Float64("sampler_param", cfg.SamplerParam))

	return p, nil
}

// Shutdown flushes pending spans and metrics and stops the providers.
// Each registered cleanup is invoked once; the errors are joined.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	funcs := p.shutdownFuncs
	p.shutdownFuncs = nil
	p.mu.Unlock()

	var err error
	// Reverse registration order
	for i := len(funcs) - 1; i >= 0; i-- {
		err = errors.Join(err, funcs[i](ctx))
	}
	return err
}

func (p *Provider) addShutdown(fn func(context.Context) error) {
	p.mu.Lock()
	p.shutdownFuncs = append(p.shutdownFuncs, fn)
	p.mu.Unlock()
}

func newSampler(samplerType string, param float64) (sdktrace.Sampler, error) {
	switch samplerType {
	case SamplerConst, "":
		if param >= 1 {
			return sdktrace.AlwaysSample(), nil
		}
		return sdktrace.NeverSample(), nil
	case SamplerProbabilistic:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(param)), nil
	default:
		return nil, fmt.Errorf("unsupported sampler type: %s", samplerType)
	}
}

func newTraceExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	var client otlptrace.Client
	switch cfg.Protocol {
	case "http", "":
		client = otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.AgentEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case "grpc":
		client = otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.AgentEndpoint),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName+"/"+cfg.ServiceVersion)),
		)
	default:
		return nil, fmt.Errorf("unsupported tracing protocol: %s", cfg.Protocol)
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return exporter, nil
}
