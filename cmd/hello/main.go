package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/hello-world-service/internal/application/health"
	"github.com/aescanero/hello-world-service/internal/config"
	"github.com/aescanero/hello-world-service/internal/greeting"
	"github.com/aescanero/hello-world-service/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/hello-world-service/pkg/adapters/telemetry/opentelemetry"
	"github.com/aescanero/hello-world-service/pkg/api/http"

	"go.opentelemetry.io/otel/baggage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting hello world service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize telemetry; without it the service must not serve
	ctx := context.Background()
	telemetry, err := opentelemetry.Setup(ctx, &opentelemetry.Config{
		ServiceName:         cfg.Tracing.ServiceName,
		ServiceVersion:      Version,
		ExportEnabled:       cfg.Tracing.Enabled,
		Protocol:            cfg.Tracing.Protocol,
		AgentEndpoint:       cfg.Tracing.GetAgentEndpoint(),
		FlushInterval:       cfg.Tracing.FlushInterval,
		MaxQueueSize:        cfg.Tracing.MaxQueueSize,
		LogSpans:            cfg.Tracing.LogSpans,
		SamplerType:         cfg.Tracing.SamplerType,
		SamplerParam:        cfg.Tracing.SamplerParam,
		RuntimeMetrics:      cfg.Metrics.Runtime,
		MetricsExport:       cfg.Metrics.OTLPEnabled,
		MetricsEndpoint:     cfg.Metrics.OTLPEndpoint,
		MetricsExportPeriod: cfg.Metrics.OTLPInterval,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	metricsCollector := prometheus.NewCollector()
	if cfg.Metrics.ProcessCollectors {
		metricsCollector.RegisterProcessCollectors()
	}

	renderer, err := greeting.New(cfg.Greeting.IndexTemplate)
	if err != nil {
		logger.Fatal("failed to load greeting template", zap.Error(err))
	}

	// Validated by config.Load
	bag, _ := baggage.Parse(cfg.Tracing.Baggage)

	// Initialize API server
	httpServer, err := http.NewServer(&http.Config{
		Addr:              cfg.GetHTTPAddr(),
		Greeting:          renderer,
		UserName:          cfg.Greeting.UserName,
		UserServiceURL:    cfg.Client.UserServiceURL,
		ClientTimeout:     cfg.Client.Timeout,
		Metrics:           metricsCollector,
		TracerProvider:    telemetry.TracerProvider,
		Propagator:        telemetry.Propagator,
		Baggage:           bag,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeaderTimeout,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("failed to create HTTP server", zap.Error(err))
	}

	// Self check through the same loopback path the index route uses
	healthMonitor := health.NewMonitor(func(ctx context.Context) error {
		_, err := httpServer.Users().FetchUser(ctx)
		return err
	}, cfg.Health.CheckInterval, cfg.Health.CheckTimeout, logger)
	httpServer.SetHealthReporter(healthMonitor)

	for _, route := range httpServer.Routes() {
		logger.Info("registered route",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("handler", route.Handler))
	}

	// Start server
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	healthMonitor.Start()

	logger.Info("hello world service started",
		zap.Int("http_port", httpServer.Port()),
		zap.String("url", httpServer.URL()),
		zap.String("tracing_agent", cfg.Tracing.GetAgentEndpoint()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	healthMonitor.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Flush exporters after the last request has finished
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", zap.Error(err))
	}

	logger.Info("hello world service shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
