// Package opentelemetry bootstraps tracing and runtime metrics for the service.
//
// Setup installs a W3C trace-context and baggage propagator, a tracer
// provider exporting spans over OTLP (HTTP or gRPC) to an agent, and a meter
// provider fed by the Go runtime instrumentation. Shutdown flushes both.
//
//	provider, err := opentelemetry.Setup(ctx, &opentelemetry.Config{...})
//	if err != nil {
//	    logger.Fatal("failed to initialize telemetry", zap.Error(err))
//	}
//	defer provider.Shutdown(context.Background())
package opentelemetry
