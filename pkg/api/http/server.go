package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aescanero/hello-world-service/internal/application/health"
	"github.com/aescanero/hello-world-service/internal/greeting"
	"github.com/aescanero/hello-world-service/pkg/adapters/loopback"
	"github.com/aescanero/hello-world-service/pkg/adapters/metrics/prometheus"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// instrumentationName identifies spans created by this package
const instrumentationName = "github.com/aescanero/hello-world-service/pkg/api/http"

// UserSource resolves the user name greeted by the index route
type UserSource interface {
	FetchUser(ctx context.Context) (string, error)
}

// HealthReporter reports the outcome of the latest self check
type HealthReporter interface {
	GetStatus() health.Status
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	listener net.Listener
	baseURL  string

	greeting *greeting.Renderer
	userName string
	users    UserSource
	health   HealthReporter
	metrics  *prometheus.Collector
	logger   *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	// Addr is the listen address; ":0" picks an ephemeral port
	Addr string

	Greeting *greeting.Renderer
	UserName string

	// UserServiceURL overrides the loopback address used by the index route
	UserServiceURL string
	ClientTimeout  time.Duration

	Metrics        *prometheus.Collector
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	// Baggage is added to every request context
	Baggage baggage.Baggage

	ReadHeaderTimeout time.Duration
	Logger            *zap.Logger
}

// NewServer creates a new HTTP server and binds its listener, so the port
// is known before Start is called.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Greeting == nil {
		return nil, fmt.Errorf("greeting renderer is required")
	}

	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	prop := cfg.Propagator
	if prop == nil {
		prop = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = prometheus.NewCollector()
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	s := &Server{
		listener: listener,
		baseURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
		greeting: cfg.Greeting,
		userName: cfg.UserName,
		metrics:  metrics,
		logger:   logger,
	}

	userURL := cfg.UserServiceURL
	if userURL == "" {
		userURL = s.baseURL
	}
	users, err := loopback.NewClient(&loopback.Config{
		BaseURL:        userURL,
		Timeout:        cfg.ClientTimeout,
		TracerProvider: tp,
		Propagator:     prop,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to create user client: %w", err)
	}
	s.users = users

	router := gin.New()
	router.Use(requestID())
	router.Use(tracing(tp.Tracer(instrumentationName), prop, cfg.Baggage))
	router.Use(timing(metrics))
	router.Use(requestLogger(logger))
	router.Use(recovery(logger))
	s.router = router

	s.setupRoutes()

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	return s, nil
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/user", s.handleUser)

	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// SetHealthReporter makes /health reflect the reporter's status.
// It must be called before Start.
func (s *Server) SetHealthReporter(h HealthReporter) {
	s.health = h
}

// Users returns the client the index route resolves names with
func (s *Server) Users() UserSource {
	return s.users
}

// Routes returns the registered routes
func (s *Server) Routes() gin.RoutesInfo {
	return s.router.Routes()
}

// Handler returns the root handler, with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the bound port
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// URL returns the loopback base URL of the server
func (s *Server) URL() string {
	return s.baseURL
}

// Start serves requests until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
