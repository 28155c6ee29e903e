package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/baggage"
)

// Config holds all configuration for the hello world service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"HELLO_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Greeting configuration
	Greeting GreetingConfig

	// Outbound client configuration
	Client ClientConfig

	// Tracing configuration
	Tracing TracingConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Self health check
	Health HealthConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// GreetingConfig holds the content served by the two routes
type GreetingConfig struct {
	IndexTemplate string `env:"TEMPLATES_INDEX" envDefault:"Hello {{.Name}}!"`
	UserName      string `env:"USER_NAME" envDefault:"John Doe"`
}

// ClientConfig holds configuration of the outbound name lookup
type ClientConfig struct {
	// UserServiceURL overrides the loopback address of this process.
	UserServiceURL string `env:"USER_SERVICE_URL"`

	// Timeout of zero means the call waits for as long as the inbound request does.
	Timeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"0s"`
}

// TracingConfig holds tracer and span exporter configuration
type TracingConfig struct {
	Enabled     bool   `env:"TRACING_ENABLED" envDefault:"true"`
	ServiceName string `env:"TRACING_SERVICE_NAME" envDefault:"hello-world-service"`
	Protocol    string `env:"TRACING_PROTOCOL" envDefault:"http"`

	// Agent receiving exported spans
	AgentHost string `env:"TRACING_AGENT_HOST" envDefault:"localhost"`
	AgentPort int    `env:"TRACING_AGENT_PORT" envDefault:"4318"`

	// Sampling
	SamplerType  string  `env:"TRACING_SAMPLER_TYPE" envDefault:"const"`
	SamplerParam float64 `env:"TRACING_SAMPLER_PARAM" envDefault:"1"`

	// Reporter settings
	LogSpans      bool          `env:"TRACING_LOG_SPANS" envDefault:"true"`
	FlushInterval time.Duration `env:"TRACING_FLUSH_INTERVAL" envDefault:"1s"`
	MaxQueueSize  int           `env:"TRACING_MAX_QUEUE_SIZE" envDefault:"1000"`

	// Baggage is a W3C baggage string, e.g. "tenant=demo,origin=hello"
	Baggage string `env:"TRACING_BAGGAGE"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	ProcessCollectors bool `env:"METRICS_PROCESS_COLLECTORS" envDefault:"true"`
	Runtime           bool `env:"METRICS_RUNTIME" envDefault:"true"`

	OTLPEnabled  bool          `env:"METRICS_OTLP_ENABLED" envDefault:"false"`
	OTLPEndpoint string        `env:"METRICS_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTLPInterval time.Duration `env:"METRICS_OTLP_INTERVAL" envDefault:"60s"`
}

// HealthConfig holds the self health check configuration
type HealthConfig struct {
	CheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	CheckTimeout  time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"5s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	ReadHeaderTimeout time.Duration `env:"TIMEOUT_READ_HEADER" envDefault:"10s"`
}

// EnvFileVariable names the dotenv file read by Load
const EnvFileVariable = "HELLO_ENV_FILE"

// Load reads configuration from environment variables. Values from the
// dotenv file (".env" unless HELLO_ENV_FILE says otherwise) fill in
// variables the process environment does not set.
func Load() (*Config, error) {
	environment, err := environment()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// environment merges the dotenv file under the process environment
func environment() (map[string]string, error) {
	path := os.Getenv(EnvFileVariable)
	if path == "" {
		path = ".env"
	}

	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		vars = map[string]string{}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	return vars, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Port 0 asks the kernel for an ephemeral port
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Greeting.IndexTemplate == "" {
		return fmt.Errorf("index template is required")
	}
	if c.Greeting.UserName == "" {
		return fmt.Errorf("user name is required")
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("HTTP client timeout must not be negative")
	}

	// Validate tracing config
	if c.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing service name is required")
	}
	if c.Tracing.Protocol != "http" && c.Tracing.Protocol != "grpc" {
		return fmt.Errorf("unsupported tracing protocol: %s (must be http or grpc)", c.Tracing.Protocol)
	}
	if c.Tracing.Enabled {
		if c.Tracing.AgentHost == "" {
			return fmt.Errorf("tracing agent host is required")
		}
		if c.Tracing.AgentPort < 1 || c.Tracing.AgentPort > 65535 {
			return fmt.Errorf("invalid tracing agent port: %d", c.Tracing.AgentPort)
		}
	}
	if c.Tracing.SamplerType != "const" && c.Tracing.SamplerType != "probabilistic" {
		return fmt.Errorf("unsupported sampler type: %s (must be const or probabilistic)", c.Tracing.SamplerType)
	}
	if c.Tracing.SamplerParam < 0 || c.Tracing.SamplerParam > 1 {
		return fmt.Errorf("sampler param must be between 0 and 1, got %v", c.Tracing.SamplerParam)
	}
	if c.Tracing.MaxQueueSize < 1 {
		return fmt.Errorf("tracing max queue size must be at least 1")
	}
	if _, err := baggage.Parse(c.Tracing.Baggage); err != nil {
		return fmt.Errorf("invalid tracing baggage: %w", err)
	}

	if c.Metrics.OTLPEnabled && c.Metrics.OTLPEndpoint == "" {
		return fmt.Errorf("metrics OTLP endpoint is required when OTLP export is enabled")
	}

	if c.Health.CheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetAgentEndpoint returns the host:port pair spans are exported to
func (c *TracingConfig) GetAgentEndpoint() string {
	return fmt.Sprintf("%s:%d", c.AgentHost, c.AgentPort)
}
