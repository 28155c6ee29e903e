package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "John Doe", cfg.Greeting.UserName)
	assert.Equal(t, "Hello {{.Name}}!", cfg.Greeting.IndexTemplate)
	assert.Equal(t, time.Duration(0), cfg.Client.Timeout)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "hello-world-service", cfg.Tracing.ServiceName)
	assert.Equal(t, "const", cfg.Tracing.SamplerType)
	assert.Equal(t, 1.0, cfg.Tracing.SamplerParam)
	assert.Equal(t, "localhost:4318", cfg.Tracing.GetAgentEndpoint())
	assert.Equal(t, time.Second, cfg.Tracing.FlushInterval)
	assert.Equal(t, 1000, cfg.Tracing.MaxQueueSize)

	assert.True(t, cfg.Metrics.ProcessCollectors)
	assert.False(t, cfg.Metrics.OTLPEnabled)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Health.CheckInterval)
	assert.Equal(t, 5*time.Second, cfg.Health.CheckTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HELLO_HTTP_PORT", "0")
	t.Setenv("USER_NAME", "Jane Roe")
	t.Setenv("TEMPLATES_INDEX", "Hi {{.Name}}")
	t.Setenv("TRACING_AGENT_HOST", "jaeger-agent.cicd-tools")
	t.Setenv("TRACING_AGENT_PORT", "4317")
	t.Setenv("TRACING_PROTOCOL", "grpc")
	t.Setenv("TRACING_BAGGAGE", "tenant=demo")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.HTTPPort)
	assert.Equal(t, "Jane Roe", cfg.Greeting.UserName)
	assert.Equal(t, "Hi {{.Name}}", cfg.Greeting.IndexTemplate)
	assert.Equal(t, "jaeger-agent.cicd-tools:4317", cfg.Tracing.GetAgentEndpoint())
	assert.Equal(t, "grpc", cfg.Tracing.Protocol)
	assert.Equal(t, "tenant=demo", cfg.Tracing.Baggage)
	assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.env")
	require.NoError(t, os.WriteFile(path, []byte("USER_NAME=Jane Roe\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv(EnvFileVariable, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Jane Roe", cfg.Greeting.UserName)
	// The process environment wins over the file
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsUnreadableEnvFile(t *testing.T) {
	t.Setenv(EnvFileVariable, t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read env file")
}

func TestLoadRejectsUnparsableValue(t *testing.T) {
	t.Setenv("HELLO_HTTP_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative port", func(c *Config) { c.HTTPPort = -1 }, "invalid HTTP port"},
		{"port too large", func(c *Config) { c.HTTPPort = 70000 }, "invalid HTTP port"},
		{"empty template", func(c *Config) { c.Greeting.IndexTemplate = "" }, "index template is required"},
		{"empty user", func(c *Config) { c.Greeting.UserName = "" }, "user name is required"},
		{"negative client timeout", func(c *Config) { c.Client.Timeout = -time.Second }, "must not be negative"},
		{"unknown protocol", func(c *Config) { c.Tracing.Protocol = "udp" }, "unsupported tracing protocol"},
		{"missing agent host", func(c *Config) { c.Tracing.AgentHost = "" }, "agent host is required"},
		{"bad agent port", func(c *Config) { c.Tracing.AgentPort = 0 }, "invalid tracing agent port"},
		{"unknown sampler", func(c *Config) { c.Tracing.SamplerType = "adaptive" }, "unsupported sampler type"},
		{"sampler param out of range", func(c *Config) { c.Tracing.SamplerParam = 2 }, "sampler param"},
		{"empty queue", func(c *Config) { c.Tracing.MaxQueueSize = 0 }, "max queue size"},
		{"malformed baggage", func(c *Config) { c.Tracing.Baggage = "no-equals-sign" }, "invalid tracing baggage"},
		{"otlp metrics without endpoint", func(c *Config) {
			c.Metrics.OTLPEnabled = true
			c.Metrics.OTLPEndpoint = ""
		}, "metrics OTLP endpoint"},
		{"zero health interval", func(c *Config) { c.Health.CheckInterval = 0 }, "health check interval"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSkipsAgentWhenTracingDisabled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Tracing.Enabled = false
	cfg.Tracing.AgentHost = ""
	cfg.Tracing.AgentPort = 0

	assert.NoError(t, cfg.Validate())
}
