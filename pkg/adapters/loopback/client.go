package loopback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// UserPath is the route serving the user name
const UserPath = "/user"

// maxBodySize caps how much of a reply is read
const maxBodySize = 1 << 20

var (
	// ErrUnexpectedStatus is returned for non-2xx replies
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrNonTextBody is returned when the reply is not text/*
	ErrNonTextBody = errors.New("non-text body")
)

// Recorder observes outbound calls
type Recorder interface {
	ObserveUpstream(target string, duration time.Duration, err error)
}

// Config holds loopback client configuration
type Config struct {
	// BaseURL must be absolute, e.g. http://127.0.0.1:8080
	BaseURL string

	// Timeout of zero disables the client-side timeout
	Timeout time.Duration

	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	Metrics        Recorder
	Logger         *zap.Logger
}

// Client issues synchronous GET calls against a base URL
type Client struct {
	baseURL *url.URL
	http    *http.Client
	metrics Recorder
	logger  *zap.Logger
}

// NewClient creates a new loopback client
func NewClient(cfg *Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got %q", cfg.BaseURL)
	}

	var transportOpts []otelhttp.Option
	if cfg.TracerProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.Propagator != nil {
		transportOpts = append(transportOpts, otelhttp.WithPropagators(cfg.Propagator))
	}
	transportOpts = append(transportOpts, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return "HTTP " + r.Method + " " + r.URL.Path
	}))

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
			Timeout:   cfg.Timeout,
		},
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// BaseURL returns the URL paths are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchUser returns the name served at UserPath
func (c *Client) FetchUser(ctx context.Context) (string, error) {
	return c.GetText(ctx, UserPath)
}

// GetText issues a GET for path and returns the body as plain text.
// Errors are returned as-is to the caller; there is no retry.
func (c *Client) GetText(ctx context.Context, path string) (text string, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveUpstream(path, time.Since(start), err)
		}
	}()

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: %w: %d", target, ErrUnexpectedStatus, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.HasPrefix(mediaType, "text/") {
			return "", fmt.Errorf("GET %s: %w: %s", target, ErrNonTextBody, ct)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body of GET %s: %w", target, err)
	}

	c.logger.Debug("outbound call completed",
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	return string(body), nil
}
