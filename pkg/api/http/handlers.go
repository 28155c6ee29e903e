package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	status := s.health.GetStatus()
	code, state, check := http.StatusOK, "healthy", "ok"
	if !status.Healthy {
		code, state, check = http.StatusServiceUnavailable, "unhealthy", status.LastError
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": status.Timestamp.UTC().Format(time.RFC3339),
		"checks": gin.H{
			"user_lookup": check,
		},
	})
}

// handleIndex greets the user returned by the user route
func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()

	name, err := s.users.FetchUser(ctx)
	if err != nil {
		_ = c.Error(err)
		s.logger.Error("failed to fetch user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "USER_LOOKUP_FAILED",
				Message: "failed to resolve user name",
			},
		})
		return
	}

	trace.SpanFromContext(ctx).AddEvent("user resolved", trace.WithAttributes(
		attribute.String("user.name", name),
	))

	body, err := s.greeting.Render(name)
	if err != nil {
		_ = c.Error(err)
		s.logger.Error("failed to render greeting", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "RENDER_FAILED",
				Message: "failed to render greeting",
			},
		})
		return
	}

	c.String(http.StatusOK, body)
}

// handleUser returns the configured user name
func (s *Server) handleUser(c *gin.Context) {
	c.String(http.StatusOK, s.userName)
}
