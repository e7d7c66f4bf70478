package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/wikisum/pkg/orchestrator"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// handleError is the echo HTTPErrorHandler.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := statusFor(err)

	var oe *orchestrator.Error
	if errors.As(err, &oe) && oe.Kind == orchestrator.KindRateLimited {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(oe.RetryAfter)))
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status_code", status).Str("path", c.Path()).Msg("Request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Detail: detail, StatusCode: status})
	}
	if writeErr != nil {
		s.logger.Warn().Err(writeErr).Msg("Failed to write error response")
	}
}

// statusFor maps an error to an HTTP status and a client-facing detail.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	var oe *orchestrator.Error
	if !errors.As(err, &oe) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch oe.Kind {
	case orchestrator.KindInvalidInput:
		return http.StatusBadRequest, oe.Err.Error()
	case orchestrator.KindRateLimited:
		return http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."
	case orchestrator.KindNotFound:
		if errors.Is(oe, orchestrator.ErrNoSummary) {
			return http.StatusNotFound, fmt.Sprintf("No summary available for %q. Summarize the topic first.", oe.Query)
		}
		return http.StatusNotFound, fmt.Sprintf("Could not find Wikipedia article for query: %s", oe.Query)
	case orchestrator.KindGeneration:
		if oe.Op == "chat" {
			return http.StatusInternalServerError, "Failed to generate answer"
		}
		return http.StatusInternalServerError, "Failed to generate summary"
	default:
		if errors.Is(oe, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "Upstream request timed out"
		}
		return http.StatusBadGateway, "Upstream service unavailable"
	}
}

// retryAfterSeconds rounds up to whole seconds, at least 1.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
