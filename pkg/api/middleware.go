package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// requestLogger logs and counts every request once the response is written.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		if err := next(c); err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)

		HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Inc()
		HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(duration.Seconds())

		var event *zerolog.Event
		switch {
		case res.Status >= 500:
			event = s.logger.Error()
		case res.Status >= 400:
			event = s.logger.Warn()
		default:
			event = s.logger.Info()
		}
		event.
			Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("remote_ip", c.RealIP()).
			Int("status_code", res.Status).
			Int64("bytes", res.Size).
			Dur("duration", duration).
			Msg("HTTP request")

		return nil
	}
}
