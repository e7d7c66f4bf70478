// Package api exposes the orchestrator over HTTP using echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/Sternrassler/wikisum/pkg/metrics"
	"github.com/Sternrassler/wikisum/pkg/orchestrator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds graceful shutdown when Config leaves it unset.
const DefaultShutdownTimeout = 10 * time.Second

// Service is the orchestrator surface served over HTTP.
type Service interface {
	Summarize(ctx context.Context, identity, query string) (*orchestrator.SummaryResult, error)
	Chat(ctx context.Context, identity, query, question string) (*orchestrator.ChatResult, error)
	CacheStats() cache.Stats
	ClearCache()
	CacheEnabled() bool
	CacheTTL() time.Duration
}

// Config holds HTTP server settings.
type Config struct {
	// Listen is the TCP address, e.g. ":8000"
	Listen string

	// CORSOrigins lists allowed origins; "*" allows any
	CORSOrigins []string

	// Version is reported by /health
	Version string

	// APIKeyConfigured is reported by /health
	APIKeyConfigured bool

	// TrustedProxies lists the CIDRs or IPs of reverse proxies whose
	// X-Forwarded-For header names the caller. Empty means the peer address
	// is the caller identity and forwarding headers are ignored.
	TrustedProxies []string

	ShutdownTimeout time.Duration
}

// Server is the wikisum HTTP server.
type Server struct {
	echo    *echo.Echo
	service Service
	config  Config
	logger  zerolog.Logger
}

// New creates a server and registers all routes.
func New(service Service, cfg Config, logger zerolog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		echo:    echo.New(),
		service: service,
		config:  cfg,
		logger:  logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.IPExtractor = ipExtractor(cfg.TrustedProxies, logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
	}))

	e.GET("/health", s.health)
	e.POST("/summarize", s.summarize)
	e.POST("/chat", s.chat)
	e.GET("/cache/stats", s.cacheStats)
	e.DELETE("/cache/clear", s.clearCache)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return s
}

// ipExtractor returns the caller identity extractor. Forwarding headers are
// only honoured when the peer is one of the trusted proxies.
func ipExtractor(trusted []string, logger zerolog.Logger) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, entry := range trusted {
		ipNet, err := parseIPNet(entry)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", entry).Msg("Ignoring invalid trusted proxy")
			continue
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

// parseIPNet accepts a CIDR or a single IP address.
func parseIPNet(entry string) (*net.IPNet, error) {
	if _, ipNet, err := net.ParseCIDR(entry); err == nil {
		return ipNet, nil
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, fmt.Errorf("invalid trusted proxy %q", entry)
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound listener address once Start is serving, or nil.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// Start serves until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(s.config.Listen)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	s.logger.Info().Str("listen", s.config.Listen).Msg("HTTP server starting")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
