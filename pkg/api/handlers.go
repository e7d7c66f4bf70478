package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SummarizeRequest is the POST /summarize body.
type SummarizeRequest struct {
	Query string `json:"query"`
}

// SummarizeResponse is returned by POST /summarize.
type SummarizeResponse struct {
	Query     string `json:"query"`
	Summary   string `json:"summary"`
	SourceURL string `json:"source_url"`
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Query    string `json:"query"`
	Question string `json:"question"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	ArticleQuery string `json:"article_query"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	CacheEnabled     bool   `json:"cache_enabled"`
	CacheSize        int    `json:"cache_size"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// CacheStatsResponse is returned by GET /cache/stats.
type CacheStatsResponse struct {
	Enabled    bool  `json:"enabled"`
	Size       int   `json:"size"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:           "ok",
		Version:          s.config.Version,
		CacheEnabled:     s.service.CacheEnabled(),
		CacheSize:        s.service.CacheStats().Size,
		APIKeyConfigured: s.config.APIKeyConfigured,
	})
}

func (s *Server) summarize(c echo.Context) error {
	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	result, err := s.service.Summarize(c.Request().Context(), c.RealIP(), req.Query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SummarizeResponse{
		Query:     result.Query,
		Summary:   result.Summary,
		SourceURL: result.SourceID,
	})
}

func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	result, err := s.service.Chat(c.Request().Context(), c.RealIP(), req.Query, req.Question)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Question:     result.Question,
		Answer:       result.Answer,
		ArticleQuery: result.Query,
	})
}

func (s *Server) cacheStats(c echo.Context) error {
	stats := s.service.CacheStats()
	return c.JSON(http.StatusOK, CacheStatsResponse{
		Enabled:    s.service.CacheEnabled(),
		Size:       stats.Size,
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		TTLSeconds: int64(s.service.CacheTTL().Seconds()),
	})
}

func (s *Server) clearCache(c echo.Context) error {
	s.service.ClearCache()
	return c.JSON(http.StatusOK, MessageResponse{Message: "Cache cleared successfully"})
}
