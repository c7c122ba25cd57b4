package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/history"
	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/pricing"
	"github.com/guarzo/podprice/internal/report"
)

type Pricer interface {
	FetchMarketPrices(ctx context.Context, v model.PartVariant, opts pricing.FetchOptions) (*model.MarketPriceResult, error)
	Status() model.ProviderStatus
}

type HistoryReader interface {
	Series(v model.PartVariant) (history.Series, bool)
	Volatility30d(v model.PartVariant) float64
}

// Server exposes market price lookups to the admin portal's pricing pages.
type Server struct {
	pricer  Pricer
	history HistoryReader
	logger  *slog.Logger
	router  *gin.Engine
}

func New(pricer Pricer, hist HistoryReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pricer:  pricer,
		history: hist,
		logger:  logger,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), requestLogger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/market-price")
	{
		api.GET("", s.getMarketPrice)
		api.GET("/status", s.getStatus)
		api.GET("/history", s.getHistory)
		api.GET("/export", s.exportCSV)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) getMarketPrice(c *gin.Context) {
	v, opts, ok := s.parseLookup(c)
	if !ok {
		return
	}
	result, err := s.pricer.FetchMarketPrices(c.Request.Context(), v, opts)
	if err != nil {
		s.writeError(c, v, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.pricer.Status())
}

func (s *Server) getHistory(c *gin.Context) {
	v, err := parseVariant(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	series, _ := s.history.Series(v)
	c.JSON(http.StatusOK, gin.H{
		"variant":        v,
		"points":         series.Points,
		"volatility_30d": pricing.Round2(s.history.Volatility30d(v) * 100),
	})
}

func (s *Server) exportCSV(c *gin.Context) {
	v, opts, ok := s.parseLookup(c)
	if !ok {
		return
	}
	result, err := s.pricer.FetchMarketPrices(c.Request.Context(), v, opts)
	if err != nil {
		s.writeError(c, v, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="market-prices.csv"`)
	c.Status(http.StatusOK)
	if err := report.WriteListingsCSV(c.Writer, result); err != nil {
		s.logger.Error("write csv export", "variant", v.String(), "error", err)
	}
}

func (s *Server) parseLookup(c *gin.Context) (model.PartVariant, pricing.FetchOptions, bool) {
	v, err := parseVariant(c)
	if err == nil {
		var opts pricing.FetchOptions
		if opts, err = parseOptions(c); err == nil {
			return v, opts, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
	return model.PartVariant{}, pricing.FetchOptions{}, false
}

func (s *Server) writeError(c *gin.Context, v model.PartVariant, err error) {
	var upstream *ebay.UpstreamError
	switch {
	case errors.Is(err, ebay.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not_configured", "message": err.Error()})
	case errors.As(err, &upstream):
		s.logger.Warn("market price upstream failure", "variant", v.String(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        "upstream",
			"status":       upstream.StatusCode,
			"rate_limited": upstream.RateLimited(),
			"message":      err.Error(),
		})
	case errors.Is(err, ebay.ErrEmptyKeywords):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
	default:
		s.logger.Error("market price lookup failed", "variant", v.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
	}
}

func parseVariant(c *gin.Context) (model.PartVariant, error) {
	v := model.PartVariant{
		Generation:    strings.TrimSpace(c.Query("generation")),
		PartType:      strings.TrimSpace(c.Query("part")),
		ConnectorType: strings.TrimSpace(c.Query("connector")),
	}
	if v.Generation == "" || v.PartType == "" {
		return v, errors.New("generation and part are required")
	}
	return v, nil
}

func parseOptions(c *gin.Context) (pricing.FetchOptions, error) {
	var opts pricing.FetchOptions
	var err error
	if opts.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return opts, err
	}
	if opts.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return opts, err
	}
	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("max_results must be a positive integer")
		}
		opts.MaxResults = n
	}
	if opts.MinPrice != nil && opts.MaxPrice != nil && *opts.MinPrice > *opts.MaxPrice {
		return opts, errors.New("min_price must not exceed max_price")
	}
	opts.CategoryID = c.Query("category_id")
	return opts, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", name)
	}
	return &v, nil
}
