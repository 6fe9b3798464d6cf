// Package httpapi serves the read surface over the discovery store: ranked
// problem categories, daily trends, collection stats, and a validated ingest
// endpoint for collectors that push over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/globaltime"
	"horse.fit/nichescore/internal/ingest"
	"horse.fit/nichescore/internal/metrics"
	"horse.fit/nichescore/internal/scoring"
	payloadschema "horse.fit/nichescore/schema"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50

	defaultTrendDays = 7
	maxTrendDays     = 90

	maxIngestBatch = 500
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// SourceQualityPlaceholder stands in for per-post source quality when
	// scoring category aggregates that span several sources.
	SourceQualityPlaceholder int
}

type Server struct {
	pool     *db.Pool
	ingester *ingest.Service
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	opts     Options
}

type topProblem struct {
	Category     string   `json:"category"`
	NicheScore   int      `json:"niche_score"`
	PostCount    int      `json:"post_count"`
	AvgSentiment float64  `json:"avg_sentiment"`
	Solvability  int      `json:"solvability"`
	Platforms    []string `json:"platforms"`
	TopExample   string   `json:"top_example"`
}

func NewServer(pool *db.Pool, ingester *ingest.Service, gatherer prometheus.Gatherer, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	placeholder := opts.SourceQualityPlaceholder
	if placeholder <= 0 {
		placeholder = 6
	}

	return &Server{
		pool:     pool,
		ingester: ingester,
		gatherer: gatherer,
		logger:   logger,
		opts: Options{
			Host:                     host,
			Port:                     port,
			ReadTimeout:              readTimeout,
			WriteTimeout:             writeTimeout,
			ShutdownTimeout:          shutdownTimeout,
			SourceQualityPlaceholder: placeholder,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("nichescore api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("nichescore api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/problems/top", s.handleTopProblems)
	api.GET("/trends", s.handleTrends)
	api.POST("/ingest", s.handleIngest)

	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(s.gatherer)))
	}

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "nichescore",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.QueryCollectionStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleTopProblems(c echo.Context) error {
	days, err := parsePeriod(c.QueryParam("period"))
	if err != nil {
		return failValidation(c, map[string]string{"period": err.Error()})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultTopLimit, 1, maxTopLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	category := strings.TrimSpace(c.QueryParam("category"))
	since := globaltime.UTC().AddDate(0, 0, -days)

	aggregates, err := s.pool.QueryTopCategories(c.Request().Context(), since, category, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query top categories failed")
		return internalError(c, "Failed to load top problems")
	}

	items := make([]topProblem, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, topProblem{
			Category: agg.Category,
			NicheScore: scoring.NicheScore(scoring.Inputs{
				Sentiment:     scoring.RoundSentiment(agg.AvgSentiment),
				Frequency:     scoring.FrequencyScore(agg.PostCount),
				SourceQuality: s.opts.SourceQualityPlaceholder,
				Solvability:   agg.Solvability,
			}, scoring.DefaultWeights),
			PostCount:    agg.PostCount,
			AvgSentiment: agg.AvgSentiment,
			Solvability:  agg.Solvability,
			Platforms:    agg.Platforms,
			TopExample:   agg.TopExample,
		})
	}

	return success(c, map[string]any{
		"items":    items,
		"period":   periodName(days),
		"category": category,
		"limit":    limit,
	})
}

func (s *Server) handleTrends(c echo.Context) error {
	days, err := parsePositiveInt(c.QueryParam("days"), defaultTrendDays, 1, maxTrendDays)
	if err != nil {
		return failValidation(c, map[string]string{"days": err.Error()})
	}

	to := globaltime.UTC()
	from := to.AddDate(0, 0, -(days - 1))

	rows, err := s.pool.ListTrendSnapshots(c.Request().Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("query trend snapshots failed")
		return internalError(c, "Failed to load trends")
	}

	return success(c, map[string]any{
		"items": rows,
		"days":  days,
	})
}

type ingestRequest struct {
	Items []json.RawMessage `json:"items"`
}

func (s *Server) handleIngest(c echo.Context) error {
	if s.ingester == nil {
		return internalError(c, "Ingest is not available")
	}

	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object with an items array"})
	}
	if len(req.Items) == 0 {
		return failValidation(c, map[string]string{"items": "must not be empty"})
	}
	if len(req.Items) > maxIngestBatch {
		return failValidation(c, map[string]string{"items": fmt.Sprintf("must contain at most %d records", maxIngestBatch)})
	}

	records := make([]ingest.Record, 0, len(req.Items))
	fieldErrors := map[string]string{}
	for i, raw := range req.Items {
		payload, err := payloadschema.ValidateRawPostPayload(raw)
		if err != nil {
			fieldErrors[fmt.Sprintf("items[%d]", i)] = err.Error()
			continue
		}

		record, err := ingest.RecordFromPayload(payload)
		if err != nil {
			fieldErrors[fmt.Sprintf("items[%d]", i)] = err.Error()
			continue
		}
		records = append(records, record)
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	result, err := s.ingester.Ingest(c.Request().Context(), records)
	if err != nil {
		s.logger.Error().Err(err).Msg("ingest batch failed")
		return internalError(c, "Failed to ingest records")
	}

	return successWithStatus(c, http.StatusCreated, result)
}

// parsePeriod maps the period query parameter onto a day count.
func parsePeriod(raw string) (int, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "week":
		return 7, nil
	case "day":
		return 1, nil
	case "month":
		return 30, nil
	default:
		return 0, fmt.Errorf("must be one of day, week, month")
	}
}

func periodName(days int) string {
	switch days {
	case 1:
		return "day"
	case 30:
		return "month"
	default:
		return "week"
	}
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
