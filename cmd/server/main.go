package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/uni-value-o-meter/docs"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/config"
	apperrors "github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/export"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/metrics"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/scorecard"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/security"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/service"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

const version = "1.0.0"

// Row listing endpoints page with ?limit=N.
const (
	defaultRowLimit = 50
	maxRowLimit     = 500
)

// cachedRoutes are GET endpoints whose responses are cached until the
// next successful refresh (or TTL expiry).
var cachedRoutes = []string{
	"/rankings",
	"/rankings/:id",
	"/sweetspot",
	"/value",
	"/thresholds",
	"/stats",
	"/export/rankings.csv",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(appLogger.Logger)

	source := buildSource(cfg, appLogger.Logger)
	pipeline := analysis.NewPipeline(pipelineOptions(cfg), appLogger.Logger)
	svc := service.NewService(source, pipeline, appLogger.Logger)

	appCache := cache.NewCache(cfg.CacheTTL())
	limiter := ratelimit.NewRateLimiter(ratelimit.Config{
		RequestsPerMin: cfg.RateLimitPerMin,
		Burst:          cfg.RateLimitBurst,
	})
	defer limiter.Close()

	router := newRouter(cfg, svc, appCache, limiter, appLogger)

	// Warm the published result so the API serves data shortly after boot.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := svc.Refresh(ctx); err != nil {
			slog.Error("Initial refresh failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "source", cfg.Source)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// buildSource selects where raw institution records come from.
func buildSource(cfg *config.Config, log *slog.Logger) service.Source {
	if cfg.Source == "file" {
		path := cfg.InputFile
		conv := export.CurrencyConversion{Code: cfg.CurrencyCode, RateUSD: cfg.CurrencyRateUSD}
		return service.SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
			return export.ReadInstitutionsFile(path, conv, log)
		})
	}

	if cfg.ScorecardAPIKey == "" {
		log.Warn("No Scorecard API key configured, upstream requests will likely be rejected")
	}

	return scorecard.NewClient(scorecard.Config{
		BaseURL:        cfg.ScorecardBaseURL,
		APIKey:         cfg.ScorecardAPIKey,
		PerPage:        cfg.ScorecardPerPage,
		MaxPages:       cfg.ScorecardMaxPages,
		MinEnrollment:  cfg.ScorecardMinEnrollment,
		RequestsPerSec: cfg.ScorecardRequestsPerSec,
		Timeout:        cfg.ScorecardTimeout(),
	}, log)
}

// pipelineOptions maps process configuration onto scoring options.
func pipelineOptions(cfg *config.Config) analysis.Options {
	opts := analysis.DefaultOptions()
	opts.CategoryWeights = cfg.CategoryWeights
	opts.IndicatorWeights = cfg.IndicatorWeights
	opts.MinIndicators = cfg.MinIndicators
	opts.TieBreak = cfg.TieBreak
	opts.QualityPercentile = cfg.SweetSpotQualityPercentile
	opts.PricePercentile = cfg.SweetSpotPricePercentile
	opts.ValueQualityWeight = cfg.ValueQualityWeight
	opts.ValuePriceWeight = cfg.ValuePriceWeight
	return opts
}

// newRouter wires middleware and routes around the analysis service.
func newRouter(cfg *config.Config, svc *service.Service, appCache *cache.Cache, limiter *ratelimit.RateLimiter, appLogger *monitoring.Logger) *gin.Engine {
	r := gin.New()

	compression := middleware.NewCompressionMiddleware(middleware.CompressionConfig{
		Level: 6,
		// promhttp negotiates its own encoding.
		ExcludedPaths: []string{"/metrics"},
	})

	r.Use(monitoring.MonitoringMiddleware(appLogger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(corsMiddleware(cfg))
	r.Use(compression.Handler())
	r.Use(limiter.IPRateLimitMiddleware())
	r.Use(appCache.Middleware(cachedRoutes...))

	r.GET("/health", func(c *gin.Context) {
		response := gin.H{
			"status":     "ok",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"version":    version,
			"ready":      svc.Ready(),
			"refreshing": svc.Refreshing(),
		}
		if !svc.Ready() {
			response["status"] = "initializing"
		}
		if generated, ok := svc.LastGenerated(); ok {
			response["last_generated"] = generated.UTC().Format(time.RFC3339)
		}
		if result, err := svc.Current(); err == nil {
			response["institutions_ranked"] = len(result.Rows)
			response["sweet_spots"] = result.Summary.SweetSpotCount
		}
		c.JSON(http.StatusOK, response)
	})

	r.GET("/rankings", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		rows := result.Rows
		if limit := parseLimit(c); limit < len(rows) {
			rows = rows[:limit]
		}

		c.JSON(http.StatusOK, gin.H{
			"run_id":       result.RunID,
			"generated_at": result.GeneratedAt,
			"count":        len(rows),
			"total":        len(result.Rows),
			"rows":         rows,
		})
	})

	r.GET("/rankings/:id", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			appErr := apperrors.NewValidationError("institution id must be an integer", c.Param("id"))
			apperrors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		row, found := result.RowByID(id)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "institution not found", "id": id})
			return
		}

		c.JSON(http.StatusOK, row)
	})

	r.GET("/sweetspot", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		rows := result.SweetSpotRows()
		c.JSON(http.StatusOK, gin.H{
			"run_id":       result.RunID,
			"generated_at": result.GeneratedAt,
			"thresholds":   result.Thresholds,
			"count":        len(rows),
			"rows":         rows,
		})
	})

	r.GET("/value", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		rows := result.ByValueRank()
		if limit := parseLimit(c); limit < len(rows) {
			rows = rows[:limit]
		}

		c.JSON(http.StatusOK, gin.H{
			"run_id":       result.RunID,
			"generated_at": result.GeneratedAt,
			"count":        len(rows),
			"total":        len(result.Rows),
			"rows":         rows,
		})
	})

	r.GET("/thresholds", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, result.Thresholds)
	})

	r.GET("/stats", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"run_id":           result.RunID,
			"generated_at":     result.GeneratedAt,
			"records_received": result.RecordsReceived,
			"summary":          result.Summary,
			"errors":           result.Errors,
		})
	})

	r.GET("/export/rankings.csv", func(c *gin.Context) {
		result, ok := currentResult(c, svc)
		if !ok {
			return
		}

		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="complete_analysis.csv"`)
		c.Status(http.StatusOK)

		if err := export.WriteRankings(c.Writer, result); err != nil {
			slog.Error("Failed to stream rankings CSV", "error", err)
		}
	})

	// Refresh is expensive (full upstream fetch), so it carries a stricter
	// per-IP budget than the global limit.
	r.POST("/refresh", limiter.EndpointRateLimitMiddleware("refresh", 2), func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
		defer cancel()

		result, err := svc.Refresh(ctx)
		if err != nil {
			if errors.Is(err, service.ErrRefreshInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
				return
			}
			appErr := apperrors.ToAppError(err)
			apperrors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appCache.Clear()

		c.JSON(http.StatusOK, gin.H{
			"run_id":              result.RunID,
			"generated_at":        result.GeneratedAt,
			"records_received":    result.RecordsReceived,
			"institutions_ranked": len(result.Rows),
			"sweet_spots":         result.Summary.SweetSpotCount,
		})
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})))

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Performance profiling endpoints (development only)
	if os.Getenv("UVOM_ENABLE_PPROF") == "true" {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return r
}

// corsMiddleware builds CORS handling from the configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}

	wildcard := false
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			wildcard = true
		}
	}
	if wildcard {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}

	return cors.New(corsCfg)
}

// currentResult fetches the published result or answers 503 when no run
// has completed yet.
func currentResult(c *gin.Context, svc *service.Service) (*analysis.Result, bool) {
	result, err := svc.Current()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "no analysis result available yet",
			"hint":  "retry shortly or trigger POST /refresh",
		})
		return nil, false
	}
	return result, true
}

// parseLimit reads the optional limit query parameter. Junk or
// non-positive values fall back to the default; the cap always applies.
func parseLimit(c *gin.Context) int {
	limit := defaultRowLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}
	return limit
}
