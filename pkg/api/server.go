package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/utils/backpressure"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per second per client; zero disables limiting
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Server represents the API server
type Server struct {
	config          Config
	router          *gin.Engine
	httpServer      *http.Server
	handlers        *Handlers
	metricsRecorder *metrics.Recorder
	gatherer        prometheus.Gatherer
	log             *logger.Logger
}

// NewServer creates a new API server. When gatherer is not nil its metrics
// are served on /metrics.
func NewServer(config Config, handlers *Handlers, metricsRecorder *metrics.Recorder, gatherer prometheus.Gatherer) *Server {
	// Apply defaults if needed
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	server := &Server{
		config:          config,
		router:          gin.New(),
		handlers:        handlers,
		metricsRecorder: metricsRecorder,
		gatherer:        gatherer,
		log:             logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops
func (s *Server) Start() error {
	s.log.Infof("Starting API server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Apply common middleware
	s.router.Use(ErrorMiddleware())
	s.router.Use(LoggingMiddleware())
	if s.metricsRecorder != nil {
		s.router.Use(MetricsMiddleware(s.metricsRecorder))
	}
	s.router.Use(CORSMiddleware(s.config.AllowedOrigins, s.config.AllowedMethods, s.config.AllowedHeaders))
	if s.config.RateLimit > 0 {
		limiter := backpressure.NewClientLimiter(s.config.RateLimit, s.config.RateBurst, 10*time.Minute)
		s.router.Use(RateLimitMiddleware(limiter))
	}

	// Metrics endpoint for Prometheus
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	h := s.handlers
	api := s.router.Group("/api/v1")

	api.GET("/health", h.HealthCheckHandler)

	// Pricing
	api.POST("/options/price", h.PriceOptionHandler)

	// Strategies
	strategies := api.Group("/strategies")
	strategies.GET("", h.ListStrategiesHandler)
	strategies.POST("", h.CreateStrategyHandler)
	strategies.GET("/:id", h.GetStrategyHandler)
	strategies.DELETE("/:id", h.DeleteStrategyHandler)
	strategies.POST("/:id/evaluate", h.EvaluateStrategyHandler)
	strategies.POST("/:id/profile", h.ProfileStrategyHandler)
	strategies.POST("/:id/stress", h.StressStrategyHandler)
	strategies.POST("/:id/var", h.ValueAtRiskHandler)

	// Portfolio-wide
	api.POST("/reports", h.ReportHandler)
	api.GET("/positions", h.ExportPositionsHandler)
	api.POST("/positions", h.ImportPositionsHandler)

	// Market history
	api.GET("/bars/:underlying", h.GetBarsHandler)
	api.POST("/bars/:underlying", h.PutBarsHandler)
	api.GET("/volatility/:underlying", h.VolatilityHandler)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})
}
