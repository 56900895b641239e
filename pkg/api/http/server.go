package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/eduvid/internal/application/workers"
	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TaskService is the orchestrator surface used by the API
type TaskService interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
	GetStatus(ctx context.Context, taskID string) (*domain.Task, error)
	Cancel(ctx context.Context, taskID string) (bool, error)
}

// HealthReporter reports worker pool health
type HealthReporter interface {
	GetStatus() *workers.HealthStatus
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	tasks    TaskService
	videos   ports.VideoRepository
	store    ports.ObjectStore
	concepts ports.ConceptSearcher
	health   HealthReporter
	logger   *zap.Logger
}

// Config holds HTTP server configuration. Store, Concepts, Health and
// Metrics are optional.
type Config struct {
	Port     int
	Tasks    TaskService
	Videos   ports.VideoRepository
	Store    ports.ObjectStore
	Concepts ports.ConceptSearcher
	Health   HealthReporter
	Metrics  http.Handler
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:   router,
		tasks:    cfg.Tasks,
		videos:   cfg.Videos,
		store:    cfg.Store,
		concepts: cfg.Concepts,
		health:   cfg.Health,
		logger:   cfg.Logger,
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s.setupRoutes(metrics)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/videos/generate", s.handleGenerate)
		v1.GET("/videos", s.handleListVideos)
		v1.GET("/videos/:id", s.handleGetVideo)
		v1.DELETE("/videos/:id", s.handleDeleteVideo)

		v1.GET("/tasks/:id/status", s.handleGetStatus)
		v1.POST("/tasks/:id/cancel", s.handleCancel)

		v1.GET("/concepts/search", s.handleSearchConcepts)
	}
}

// SetupWebSocket adds the task status stream handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleTaskStream(*gin.Context)
	}); ok {
		s.router.GET("/ws/tasks/:id", wsHandler.HandleTaskStream)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
