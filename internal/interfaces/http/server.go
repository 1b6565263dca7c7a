// Package http exposes the recruitment engine as a JSON API.
// This is a thin adapter layer that translates HTTP requests to engine calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	engine     CaseEngine
	logger     Logger
}

// NewServer creates a new HTTP server in front of the engine
func NewServer(config ServerConfig, engine CaseEngine, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		router: gin.New(),
		engine: engine,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"actor", c.GetHeader(ActorHeader),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.engine, s.logger)

	s.router.GET("/health", h.HealthCheck)

	cases := s.router.Group("/api/v1/cases")
	{
		cases.POST("", h.CreateCase)
		cases.GET("", h.ListCases)
		cases.GET("/:id", h.GetCase)
		cases.GET("/:id/history", h.History)
		cases.GET("/:id/stages/:stage", h.StageView)

		cases.POST("/:id/advance", h.Advance)
		cases.POST("/:id/cancel", h.Cancel)
		cases.GET("/:id/overrides", h.Overrides)
		cases.POST("/:id/overrides", h.GrantOverride)
		cases.DELETE("/:id/overrides/:overrideID", h.RevokeOverride)

		cases.PUT("/:id/tor", h.SaveTOR)
		cases.POST("/:id/tor/submit", h.caseAction(submitTOR))
		cases.POST("/:id/tor/approve", h.caseAction(approveTOR))
		cases.POST("/:id/tor/reject", h.caseAction(rejectTOR))

		cases.PUT("/:id/srf", h.SaveSRF)
		cases.POST("/:id/srf/submit", h.caseAction(submitSRF))
		cases.POST("/:id/srf/verify-hr", h.caseAction(verifyHR))
		cases.POST("/:id/srf/verify-budget", h.caseAction(verifyBudget))
		cases.POST("/:id/srf/approve", h.caseAction(approveSRF))
		cases.POST("/:id/srf/reject", h.caseAction(rejectSRF))

		cases.PUT("/:id/report", h.SaveReport)
		cases.POST("/:id/report/submit", h.caseAction(submitReport))
		cases.POST("/:id/report/approve", h.caseAction(approveReport))
		cases.POST("/:id/report/reject", h.caseAction(rejectReport))

		cases.POST("/:id/sanction/run", h.caseAction(runSanction))
		cases.POST("/:id/sanction/override", h.caseAction(overrideSanction))
		cases.POST("/:id/background/complete", h.caseAction(completeBackground))
		cases.POST("/:id/contract/activate", h.caseAction(activateContract))
	}

	h.pipelineRoutes(cases, s.router.Group("/api/v1/candidates"), s.router.Group("/api/v1/interviews"))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultServerConfig().ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
