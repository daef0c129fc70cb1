// Package httpapi maps the orchestrator's programmatic operations onto
// the HTTP transport: seven routes under /internal (six optimization
// routes plus health), all gated by an optional shared secret, with
// the optimization routes also requiring an owner header, shaping
// every error onto the {detail:{code,message,details?}} envelope.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/optctl/opt-orchestrator/internal/config"
	"github.com/optctl/opt-orchestrator/internal/httpapi/middleware"
	"github.com/optctl/opt-orchestrator/internal/orchestrator"
)

// Server owns the gin engine and the http.Server lifecycle.
type Server struct {
	router      *gin.Engine
	cfg         config.Config
	handler     *Handler
	rateLimiter *middleware.RateLimiter
	startedAt   time.Time
}

// New builds a Server wired against an orchestrator core and the
// resolved process configuration.
func New(cfg config.Config, core *orchestrator.Orchestrator) *Server {
	s := &Server{
		cfg:       cfg,
		handler:   NewHandler(core),
		startedAt: time.Now().UTC(),
	}
	if cfg.RateLimiterEnabled() {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RedisAddr, 60, time.Minute)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.SharedSecretHeader, middleware.OwnerHeaderName},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	secretGate := middleware.SharedSecret(s.cfg.OrchestratorSecret)
	s.router.GET("/internal/health", secretGate, s.health)
	if s.cfg.ObsMetricsEnabled {
		s.router.GET("/internal/metrics", secretGate, gin.WrapH(promhttp.Handler()))
	}

	api := s.router.Group("/internal")
	api.Use(secretGate)
	api.Use(middleware.OwnerHeader())

	createHandlers := []gin.HandlerFunc{s.handler.CreateOptimization}
	if s.rateLimiter != nil {
		createHandlers = append([]gin.HandlerFunc{s.rateLimiter.Middleware()}, createHandlers...)
	}

	optimizations := api.Group("/optimizations")
	{
		optimizations.POST("", createHandlers...)
		optimizations.GET("", s.handler.ListOptimizations)
		optimizations.GET("/:id", s.handler.GetOptimization)
		optimizations.GET("/:id/status", s.handler.GetOptimizationStatus)
		optimizations.POST("/:id/cancel", s.handler.CancelOptimization)
		optimizations.POST("/:id/export", s.handler.ExportOptimization)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "opt-orchestrator",
		"status":  "ok",
		"details": gin.H{"uptimeSeconds": time.Since(s.startedAt).Seconds()},
		"ts":      time.Now().UTC(),
	})
}

// Router returns the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until ctx is canceled, then
// drains in-flight requests with a bounded shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:        s.router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.rateLimiter != nil {
		_ = s.rateLimiter.Close()
	}
	return srv.Shutdown(shutdownCtx)
}
