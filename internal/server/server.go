package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/otelpipe/internal/api/http"
	"github.com/GriffinCanCode/otelpipe/internal/api/middleware"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/pipeline"
)

const readHeaderTimeout = 10 * time.Second

// Telemetry is what the server needs from the pipeline.
type Telemetry interface {
	tracing.Hooks
	api.Telemetry
}

var _ Telemetry = (*pipeline.Pipeline)(nil)

// Deps are the collaborators built by the bootstrap.
type Deps struct {
	Telemetry Telemetry
	Metrics   *monitoring.Metrics
	// Logger is the application logger; entries written through it reach
	// the pipeline.
	Logger *zap.Logger
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(deps.Telemetry, logger))
	if deps.Metrics != nil {
		router.Use(monitoring.Middleware(deps.Metrics))
	}
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit)))
	}

	api.NewHandlers(deps.Telemetry, deps.Metrics).Register(router)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
