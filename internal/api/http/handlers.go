package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/pipeline"
)

// Telemetry is the part of the pipeline the handlers use.
type Telemetry interface {
	StartChild(ctx context.Context, name string) (context.Context, *tracing.Span)
	EndChild(span *tracing.Span, err error)
	OnLogLine(line []byte, sc trace.SpanContext)
	Stats() pipeline.Stats
}

// Handlers contains all HTTP handlers
type Handlers struct {
	telemetry Telemetry
	metrics   *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(telemetry Telemetry, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		telemetry: telemetry,
		metrics:   metrics,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/users", h.ListUsers)
	r.POST("/user", h.CreateUser)
	r.POST("/logs", h.IngestLogs)
	r.GET("/telemetry", h.TelemetryStats)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hello": "world"})
}
