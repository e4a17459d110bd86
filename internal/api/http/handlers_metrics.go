package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TelemetryStats reports exporter state and side-channel totals.
func (h *Handlers) TelemetryStats(c *gin.Context) {
	body := gin.H{"pipeline": h.telemetry.Stats()}
	if h.metrics != nil {
		body["counters"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}
