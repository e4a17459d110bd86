package http

import (
	"bufio"
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
)

// maxLogBody caps the size of one ingest request.
const maxLogBody = 1 << 20

// IngestLogs accepts newline-delimited JSON log lines from an external
// producer and hands each one to the pipeline, correlated with the span of
// this request. Lines that are not JSON still produce a record.
func (h *Handlers) IngestLogs(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLogBody)
	sc := tracing.SpanContextFromContext(c.Request.Context())

	scanner := bufio.NewScanner(c.Request.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogBody)

	received := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		h.telemetry.OnLogLine(append([]byte(nil), line...), sc)
		received++
	}
	if err := scanner.Err(); err != nil {
		tracing.LoggerFrom(c).Warn("log ingest aborted", zap.Error(err), zap.Int("received", received))
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable log stream", "received": received})
		return
	}
	if received == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries provided"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"received": received})
}
