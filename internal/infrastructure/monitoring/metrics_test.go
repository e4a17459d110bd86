package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
)

func TestObserverCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Enqueued("spans")
	m.Enqueued("spans")
	m.Enqueued("logs")
	m.Dropped("logs", export.DropQueueFull)
	m.Dropped("logs", export.DropClosed)
	m.Exported("spans", 2)
	m.ExportFailed("logs", 1, errors.New("refused"))
	m.TranslationError(errors.New("bad json"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsEnqueued.WithLabelValues("spans")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsEnqueued.WithLabelValues("logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("logs", "queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("logs", "closed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsExported.WithLabelValues("spans")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportFailures.WithLabelValues("logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranslationErrors))

	assert.Equal(t, Snapshot{
		Enqueued:          3,
		Dropped:           2,
		Exported:          2,
		ExportFailures:    1,
		TranslationErrors: 1,
	}, m.Snapshot())
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/users/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "otelpipe_http_requests_total"))
}
