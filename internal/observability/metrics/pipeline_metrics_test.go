package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newPipelineMetrics(registry, Config{ServiceName: "nbaflow", Environment: "test"})

	m.IncOutcome("created")
	m.IncOutcome("created")
	m.IncOutcome("deactivated_only")
	m.IncPublished("queue_full")
	m.SetQueueDepth(7)
	m.AddDiscarded(3)
	m.AddDiscarded(0)
	m.IncEnrichment("")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("deactivated_only")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.published.WithLabelValues("queue_full")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.discarded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.enrichments.WithLabelValues("none")))
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.IncOutcome("created")
	m.IncFailure("panic")
	m.ObserveProcessDuration(-time.Second)
	m.ObserveQueueWait(time.Second)
	m.SetQueueDepth(1)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{Environment: "test"})

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/v1/nba/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nba/nba_1", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/nba/:id", "404"))
	assert.Equal(t, float64(1), got)
}
