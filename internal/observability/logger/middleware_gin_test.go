package logger

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var requestIDPattern = regexp.MustCompile(`^req_[0-9a-f]{10}$`)

func newTestEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{QuietRoutes: []string{"/metrics"}}))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, correlation.ExtractCorrelationID(c.Request.Context()))
	})
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, logs
}

func TestGinMiddlewareGeneratesRequestID(t *testing.T) {
	r, logs := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := w.Header().Get(correlation.HeaderName)
	assert.Regexp(t, requestIDPattern, requestID)
	assert.Equal(t, requestID, w.Body.String())

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, requestID, entries[0].ContextMap()["correlation_id"])
}

func TestGinMiddlewarePropagatesInboundRequestID(t *testing.T) {
	r, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req_from_client")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req_from_client", w.Header().Get(correlation.HeaderName))
	assert.Equal(t, "req_from_client", w.Body.String())
}

func TestGinMiddlewareQuietRoutesLogAtDebug(t *testing.T) {
	r, logs := newTestEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM clients":             "SELECT",
		"  select count(*) from invoices  ": "SELECT",
		"WITH x AS (SELECT 1) DELETE FROM y": "SELECT",
		"PRAGMA table_info(clients)":        "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}
