package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolated(t *testing.T) {
	// Two collectors in one process must not collide
	a := NewMetrics()
	b := NewMetrics()

	a.RecordRegistryOp("create_pool", "STRATIS_OK")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RegistryOps.WithLabelValues("create_pool", "STRATIS_OK")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RegistryOps.WithLabelValues("create_pool", "STRATIS_OK")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRegistryOp("x", "y")
		m.IncExposed("pool")
		m.RecordBusCall("ListPools", "STRATIS_OK", time.Millisecond)
		_ = m.Snapshot()
	})
}

func TestExposedGaugeAndSnapshot(t *testing.T) {
	m := NewMetrics()

	m.IncExposed("pool")
	m.IncExposed("volume")
	m.DecExposed("pool")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExposedObjects.WithLabelValues("pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExposedObjects.WithLabelValues("volume")))
	assert.Equal(t, int64(1), m.Snapshot().ExposedObjects)
}

func TestBusTimer(t *testing.T) {
	m := NewMetrics()

	NewTimer(m, "CreatePool").Stop("STRATIS_OK")
	NewTimer(m, "CreatePool").Stop("STRATIS_BAD_PARAM")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.BusCalls)
	assert.Equal(t, int64(1), snap.BusFailures)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusCalls.WithLabelValues("CreatePool", "STRATIS_BAD_PARAM")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/pools/:name", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", Handler(m))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pools/p1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/pools/:name", "404")))
	assert.Equal(t, int64(1), m.Snapshot().TotalErrors)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stratisd_http_requests_total")
	assert.Contains(t, w.Body.String(), "stratisd_uptime_seconds")
}
