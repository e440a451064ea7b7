package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	Init()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/questions/:topic", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", PrometheusHandler())

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/api/questions/:topic", "200"))
	for _, topic := range []string{"Go", "React"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/questions/"+topic, nil))
	}
	after := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/api/questions/:topic", "200"))
	assert.Equal(t, 2.0, after-before)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}
