package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/costing/internal/observability"
	"github.com/odyssey-erp/costing/internal/units"
	"github.com/odyssey-erp/costing/jobs"
)

func newTestRouter() http.Handler {
	return NewRouter(RouterParams{
		Config:       &Config{AppEnv: "test", RateLimitPerMinute: 1000},
		UnitsHandler: units.NewHandler(),
		JobHandler:   jobs.NewHandler(nil, nil),
		Metrics:      observability.NewMetrics(),
	})
}

func TestRouterHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRouterMountsAPIAndMetrics(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/units/convert?value=1&from=liter&to=milliliter", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `route="/api/units/convert"`))
}

func TestRouterSkipsMissingHandlers(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRouter(RouterParams{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/units", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
