package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homevolt/homevolt/pkg/gateway/gatewaymock"
	"github.com/homevolt/homevolt/pkg/monitor"
	"github.com/homevolt/homevolt/pkg/storage"
	"github.com/homevolt/homevolt/pkg/types"
)

// newTestMonitor returns a monitor backed by in-memory storage and a gateway
// that reports one full two-pack system per fetch.
func newTestMonitor(t *testing.T) *monitor.Monitor {
	t.Helper()
	gw := new(gatewaymock.MockGateway)
	gw.On("Fetch", mock.Anything).Return(types.Payload{
		Status: map[string]any{"wifi_status": "connected"},
		EMS: map[string]any{
			"ems": []any{
				map[string]any{
					"ems_data": map[string]any{
						"soc_avg":  float64(10000),
						"sys_temp": float64(220),
						"power":    float64(-1500),
					},
					"bms_data": []any{
						map[string]any{"soc": float64(10000), "energy_avail": float64(5200)},
						map[string]any{"soc": float64(10000), "energy_avail": float64(4800)},
					},
				},
			},
			"sensors": []any{
				map[string]any{"total_power": float64(420), "energy_imported": float64(120.5), "energy_exported": float64(30.2)},
				map[string]any{"total_power": float64(-2100), "energy_imported": float64(0.8), "energy_exported": float64(95.4)},
				map[string]any{"total_power": float64(900)},
			},
		},
	}, nil)
	m := monitor.New(gw, storage.NewMemoryProvider())
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestSnapshotEndpoint(t *testing.T) {
	m := newTestMonitor(t)
	srv := &Server{monitor: m}

	t.Run("no data yet", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleSnapshot(w, httptest.NewRequest("GET", "/api/snapshot", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)
	})

	require.NoError(t, m.Tick(context.Background()))

	t.Run("after first poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleSnapshot(w, httptest.NewRequest("GET", "/api/snapshot", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), `"battery_soc":100`)
		assert.Contains(t, w.Body.String(), `"battery_power":-1500`)
	})
}

func TestEstimatesEndpoint(t *testing.T) {
	m := newTestMonitor(t)
	require.NoError(t, m.Tick(context.Background()))
	srv := &Server{monitor: m}

	w := httptest.NewRecorder()
	srv.handleEstimates(w, httptest.NewRequest("GET", "/api/estimates", nil))
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"entity":"total"`)
	assert.Contains(t, w.Body.String(), `"entity":"module_2"`)
	assert.Contains(t, w.Body.String(), `"soh":100`)
}

func TestSettingsEndpoints(t *testing.T) {
	m := newTestMonitor(t)
	srv := &Server{monitor: m}

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleGetSettings(w, httptest.NewRequest("GET", "/api/settings", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), `"fullSOCThreshold":99`)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/settings", strings.NewReader("{not json"))
		srv.handleUpdateSettings(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("validation error", func(t *testing.T) {
		body := `{"fullSOCThreshold":10,"baselineStrategy":"auto","scanIntervalSeconds":30}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/settings", strings.NewReader(body))
		srv.handleUpdateSettings(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), "full SOC threshold")
	})

	t.Run("valid update", func(t *testing.T) {
		body := `{"fullSOCThreshold":98,"baselineStrategy":"manual","manualBaselineKWH":20,"scanIntervalSeconds":60}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/settings", strings.NewReader(body))
		srv.handleUpdateSettings(w, req)
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, 98.0, m.Settings().FullSOCThreshold)
		assert.Equal(t, types.BaselineStrategyManual, m.Settings().BaselineStrategy)
	})
}

func TestHealthEndpoints(t *testing.T) {
	m := newTestMonitor(t)
	srv := &Server{monitor: m}

	t.Run("starting before first poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleHealth(w, httptest.NewRequest("GET", "/api/health", nil))
		assert.Contains(t, w.Body.String(), `"status":"starting"`)
	})

	require.NoError(t, m.Tick(context.Background()))

	t.Run("ok after poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleHealth(w, httptest.NewRequest("GET", "/api/health", nil))
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleHealthz(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := newTestMonitor(t)
	srv := &Server{monitor: m, serverName: "homevolt"}
	handler := srv.setupHandler()

	t.Run("scrape failure before first poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), "homevolt_scrape_success 0")
	})

	require.NoError(t, m.Tick(context.Background()))

	t.Run("full scrape", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, "homevolt", w.Result().Header.Get("Server"))
		body := w.Body.String()
		assert.Contains(t, body, "homevolt_scrape_success 1")
		assert.Contains(t, body, "homevolt_battery_soc_percent 100")
		assert.Contains(t, body, "homevolt_grid_energy_imported_kwh 120.5")
		assert.Contains(t, body, "homevolt_solar_energy_produced_kwh 95.4")
		assert.Contains(t, body, "homevolt_solar_energy_consumed_kwh 0.8")
		assert.Contains(t, body, `homevolt_module_soc_percent{module="2"} 100`)
		assert.Contains(t, body, `homevolt_soh_percent{entity="total"} 100`)
		assert.Contains(t, body, `homevolt_capacity_baseline_kwh{entity="total"} 10`)
	})
}
