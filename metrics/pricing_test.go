package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingMetrics(t *testing.T) {
	m := NewMetrics("test")
	pm := NewPricingMetrics(m)

	pm.ObservePricing("heston_absorption", 1000, 20*time.Millisecond)
	pm.ObservePricing("heston_absorption", 500, 10*time.Millisecond)
	pm.RecordDomainErrors("heston_naive", 3)
	pm.RecordDomainErrors("heston_naive", 0)
	pm.SetNegativeVarianceFixes("heston_absorption", 42)
	pm.SetRealizedCorrelation("heston_full_truncation+diagnostics", -0.21)

	assert.Equal(t, 1500.0, testutil.ToFloat64(pm.PathsTotal.WithLabelValues("heston_absorption")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.DomainErrorsTotal.WithLabelValues("heston_naive")))
	assert.Equal(t, 42.0, testutil.ToFloat64(pm.NegativeVarianceFixes.WithLabelValues("heston_absorption")))
	assert.Equal(t, -0.21, testutil.ToFloat64(pm.RealizedCorrelation.WithLabelValues("heston_full_truncation+diagnostics")))
}

func TestNilPricingMetricsAreNoop(t *testing.T) {
	var pm *PricingMetrics
	assert.NotPanics(t, func() {
		pm.ObservePricing("m", 1, time.Second)
		pm.RecordDomainErrors("m", 1)
		pm.SetNegativeVarianceFixes("m", 1)
		pm.SetRealizedCorrelation("m", 0.5)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics("test")
	m.RegisterBuildInfo(EngineInfo{Service: "stochvol", Scheme: "full_truncation", Source: "seeded"})
	m.RegisterBuildInfo(EngineInfo{Service: "ignored", Version: "v2"})
	pm := NewPricingMetrics(m)
	pm.ObservePricing("black_scholes", 10, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	want := fmt.Sprintf(`stochvol_build_info{go_version=%q,scheme="full_truncation",service="stochvol",source="seeded",version="unknown"} 1`, runtime.Version())
	assert.True(t, strings.Contains(body, want), body)
	assert.NotContains(t, body, `service="ignored"`)
	assert.Contains(t, body, `stochvol_paths_total{model="black_scholes"} 10`)
	assert.Contains(t, body, "go_goroutines")
}
