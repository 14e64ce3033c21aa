package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/karttaworks/tile-grid-cache/internal/metrics"
)

func scrape(t *testing.T, p *metrics.Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	return rr.Body.String()
}

func TestInstruments_Exposed(t *testing.T) {
	p := metrics.Init()
	Init(p.Registerer())

	ObserveHTTP(http.MethodGet, "/api/grid", http.StatusOK, 0.012)
	ObserveCacheOp("mget", nil, 0.001)
	ObserveCacheOp("set", errors.New("boom"), 0.002)
	AddCacheHits(3)
	AddCacheMisses(2)
	ObserveUpstreamLatency("postgis", 0.05)
	ObserveThrottleDelay(0.2)
	SetInflight(4)
	ExposeBuildInfo("test")

	body := scrape(t, p)
	for _, want := range []string{
		`http_requests_total{method="GET",route="/api/grid",status="200"} 1`,
		`cache_op_total{op="mget",outcome="ok"} 1`,
		`cache_op_total{op="set",outcome="error"} 1`,
		`cache_results_total{outcome="hit"} 3`,
		`cache_results_total{outcome="miss"} 2`,
		`upstream_latency_seconds_bucket{upstream="postgis"`,
		`throttle_delay_seconds_bucket`,
		`throttle_inflight_requests 4`,
		`app_build_info{version="test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in metrics output", want)
		}
	}
}
