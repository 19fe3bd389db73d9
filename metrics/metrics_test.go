package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/strategies/get/:strategyId", func(ctx *gin.Context) { ctx.Status(http.StatusNotFound) })

	for _, path := range []string{"/strategies/get/a", "/strategies/get/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := counterValue(t, reg, "strategy_http_requests_total", map[string]string{
		"route": "/strategies/get/:strategyId", "method": "GET", "status": "404",
	})
	if got != 2 {
		t.Errorf("requests for templated route = %v, want 2", got)
	}
	if got := counterValue(t, reg, "strategy_http_requests_total", map[string]string{"route": "unmatched"}); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestImportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordImportSuccess(42)
	c.RecordImportFailure()

	if got := counterValue(t, reg, "strategy_option_import_runs_total", map[string]string{"result": "success"}); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := counterValue(t, reg, "strategy_option_catalog_size", nil); got != 42 {
		t.Errorf("catalog size = %v, want 42", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordImportFailure()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "strategy_option_import_runs_total") {
		t.Errorf("exposition missing import counter:\n%s", body)
	}
}
