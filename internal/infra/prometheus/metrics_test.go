package prometheus

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sifan077/PowerStats/config"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/health", 200)
	m.ObserveBeacon("pageview", nil)
	m.SessionStarted(1)
	m.SetRealtime(1, 2, 3)
	m.ObserveQuery("summary", time.Now(), nil)
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveBeacon("pageview", nil)
	m.ObserveBeacon("pageview", nil)
	m.ObserveBeacon("heatmap", errors.New("bad"))
	m.SessionStarted(7)
	m.SetRealtime(3, 40, 2)

	if got := testutil.ToFloat64(m.BeaconsTotal.WithLabelValues("pageview", "ok")); got != 2 {
		t.Fatalf("expected 2 ok pageviews, got %v", got)
	}
	if got := testutil.ToFloat64(m.BeaconsTotal.WithLabelValues("heatmap", "error")); got != 1 {
		t.Fatalf("expected 1 failed heatmap beacon, got %v", got)
	}
	if got := testutil.ToFloat64(m.TrackedSessions); got != 7 {
		t.Fatalf("expected tracked sessions gauge 7, got %v", got)
	}
	if got := testutil.ToFloat64(m.HourlyPageviews); got != 40 {
		t.Fatalf("expected hourly gauge 40, got %v", got)
	}
}

func TestNewServer_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SessionStarted(1)

	srv := NewServer(config.PrometheusConfig{Port: 9191}, reg)
	if srv.Addr != ":9191" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "powerstats_sessions_started_total 1") {
		t.Fatalf("expected sessions counter in output:\n%s", rec.Body.String())
	}
}
