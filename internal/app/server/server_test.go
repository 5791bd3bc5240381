package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerStats/internal/app/geo"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/service"
	"github.com/sifan077/PowerStats/internal/http/middleware"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
)

type stubIngest struct{}

func (stubIngest) TrackPageview(ctx context.Context, input service.PageviewInput) (*service.PageviewResult, error) {
	return &service.PageviewResult{SessionID: "s", NewSession: true}, nil
}

func (stubIngest) TrackEvent(ctx context.Context, input service.EventInput) error { return nil }

func (stubIngest) TrackHeatmapSample(ctx context.Context, input service.HeatmapInput) error {
	return nil
}

type stubAnalytics struct{}

func (stubAnalytics) Summary(ctx context.Context, q service.SummaryQuery) (*model.Summary, error) {
	return &model.Summary{}, nil
}

func (stubAnalytics) RealTime(ctx context.Context) (*model.RealTime, error) {
	return &model.RealTime{}, nil
}

func (stubAnalytics) Regional(ctx context.Context, q service.RegionalQuery) (*model.RegionalAnalytics, error) {
	return &model.RegionalAnalytics{}, nil
}

func (stubAnalytics) AvailableRegions() geo.AvailableRegions { return geo.AvailableRegions{} }

func (stubAnalytics) Heatmap(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error) {
	return []model.HeatmapPoint{}, nil
}

func (stubAnalytics) ConversionFunnel(name string) model.Funnel { return model.Funnel{Name: name} }

func (stubAnalytics) SEOMetrics(url string) model.SEOMetrics { return model.SEOMetrics{URL: url} }

func pageviewRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/track/pageview", strings.NewReader(`{"url":"https://a.test/"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.9")
	return req
}

func TestServer_RateLimitsBeaconsOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := New(Dependencies{
		Ingest:    stubIngest{},
		Analytics: stubAnalytics{},
		Redis:     rdb,
		RateLimit: middleware.RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "beacon"},
	})

	first, err := s.App().Test(pageviewRequest())
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	second, err := s.App().Test(pageviewRequest())
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if first.StatusCode != fiber.StatusOK || second.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %d, %d", first.StatusCode, second.StatusCode)
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.9")
		resp, err := s.App().Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("dashboard route must not be limited, got %d", resp.StatusCode)
		}
	}
}

func TestServer_WithoutRedisDoesNotLimit(t *testing.T) {
	s := New(Dependencies{Ingest: stubIngest{}, Analytics: stubAnalytics{}})

	for i := 0; i < 5; i++ {
		resp, err := s.App().Test(pageviewRequest())
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
}

func TestServer_SetsRequestIDAndCORS(t *testing.T) {
	s := New(Dependencies{Ingest: stubIngest{}, Analytics: stubAnalytics{}, AllowedOrigin: "*"})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	if resp.Header.Get(fiber.HeaderAccessControlAllowOrigin) != "*" {
		t.Fatalf("expected CORS header, got %q", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	}
}

func TestServer_UnknownRouteUsesEnvelope(t *testing.T) {
	s := New(Dependencies{Ingest: stubIngest{}, Analytics: stubAnalytics{}})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/analytics/nope", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var env httpUtil.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("expected JSON envelope: %v", err)
	}
	if env.Success || env.Code != httpUtil.CodeNotFound || env.Error == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestServer_OversizedBodyUsesEnvelope(t *testing.T) {
	s := New(Dependencies{Ingest: stubIngest{}, Analytics: stubAnalytics{}, BodyLimit: 16})

	body := `{"url":"https://a.test/` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/track/pageview", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	var env httpUtil.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("expected JSON envelope: %v", err)
	}
	if env.Code != httpUtil.CodeValidation {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
