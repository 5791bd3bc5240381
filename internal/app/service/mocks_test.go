package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/PowerStats/internal/app/geo"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/repository"
)

type mockEventRepository struct {
	pageviewFn func(ctx context.Context, pv *model.Pageview) error
	eventFn    func(ctx context.Context, ev *model.Event) error
	sourceFn   func(ctx context.Context, src *model.TrafficSource) error
	heatmapFn  func(ctx context.Context, sample *model.HeatmapSample) error
}

func (m *mockEventRepository) CreatePageview(ctx context.Context, pv *model.Pageview) error {
	if m.pageviewFn != nil {
		return m.pageviewFn(ctx, pv)
	}
	return nil
}

func (m *mockEventRepository) CreateEvent(ctx context.Context, ev *model.Event) error {
	if m.eventFn != nil {
		return m.eventFn(ctx, ev)
	}
	return nil
}

func (m *mockEventRepository) CreateTrafficSource(ctx context.Context, src *model.TrafficSource) error {
	if m.sourceFn != nil {
		return m.sourceFn(ctx, src)
	}
	return nil
}

func (m *mockEventRepository) CreateHeatmapSample(ctx context.Context, sample *model.HeatmapSample) error {
	if m.heatmapFn != nil {
		return m.heatmapFn(ctx, sample)
	}
	return nil
}

type mockAnalyticsRepository struct {
	totalsFn    func(ctx context.Context, f repository.Filter) (model.PageviewTotals, error)
	topPagesFn  func(ctx context.Context, f repository.Filter, limit int) ([]model.PageCount, error)
	sourcesFn   func(ctx context.Context, f repository.Filter) (map[string]int64, error)
	regionsFn   func(ctx context.Context, f repository.Filter) ([]model.RegionTotals, error)
	countriesFn func(ctx context.Context, f repository.Filter, limit int) ([]model.CountryStats, error)
	citiesFn    func(ctx context.Context, f repository.Filter, limit int) ([]model.CityStats, error)
	heatmapFn   func(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error)
}

func (m *mockAnalyticsRepository) PageviewTotals(ctx context.Context, f repository.Filter) (model.PageviewTotals, error) {
	if m.totalsFn != nil {
		return m.totalsFn(ctx, f)
	}
	return model.PageviewTotals{}, nil
}

func (m *mockAnalyticsRepository) TopPages(ctx context.Context, f repository.Filter, limit int) ([]model.PageCount, error) {
	if m.topPagesFn != nil {
		return m.topPagesFn(ctx, f, limit)
	}
	return nil, nil
}

func (m *mockAnalyticsRepository) TrafficSourceCounts(ctx context.Context, f repository.Filter) (map[string]int64, error) {
	if m.sourcesFn != nil {
		return m.sourcesFn(ctx, f)
	}
	return nil, nil
}

func (m *mockAnalyticsRepository) RegionTotals(ctx context.Context, f repository.Filter) ([]model.RegionTotals, error) {
	if m.regionsFn != nil {
		return m.regionsFn(ctx, f)
	}
	return nil, nil
}

func (m *mockAnalyticsRepository) TopCountries(ctx context.Context, f repository.Filter, limit int) ([]model.CountryStats, error) {
	if m.countriesFn != nil {
		return m.countriesFn(ctx, f, limit)
	}
	return nil, nil
}

func (m *mockAnalyticsRepository) TopCities(ctx context.Context, f repository.Filter, limit int) ([]model.CityStats, error) {
	if m.citiesFn != nil {
		return m.citiesFn(ctx, f, limit)
	}
	return nil, nil
}

func (m *mockAnalyticsRepository) HeatmapPoints(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error) {
	if m.heatmapFn != nil {
		return m.heatmapFn(ctx, pageURL)
	}
	return nil, nil
}

type mockRealtimeRepository struct {
	countsFn func(ctx context.Context, now time.Time) (model.RealTimeCounts, error)
}

func (m *mockRealtimeRepository) RealTimeCounts(ctx context.Context, now time.Time) (model.RealTimeCounts, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx, now)
	}
	return model.RealTimeCounts{}, nil
}

// memoryStore keeps pageviews in memory and answers the summary totals
// from them, for round-trip tests through both services.
type memoryStore struct {
	mockEventRepository
	mockAnalyticsRepository

	mu        sync.Mutex
	pageviews []model.Pageview
	sources   []model.TrafficSource
}

func newMemoryStore() *memoryStore {
	s := &memoryStore{}
	s.pageviewFn = func(_ context.Context, pv *model.Pageview) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pageviews = append(s.pageviews, *pv)
		return nil
	}
	s.sourceFn = func(_ context.Context, src *model.TrafficSource) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sources = append(s.sources, *src)
		return nil
	}
	s.totalsFn = func(_ context.Context, f repository.Filter) (model.PageviewTotals, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var t model.PageviewTotals
		sessions := map[string]bool{}
		for _, pv := range s.pageviews {
			if !f.Window.Contains(pv.Timestamp) || !strings.Contains(pv.URL, f.URLContains) {
				continue
			}
			t.Pageviews++
			t.TotalTimeOnPage += int64(pv.TimeOnPage)
			if pv.Bounce {
				t.Bounces++
			}
			sessions[pv.SessionID] = true
		}
		t.UniqueVisitors = int64(len(sessions))
		return t, nil
	}
	s.sourcesFn = func(_ context.Context, f repository.Filter) (map[string]int64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		counts := map[string]int64{}
		for _, src := range s.sources {
			if f.Window.Contains(src.Timestamp) {
				counts[src.SourceType]++
			}
		}
		return counts, nil
	}
	return s
}

func testResolver(t *testing.T) geo.Resolver {
	t.Helper()
	r, err := geo.NewResolver(geo.Default(), "US")
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	return r
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
