package service

import (
	"context"
	"strings"
	"time"

	"github.com/sifan077/PowerStats/internal/app/geo"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/repository"
	"github.com/sifan077/PowerStats/internal/infra/logger"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQueryTimeout = 10 * time.Second

	TopPagesLimit     = 10
	TopCountriesLimit = 10
	TopCitiesLimit    = 15
)

// AnalyticsService answers the read-only aggregate queries.
type AnalyticsService interface {
	Summary(ctx context.Context, q SummaryQuery) (*model.Summary, error)
	RealTime(ctx context.Context) (*model.RealTime, error)
	Regional(ctx context.Context, q RegionalQuery) (*model.RegionalAnalytics, error)
	AvailableRegions() geo.AvailableRegions
	Heatmap(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error)
	ConversionFunnel(name string) model.Funnel
	SEOMetrics(url string) model.SEOMetrics
}

// SummaryQuery selects the window and an optional URL substring.
type SummaryQuery struct {
	URL   string
	Range string
}

// RegionalQuery selects the window and optional exact region filters.
type RegionalQuery struct {
	Range       string
	CountryCode string
	City        string
}

// AnalyticsDeps bundles the collaborators of the analytics service.
type AnalyticsDeps struct {
	Logger       *zap.Logger
	Store        repository.AnalyticsRepository
	Realtime     repository.RealtimeRepository
	Catalog      *geo.Catalog
	Metrics      *infraPrometheus.Metrics
	QueryTimeout time.Duration
	Now          func() time.Time
}

type analyticsService struct {
	logger       *zap.Logger
	store        repository.AnalyticsRepository
	realtime     repository.RealtimeRepository
	catalog      *geo.Catalog
	metrics      *infraPrometheus.Metrics
	queryTimeout time.Duration
	now          func() time.Time
}

// NewAnalyticsService returns an AnalyticsService backed by the given repositories.
func NewAnalyticsService(deps AnalyticsDeps) AnalyticsService {
	s := &analyticsService{
		logger:       logger.OrNop(deps.Logger),
		store:        deps.Store,
		realtime:     deps.Realtime,
		catalog:      deps.Catalog,
		metrics:      deps.Metrics,
		queryTimeout: deps.QueryTimeout,
		now:          deps.Now,
	}
	if s.catalog == nil {
		s.catalog = geo.Default()
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = defaultQueryTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *analyticsService) fail(op string, err error) error {
	s.logger.Error("analytics query failed", zap.String("op", op), zap.Error(err))
	return storageError(op, err)
}

func deviceBreakdown() map[string]int64 {
	return map[string]int64{"desktop": 0, "mobile": 0, "tablet": 0}
}

// sourceCounts reports every known source type, zero when absent.
func sourceCounts(counts map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(model.SourceTypes)+len(counts))
	for _, t := range model.SourceTypes {
		out[t] = 0
	}
	for t, n := range counts {
		out[t] = n
	}
	return out
}

func (s *analyticsService) Summary(ctx context.Context, q SummaryQuery) (summary *model.Summary, err error) {
	defer func(start time.Time) { s.metrics.ObserveQuery("summary", start, err) }(time.Now())

	rangeKey := NormalizeRange(q.Range)
	filter := repository.Filter{
		Window:      TimeWindow(rangeKey, s.now()),
		URLContains: q.URL,
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var (
		totals  model.PageviewTotals
		sources map[string]int64
		pages   []model.PageCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.store.PageviewTotals(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		// Sources cover the whole window regardless of the URL filter.
		sources, err = s.store.TrafficSourceCounts(gctx, repository.Filter{Window: filter.Window})
		return err
	})
	g.Go(func() (err error) {
		pages, err = s.store.TopPages(gctx, filter, TopPagesLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail("query summary", err)
	}

	if pages == nil {
		pages = []model.PageCount{}
	}
	return &model.Summary{
		Pageviews:          totals.Pageviews,
		UniqueVisitors:     totals.UniqueVisitors,
		BounceRate:         totals.BounceRate(),
		AvgSessionDuration: totals.AvgTimeOnPage(),
		TrafficSources:     sourceCounts(sources),
		TopPages:           pages,
		DeviceBreakdown:    deviceBreakdown(),
		TimeRange:          rangeKey,
	}, nil
}

func (s *analyticsService) RealTime(ctx context.Context) (rt *model.RealTime, err error) {
	defer func(start time.Time) { s.metrics.ObserveQuery("realtime", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := s.now()
	counts, err := s.realtime.RealTimeCounts(ctx, now)
	if err != nil {
		return nil, s.fail("query realtime", err)
	}

	return &model.RealTime{
		ActiveSessions:     counts.ActiveSessions,
		HourlyPageviews:    counts.PageviewsLastHour,
		PageviewsPerMinute: counts.PageviewsLastMin,
		Timestamp:          now,
	}, nil
}

func (s *analyticsService) Regional(ctx context.Context, q RegionalQuery) (out *model.RegionalAnalytics, err error) {
	defer func(start time.Time) { s.metrics.ObserveQuery("regional", start, err) }(time.Now())

	rangeKey := NormalizeRange(q.Range)
	filter := repository.Filter{
		Window:      TimeWindow(rangeKey, s.now()),
		CountryCode: strings.ToUpper(strings.TrimSpace(q.CountryCode)),
		City:        strings.TrimSpace(q.City),
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var (
		regions   []model.RegionTotals
		countries []model.CountryStats
		cities    []model.CityStats
		sources   map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		regions, err = s.store.RegionTotals(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		countries, err = s.store.TopCountries(gctx, filter, TopCountriesLimit)
		return err
	})
	g.Go(func() (err error) {
		cities, err = s.store.TopCities(gctx, filter, TopCitiesLimit)
		return err
	})
	g.Go(func() (err error) {
		sources, err = s.store.TrafficSourceCounts(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail("query regional", err)
	}

	rows := make([]model.RegionStats, 0, len(regions))
	for _, r := range regions {
		rows = append(rows, model.RegionStats{
			CountryCode:    r.CountryCode,
			CountryName:    r.CountryName,
			City:           r.City,
			Pageviews:      r.Pageviews,
			UniqueVisitors: r.UniqueVisitors,
			AvgDuration:    r.AvgTimeOnPage(),
			BounceRate:     r.BounceRate(),
		})
	}
	if countries == nil {
		countries = []model.CountryStats{}
	}
	if cities == nil {
		cities = []model.CityStats{}
	}

	return &model.RegionalAnalytics{
		RegionalData:    rows,
		TopCountries:    countries,
		TopCities:       cities,
		TrafficSources:  sourceCounts(sources),
		DeviceBreakdown: deviceBreakdown(),
		TimeRange:       rangeKey,
		CountryCode:     filter.CountryCode,
		City:            filter.City,
	}, nil
}

func (s *analyticsService) AvailableRegions() geo.AvailableRegions {
	return s.catalog.Regions()
}

func (s *analyticsService) Heatmap(ctx context.Context, pageURL string) (points []model.HeatmapPoint, err error) {
	defer func(start time.Time) { s.metrics.ObserveQuery("heatmap", start, err) }(time.Now())

	if pageURL == "" {
		return nil, missingField("url")
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	points, err = s.store.HeatmapPoints(ctx, pageURL)
	if err != nil {
		return nil, s.fail("query heatmap", err)
	}
	if points == nil {
		points = []model.HeatmapPoint{}
	}
	return points, nil
}

var funnelSteps = []string{"Landing", "Product View", "Add to Cart", "Checkout", "Purchase"}

// ConversionFunnel returns a fixed funnel shape with zero counts.
func (s *analyticsService) ConversionFunnel(name string) model.Funnel {
	steps := make([]model.FunnelStep, 0, len(funnelSteps))
	for _, step := range funnelSteps {
		steps = append(steps, model.FunnelStep{Name: step})
	}
	return model.Funnel{Name: name, Steps: steps}
}

// SEOMetrics returns a zeroed report for url.
func (s *analyticsService) SEOMetrics(url string) model.SEOMetrics {
	return model.SEOMetrics{URL: url}
}
