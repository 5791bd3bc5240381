package repository

import (
	"context"

	"github.com/sifan077/PowerStats/internal/app/model"
	"gorm.io/gorm"
)

// AnalyticsRepository defines the read-only aggregate queries over the event store.
// Ties in ranked results are ordered by first-seen timestamp.
type AnalyticsRepository interface {
	PageviewTotals(ctx context.Context, f Filter) (model.PageviewTotals, error)
	TopPages(ctx context.Context, f Filter, limit int) ([]model.PageCount, error)
	TrafficSourceCounts(ctx context.Context, f Filter) (map[string]int64, error)
	RegionTotals(ctx context.Context, f Filter) ([]model.RegionTotals, error)
	TopCountries(ctx context.Context, f Filter, limit int) ([]model.CountryStats, error)
	TopCities(ctx context.Context, f Filter, limit int) ([]model.CityStats, error)
	HeatmapPoints(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error)
}

const (
	totalsColumns = `COUNT(*) AS pageviews,
		COUNT(DISTINCT session_id) AS unique_visitors,
		COALESCE(SUM(CASE WHEN bounce THEN 1 ELSE 0 END), 0) AS bounces,
		COALESCE(SUM(time_on_page), 0) AS total_time_on_page`
	firstSeenOrder = `MIN("timestamp") ASC`
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository returns a GORM-backed AnalyticsRepository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) pageviews(ctx context.Context, f Filter) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Pageview{}).Scopes(f.Scopes()...)
}

func (r *analyticsRepository) PageviewTotals(ctx context.Context, f Filter) (model.PageviewTotals, error) {
	var totals model.PageviewTotals
	err := r.pageviews(ctx, f).
		Select(totalsColumns).
		Scan(&totals).Error
	return totals, err
}

func (r *analyticsRepository) TopPages(ctx context.Context, f Filter, limit int) ([]model.PageCount, error) {
	var pages []model.PageCount
	err := r.pageviews(ctx, f).
		Select("url, COUNT(*) AS count").
		Group("url").
		Order("count DESC").
		Order(firstSeenOrder).
		Limit(limit).
		Scan(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *analyticsRepository) TrafficSourceCounts(ctx context.Context, f Filter) (map[string]int64, error) {
	var rows []struct {
		SourceType string
		Count      int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.TrafficSource{}).
		Scopes(f.RegionOnly().Scopes()...).
		Select("source_type, COUNT(*) AS count").
		Group("source_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SourceType] = row.Count
	}
	return counts, nil
}

func (r *analyticsRepository) RegionTotals(ctx context.Context, f Filter) ([]model.RegionTotals, error) {
	var rows []model.RegionTotals
	err := r.pageviews(ctx, f).
		Select("country_code, country_name, city, " + totalsColumns).
		Group("country_code, country_name, city").
		Order("pageviews DESC").
		Order(firstSeenOrder).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) TopCountries(ctx context.Context, f Filter, limit int) ([]model.CountryStats, error) {
	var rows []model.CountryStats
	err := r.pageviews(ctx, f).
		Select("country_code, country_name, COUNT(*) AS pageviews, COUNT(DISTINCT session_id) AS unique_visitors").
		Group("country_code, country_name").
		Order("pageviews DESC").
		Order(firstSeenOrder).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) TopCities(ctx context.Context, f Filter, limit int) ([]model.CityStats, error) {
	var rows []model.CityStats
	err := r.pageviews(ctx, f).
		Select("city, country_code, country_name, COUNT(*) AS pageviews, COUNT(DISTINCT session_id) AS unique_visitors").
		Group("city, country_code, country_name").
		Order("pageviews DESC").
		Order(firstSeenOrder).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) HeatmapPoints(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error) {
	var points []model.HeatmapPoint
	err := r.db.WithContext(ctx).
		Model(&model.HeatmapSample{}).
		Scopes(PageURLIs(pageURL)).
		Select("x_coord AS x, y_coord AS y, event_type, COUNT(*) AS intensity").
		Group("x_coord, y_coord, event_type").
		Order("intensity DESC").
		Order(firstSeenOrder).
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}
