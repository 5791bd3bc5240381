package model

import "time"

// PageviewTotals are the raw sums a window query returns; rates are derived from them.
type PageviewTotals struct {
	Pageviews       int64
	UniqueVisitors  int64
	Bounces         int64
	TotalTimeOnPage int64
}

// BounceRate returns bounces as a percentage of pageviews, or 0 for an empty window.
func (t PageviewTotals) BounceRate() float64 {
	return percentage(t.Bounces, t.Pageviews)
}

// AvgTimeOnPage returns mean dwell time in seconds, or 0 for an empty window.
func (t PageviewTotals) AvgTimeOnPage() float64 {
	if t.Pageviews == 0 {
		return 0
	}
	return float64(t.TotalTimeOnPage) / float64(t.Pageviews)
}

func percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// PageCount is a URL with its pageview count.
type PageCount struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// Summary is the response of the summary query.
type Summary struct {
	Pageviews          int64            `json:"pageviews"`
	UniqueVisitors     int64            `json:"unique_visitors"`
	BounceRate         float64          `json:"bounce_rate"`
	AvgSessionDuration float64          `json:"avg_session_duration"`
	TrafficSources     map[string]int64 `json:"traffic_sources"`
	TopPages           []PageCount      `json:"top_pages"`
	DeviceBreakdown    map[string]int64 `json:"device_breakdown"`
	TimeRange          string           `json:"time_range"`
}

// RealTimeCounts are the raw counters behind the real-time snapshot.
type RealTimeCounts struct {
	ActiveSessions    int64
	PageviewsLastHour int64
	PageviewsLastMin  int64
}

// RealTime is the response of the real-time query.
type RealTime struct {
	ActiveSessions     int64     `json:"active_sessions"`
	HourlyPageviews    int64     `json:"hourly_pageviews"`
	PageviewsPerMinute int64     `json:"pageviews_per_minute"`
	Timestamp          time.Time `json:"timestamp"`
}

// RegionTotals are per (country, city) sums returned by the store.
type RegionTotals struct {
	CountryCode string
	CountryName string
	City        string
	PageviewTotals
}

// RegionStats is one row of the regional rollup.
type RegionStats struct {
	CountryCode    string  `json:"country_code"`
	CountryName    string  `json:"country_name"`
	City           string  `json:"city"`
	Pageviews      int64   `json:"pageviews"`
	UniqueVisitors int64   `json:"unique_visitors"`
	AvgDuration    float64 `json:"avg_duration"`
	BounceRate     float64 `json:"bounce_rate"`
}

// CountryStats is one entry of the top-countries list.
type CountryStats struct {
	CountryCode    string `json:"country_code"`
	CountryName    string `json:"country_name"`
	Pageviews      int64  `json:"pageviews"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// CityStats is one entry of the top-cities list.
type CityStats struct {
	City           string `json:"city"`
	CountryCode    string `json:"country_code"`
	CountryName    string `json:"country_name"`
	Pageviews      int64  `json:"pageviews"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// RegionalAnalytics is the response of the regional query.
type RegionalAnalytics struct {
	RegionalData    []RegionStats    `json:"regional_data"`
	TopCountries    []CountryStats   `json:"top_countries"`
	TopCities       []CityStats      `json:"top_cities"`
	TrafficSources  map[string]int64 `json:"traffic_sources"`
	DeviceBreakdown map[string]int64 `json:"device_breakdown"`
	TimeRange       string           `json:"time_range"`
	CountryCode     string           `json:"country_code,omitempty"`
	City            string           `json:"city,omitempty"`
}

// FunnelStep is a fixed funnel stage.
type FunnelStep struct {
	Name           string  `json:"name"`
	Visitors       int64   `json:"visitors"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Funnel is a static conversion funnel description.
type Funnel struct {
	Name  string       `json:"name"`
	Steps []FunnelStep `json:"steps"`
}

// SEOMetrics is a zeroed SEO report for a URL.
type SEOMetrics struct {
	URL             string  `json:"url"`
	OrganicTraffic  int64   `json:"organic_traffic"`
	Keywords        int64   `json:"keywords"`
	Backlinks       int64   `json:"backlinks"`
	DomainAuthority float64 `json:"domain_authority"`
	PageSpeed       float64 `json:"page_speed"`
}
