package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sifan077/PowerStats/internal/app/model"
)

// ClickHouseStore implements EventRepository, AnalyticsRepository and
// RealtimeRepository over a ClickHouse native connection.
type ClickHouseStore struct {
	conn clickhouse.Conn
}

// NewClickHouseStore wraps an open ClickHouse connection.
func NewClickHouseStore(conn clickhouse.Conn) *ClickHouseStore {
	return &ClickHouseStore{conn: conn}
}

var (
	_ EventRepository     = (*ClickHouseStore)(nil)
	_ AnalyticsRepository = (*ClickHouseStore)(nil)
	_ RealtimeRepository  = (*ClickHouseStore)(nil)
)

const regionColumnsDDL = `
		country_code LowCardinality(String),
		country_name LowCardinality(String),
		city LowCardinality(String),
		latitude Float64,
		longitude Float64`

var clickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS pageviews (
		id String,
		session_id String,
		url String,
		timestamp DateTime64(3, 'UTC'),
		user_agent String,
		ip_address String,
		referrer String,
		time_on_page Int64,
		bounce Bool,` + regionColumnsDDL + `
	) ENGINE = MergeTree ORDER BY (timestamp, id)`,
	`CREATE TABLE IF NOT EXISTS events (
		id String,
		session_id String,
		event_type LowCardinality(String),
		event_data String,
		timestamp DateTime64(3, 'UTC'),
		page_url String,` + regionColumnsDDL + `
	) ENGINE = MergeTree ORDER BY (timestamp, id)`,
	`CREATE TABLE IF NOT EXISTS traffic_sources (
		id String,
		session_id String,
		source_type LowCardinality(String),
		source_name String,
		campaign String,
		medium String,
		term String,
		timestamp DateTime64(3, 'UTC'),` + regionColumnsDDL + `
	) ENGINE = MergeTree ORDER BY (timestamp, id)`,
	`CREATE TABLE IF NOT EXISTS heatmap_samples (
		id String,
		page_url String,
		x_coord Int32,
		y_coord Int32,
		event_type LowCardinality(String),
		timestamp DateTime64(3, 'UTC'),` + regionColumnsDDL + `
	) ENGINE = MergeTree ORDER BY (page_url, timestamp, id)`,
}

// EnsureSchema creates the event tables when they do not exist.
func (s *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range clickHouseSchema {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create clickhouse table: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) insert(ctx context.Context, query string, args ...interface{}) error {
	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	if err := batch.Append(args...); err != nil {
		batch.Abort()
		return fmt.Errorf("failed to append row: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func regionArgs(r model.Region) []interface{} {
	return []interface{}{r.CountryCode, r.CountryName, r.City, r.Latitude, r.Longitude}
}

func (s *ClickHouseStore) CreatePageview(ctx context.Context, pv *model.Pageview) error {
	args := append([]interface{}{
		pv.ID, pv.SessionID, pv.URL, pv.Timestamp, pv.UserAgent, pv.IPAddress,
		pv.Referrer, int64(pv.TimeOnPage), pv.Bounce,
	}, regionArgs(pv.Region)...)
	return s.insert(ctx, `INSERT INTO pageviews (
		id, session_id, url, timestamp, user_agent, ip_address, referrer, time_on_page, bounce,
		country_code, country_name, city, latitude, longitude)`, args...)
}

func (s *ClickHouseStore) CreateEvent(ctx context.Context, ev *model.Event) error {
	args := append([]interface{}{
		ev.ID, ev.SessionID, ev.EventType, string(ev.EventData), ev.Timestamp, ev.PageURL,
	}, regionArgs(ev.Region)...)
	return s.insert(ctx, `INSERT INTO events (
		id, session_id, event_type, event_data, timestamp, page_url,
		country_code, country_name, city, latitude, longitude)`, args...)
}

func (s *ClickHouseStore) CreateTrafficSource(ctx context.Context, src *model.TrafficSource) error {
	args := append([]interface{}{
		src.ID, src.SessionID, src.SourceType, src.SourceName, src.Campaign, src.Medium, src.Term, src.Timestamp,
	}, regionArgs(src.Region)...)
	return s.insert(ctx, `INSERT INTO traffic_sources (
		id, session_id, source_type, source_name, campaign, medium, term, timestamp,
		country_code, country_name, city, latitude, longitude)`, args...)
}

func (s *ClickHouseStore) CreateHeatmapSample(ctx context.Context, sample *model.HeatmapSample) error {
	args := append([]interface{}{
		sample.ID, sample.PageURL, int32(sample.X), int32(sample.Y), sample.EventType, sample.Timestamp,
	}, regionArgs(sample.Region)...)
	return s.insert(ctx, `INSERT INTO heatmap_samples (
		id, page_url, x_coord, y_coord, event_type, timestamp,
		country_code, country_name, city, latitude, longitude)`, args...)
}

// whereClause renders f as a ClickHouse WHERE clause with positional binds.
// The url predicate is a literal substring match and needs no escaping.
func whereClause(f Filter) (string, []interface{}) {
	conds := []string{"timestamp >= ?", "timestamp < ?"}
	args := []interface{}{f.Window.Start, f.Window.End}

	if f.URLContains != "" {
		conds = append(conds, "position(url, ?) > 0")
		args = append(args, f.URLContains)
	}
	if f.CountryCode != "" {
		conds = append(conds, "country_code = ?")
		args = append(args, strings.ToUpper(f.CountryCode))
	}
	if f.City != "" {
		conds = append(conds, "city = ?")
		args = append(args, f.City)
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

const chTotalsColumns = `toInt64(count()) AS pageviews,
		toInt64(uniqExact(session_id)) AS unique_visitors,
		toInt64(countIf(bounce)) AS bounces,
		toInt64(sum(time_on_page)) AS total_time_on_page`

func (s *ClickHouseStore) PageviewTotals(ctx context.Context, f Filter) (model.PageviewTotals, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf(`SELECT %s FROM pageviews %s`, chTotalsColumns, where)

	var t model.PageviewTotals
	err := s.conn.QueryRow(ctx, query, args...).
		Scan(&t.Pageviews, &t.UniqueVisitors, &t.Bounces, &t.TotalTimeOnPage)
	if err != nil {
		return t, fmt.Errorf("failed to query pageview totals: %w", err)
	}
	return t, nil
}

func (s *ClickHouseStore) TopPages(ctx context.Context, f Filter, limit int) ([]model.PageCount, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf(`
		SELECT url, toInt64(count()) AS cnt
		FROM pageviews
		%s
		GROUP BY url
		ORDER BY cnt DESC, min(timestamp) ASC
		LIMIT ?`, where)

	rows, err := s.conn.Query(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	var pages []model.PageCount
	for rows.Next() {
		var p model.PageCount
		if err := rows.Scan(&p.URL, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *ClickHouseStore) TrafficSourceCounts(ctx context.Context, f Filter) (map[string]int64, error) {
	where, args := whereClause(f.RegionOnly())
	query := fmt.Sprintf(`
		SELECT source_type, toInt64(count())
		FROM traffic_sources
		%s
		GROUP BY source_type`, where)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic sources: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			sourceType string
			count      int64
		)
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan traffic source: %w", err)
		}
		counts[sourceType] = count
	}
	return counts, rows.Err()
}

func (s *ClickHouseStore) RegionTotals(ctx context.Context, f Filter) ([]model.RegionTotals, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf(`
		SELECT country_code, country_name, city, %s
		FROM pageviews
		%s
		GROUP BY country_code, country_name, city
		ORDER BY pageviews DESC, min(timestamp) ASC`, chTotalsColumns, where)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query region totals: %w", err)
	}
	defer rows.Close()

	var out []model.RegionTotals
	for rows.Next() {
		var r model.RegionTotals
		if err := rows.Scan(&r.CountryCode, &r.CountryName, &r.City,
			&r.Pageviews, &r.UniqueVisitors, &r.Bounces, &r.TotalTimeOnPage); err != nil {
			return nil, fmt.Errorf("failed to scan region totals: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) TopCountries(ctx context.Context, f Filter, limit int) ([]model.CountryStats, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf(`
		SELECT country_code, country_name, toInt64(count()) AS pageviews, toInt64(uniqExact(session_id))
		FROM pageviews
		%s
		GROUP BY country_code, country_name
		ORDER BY pageviews DESC, min(timestamp) ASC
		LIMIT ?`, where)

	rows, err := s.conn.Query(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top countries: %w", err)
	}
	defer rows.Close()

	var out []model.CountryStats
	for rows.Next() {
		var c model.CountryStats
		if err := rows.Scan(&c.CountryCode, &c.CountryName, &c.Pageviews, &c.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) TopCities(ctx context.Context, f Filter, limit int) ([]model.CityStats, error) {
	where, args := whereClause(f)
	query := fmt.Sprintf(`
		SELECT city, country_code, country_name, toInt64(count()) AS pageviews, toInt64(uniqExact(session_id))
		FROM pageviews
		%s
		GROUP BY city, country_code, country_name
		ORDER BY pageviews DESC, min(timestamp) ASC
		LIMIT ?`, where)

	rows, err := s.conn.Query(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top cities: %w", err)
	}
	defer rows.Close()

	var out []model.CityStats
	for rows.Next() {
		var c model.CityStats
		if err := rows.Scan(&c.City, &c.CountryCode, &c.CountryName, &c.Pageviews, &c.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) HeatmapPoints(ctx context.Context, pageURL string) ([]model.HeatmapPoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT x_coord, y_coord, event_type, toInt64(count()) AS intensity
		FROM heatmap_samples
		WHERE page_url = ?
		GROUP BY x_coord, y_coord, event_type
		ORDER BY intensity DESC, min(timestamp) ASC`, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap: %w", err)
	}
	defer rows.Close()

	var points []model.HeatmapPoint
	for rows.Next() {
		var (
			x, y int32
			p    model.HeatmapPoint
		)
		if err := rows.Scan(&x, &y, &p.EventType, &p.Intensity); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap point: %w", err)
		}
		p.X, p.Y = int(x), int(y)
		points = append(points, p)
	}
	return points, rows.Err()
}

const chRealtimeQuery = `
		SELECT
			toInt64(uniqExactIf(session_id, timestamp >= ?)),
			toInt64(count()),
			toInt64(countIf(timestamp >= ?))
		FROM pageviews
		WHERE timestamp >= ? AND timestamp <= ?`

// chRealtimeArgs follows the placeholder order of chRealtimeQuery.
func chRealtimeArgs(now time.Time) []interface{} {
	return []interface{}{
		now.Add(-ActiveSessionWindow),
		now.Add(-MinuteWindow),
		now.Add(-HourlyWindow),
		now,
	}
}

func (s *ClickHouseStore) RealTimeCounts(ctx context.Context, now time.Time) (model.RealTimeCounts, error) {
	var counts model.RealTimeCounts
	err := s.conn.QueryRow(ctx, chRealtimeQuery, chRealtimeArgs(now)...).
		Scan(&counts.ActiveSessions, &counts.PageviewsLastHour, &counts.PageviewsLastMin)
	if err != nil {
		return counts, fmt.Errorf("failed to query realtime counts: %w", err)
	}
	return counts, nil
}
