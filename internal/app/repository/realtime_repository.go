package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/PowerStats/internal/app/model"
)

const (
	ActiveSessionWindow = 5 * time.Minute
	HourlyWindow        = time.Hour
	MinuteWindow        = time.Minute
)

// RealtimeRepository answers the "last few minutes" counters.
type RealtimeRepository interface {
	RealTimeCounts(ctx context.Context, now time.Time) (model.RealTimeCounts, error)
}

type pgxRealtimeRepository struct {
	pool *pgxpool.Pool
}

// NewRealtimeRepository returns a RealtimeRepository that queries Postgres through pgx.
func NewRealtimeRepository(pool *pgxpool.Pool) RealtimeRepository {
	return &pgxRealtimeRepository{pool: pool}
}

// realtimeQuery binds $1 = hour start, $2 = active-session start,
// $3 = minute start, $4 = now.
const realtimeQuery = `
	SELECT
		COUNT(DISTINCT session_id) FILTER (WHERE "timestamp" >= $2),
		COUNT(*),
		COUNT(*) FILTER (WHERE "timestamp" >= $3)
	FROM pageviews
	WHERE "timestamp" >= $1 AND "timestamp" <= $4
`

func realtimeArgs(now time.Time) []interface{} {
	return []interface{}{
		now.Add(-HourlyWindow),
		now.Add(-ActiveSessionWindow),
		now.Add(-MinuteWindow),
		now,
	}
}

func (r *pgxRealtimeRepository) RealTimeCounts(ctx context.Context, now time.Time) (model.RealTimeCounts, error) {
	var counts model.RealTimeCounts
	err := r.pool.QueryRow(ctx, realtimeQuery, realtimeArgs(now)...).
		Scan(&counts.ActiveSessions, &counts.PageviewsLastHour, &counts.PageviewsLastMin)
	return counts, err
}
