package repository

import (
	"strings"
	"testing"
	"time"
)

func TestRealtimeArgs_MatchPlaceholders(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	args := realtimeArgs(now)

	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	want := []time.Time{
		now.Add(-time.Hour),       // $1 outer window
		now.Add(-5 * time.Minute), // $2 active sessions
		now.Add(-time.Minute),     // $3 last minute
		now,                       // $4
	}
	for i, w := range want {
		if got := args[i].(time.Time); !got.Equal(w) {
			t.Fatalf("arg $%d: expected %s, got %s", i+1, w, got)
		}
	}

	if !strings.Contains(realtimeQuery, `COUNT(DISTINCT session_id) FILTER (WHERE "timestamp" >= $2)`) {
		t.Fatal("active sessions must be bounded by $2")
	}
	if !strings.Contains(realtimeQuery, `COUNT(*) FILTER (WHERE "timestamp" >= $3)`) {
		t.Fatal("per-minute count must be bounded by $3")
	}
	if !strings.Contains(realtimeQuery, `WHERE "timestamp" >= $1 AND "timestamp" <= $4`) {
		t.Fatal("outer window must be $1..$4")
	}
}

func TestChRealtimeArgs_MatchPlaceholders(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	args := chRealtimeArgs(now)

	if n := strings.Count(chRealtimeQuery, "?"); n != len(args) {
		t.Fatalf("query has %d placeholders for %d args", n, len(args))
	}
	want := []time.Time{
		now.Add(-5 * time.Minute), // uniqExactIf
		now.Add(-time.Minute),     // countIf
		now.Add(-time.Hour),       // outer window start
		now,                       // outer window end
	}
	for i, w := range want {
		if got := args[i].(time.Time); !got.Equal(w) {
			t.Fatalf("arg %d: expected %s, got %s", i+1, w, got)
		}
	}

	active := strings.Index(chRealtimeQuery, "uniqExactIf(session_id, timestamp >= ?)")
	minute := strings.Index(chRealtimeQuery, "countIf(timestamp >= ?)")
	window := strings.Index(chRealtimeQuery, "WHERE timestamp >= ? AND timestamp <= ?")
	if active < 0 || minute < 0 || window < 0 || !(active < minute && minute < window) {
		t.Fatalf("unexpected placeholder layout: active=%d minute=%d window=%d", active, minute, window)
	}
}
