package session

import (
	"testing"
	"time"
)

func TestDeriveID_StableWithinHour(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC)

	first := DeriveID("203.0.113.7", "Mozilla/5.0", base)
	later := DeriveID("203.0.113.7", "Mozilla/5.0", base.Add(59*time.Minute))

	if first != later {
		t.Fatalf("expected same id within an hour bucket, got %s and %s", first, later)
	}
	if len(first) != IDLength {
		t.Fatalf("expected id length %d, got %d", IDLength, len(first))
	}
}

func TestDeriveID_ChangesWithHourBucket(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 59, 59, 0, time.UTC)

	before := DeriveID("203.0.113.7", "Mozilla/5.0", base)
	after := DeriveID("203.0.113.7", "Mozilla/5.0", base.Add(2*time.Second))

	if before == after {
		t.Fatal("expected a new id once the hour bucket advances")
	}
}

func TestDeriveID_DistinguishesVisitors(t *testing.T) {
	now := time.Now()
	cases := [][2]string{
		{"10.0.0.1", "agent"},
		{"10.0.0.2", "agent"},
		{"10.0.0.1", "other-agent"},
		{"10.0.0.1a", "gent"},
	}
	seen := make(map[string]bool)
	for _, c := range cases {
		id := DeriveID(c[0], c[1], now)
		if seen[id] {
			t.Fatalf("collision for %v", c)
		}
		seen[id] = true
	}
}

func TestDeriveID_EmptyInputs(t *testing.T) {
	id := DeriveID("", "", time.Unix(0, 0))
	if len(id) != IDLength {
		t.Fatalf("expected id for empty inputs, got %q", id)
	}
}

func TestHourBucket(t *testing.T) {
	if got := HourBucket(time.Unix(7199, 0)); got != 1 {
		t.Fatalf("expected bucket 1, got %d", got)
	}
	if got := HourBucket(time.Unix(7200, 0)); got != 2 {
		t.Fatalf("expected bucket 2, got %d", got)
	}
}
