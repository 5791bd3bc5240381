package service

import (
	"time"

	"github.com/sifan077/PowerStats/internal/app/model"
)

const (
	Range24h     = "24h"
	Range7d      = "7d"
	Range30d     = "30d"
	DefaultRange = Range24h
)

var rangeDurations = map[string]time.Duration{
	Range24h: 24 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
	Range30d: 30 * 24 * time.Hour,
}

// NormalizeRange returns rangeKey if it is known, else DefaultRange.
func NormalizeRange(rangeKey string) string {
	if _, ok := rangeDurations[rangeKey]; ok {
		return rangeKey
	}
	return DefaultRange
}

// TimeWindow maps a range key to the half-open window ending at now.
func TimeWindow(rangeKey string, now time.Time) model.Window {
	d := rangeDurations[NormalizeRange(rangeKey)]
	return model.Window{Start: now.Add(-d), End: now}
}
