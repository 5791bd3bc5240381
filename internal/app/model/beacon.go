package model

const (
	BeaconKindPageview      = "pageview"
	BeaconKindEvent         = "event"
	BeaconKindTrafficSource = "traffic_source"
	BeaconKindHeatmap       = "heatmap"
)

// Beacon is the stream envelope used when rows are persisted asynchronously.
// Exactly one payload field is set, matching Kind.
type Beacon struct {
	Kind          string         `json:"kind"`
	Pageview      *Pageview      `json:"pageview,omitempty"`
	Event         *Event         `json:"event,omitempty"`
	TrafficSource *TrafficSource `json:"traffic_source,omitempty"`
	Heatmap       *HeatmapSample `json:"heatmap,omitempty"`
}

const (
	BeaconStreamName     = "BEACONS"
	BeaconStreamSubject  = "beacons.rows"
	BeaconConsumerName   = "beacon-writer"
	BeaconStreamMaxBytes = 1024 * 1024 * 256 // 256MB
)
