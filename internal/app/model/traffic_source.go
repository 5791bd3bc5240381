package model

import "time"

const (
	SourceDirect   = "Direct"
	SourceOrganic  = "Organic"
	SourceReferral = "Referral"
	SourceSocial   = "Social"
	SourcePaid     = "Paid"
)

// SourceTypes lists every traffic source type in reporting order.
var SourceTypes = []string{SourceDirect, SourceOrganic, SourceReferral, SourceSocial, SourcePaid}

// TrafficSource records where a session came from.
type TrafficSource struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID  string    `json:"session_id" gorm:"size:64;index"`
	SourceType string    `json:"source_type" gorm:"size:16;not null;index"`
	SourceName string    `json:"source_name" gorm:"size:255"`
	Campaign   string    `json:"campaign" gorm:"size:255"`
	Medium     string    `json:"medium" gorm:"size:64"`
	Term       string    `json:"term" gorm:"size:255"`
	Timestamp  time.Time `json:"timestamp" gorm:"column:timestamp;index;not null"`
	Region     `gorm:"embedded"`
}

func (TrafficSource) TableName() string { return "traffic_sources" }
