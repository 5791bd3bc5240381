package model

import "time"

const (
	InteractionClick  = "click"
	InteractionScroll = "scroll"
	InteractionHover  = "hover"
)

// HeatmapSample is a single pointer or scroll interaction on a page.
type HeatmapSample struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	PageURL   string    `json:"page_url" gorm:"type:text;not null;index"`
	X         int       `json:"x" gorm:"column:x_coord;not null"`
	Y         int       `json:"y" gorm:"column:y_coord;not null"`
	EventType string    `json:"event_type" gorm:"size:16;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;index;not null"`
	Region    `gorm:"embedded"`
}

func (HeatmapSample) TableName() string { return "heatmap_samples" }

// HeatmapPoint is one distinct (x, y, event type) cell with its occurrence count.
type HeatmapPoint struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	EventType string `json:"event_type"`
	Intensity int64  `json:"intensity"`
}
