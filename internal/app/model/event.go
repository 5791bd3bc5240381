package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a free-form custom event emitted by the client.
type Event struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	SessionID string         `json:"session_id" gorm:"size:64;index"`
	EventType string         `json:"event_type" gorm:"size:128;not null;index"`
	EventData datatypes.JSON `json:"event_data,omitempty" gorm:"type:jsonb"`
	Timestamp time.Time      `json:"timestamp" gorm:"column:timestamp;index;not null"`
	PageURL   string         `json:"page_url" gorm:"type:text"`
	Region    `gorm:"embedded"`
}

func (Event) TableName() string { return "events" }
