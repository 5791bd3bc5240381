package model

import "time"

// Pageview is one tracked page load. Rows are append-only.
type Pageview struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID  string    `json:"session_id" gorm:"size:64;index"`
	URL        string    `json:"url" gorm:"type:text;not null"`
	Timestamp  time.Time `json:"timestamp" gorm:"column:timestamp;index;not null"`
	UserAgent  string    `json:"user_agent" gorm:"type:text"`
	IPAddress  string    `json:"ip_address" gorm:"size:64"`
	Referrer   string    `json:"referrer" gorm:"type:text"`
	TimeOnPage int       `json:"time_on_page" gorm:"not null"`
	Bounce     bool      `json:"bounce" gorm:"not null"`
	Region     `gorm:"embedded"`
}

func (Pageview) TableName() string { return "pageviews" }
