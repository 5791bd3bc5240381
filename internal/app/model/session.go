package model

import "time"

// PageVisit is one entry in a session's ordered page list.
type PageVisit struct {
	URL        string    `json:"url"`
	TimeOnPage int       `json:"time_on_page"`
	VisitedAt  time.Time `json:"visited_at"`
}

// Session is the in-memory accumulator for a derived session id.
type Session struct {
	ID           string      `json:"session_id"`
	StartedAt    time.Time   `json:"started_at"`
	LastActivity time.Time   `json:"last_activity"`
	PageCount    int         `json:"page_count"`
	Pages        []PageVisit `json:"pages"`
}

// Clone returns a copy that shares no memory with s.
func (s *Session) Clone() Session {
	out := *s
	out.Pages = append([]PageVisit(nil), s.Pages...)
	return out
}
