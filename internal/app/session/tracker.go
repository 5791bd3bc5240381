package session

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sifan077/PowerStats/internal/app/model"
)

const (
	defaultMaxEntries      = 100000
	defaultTTL             = 30 * time.Minute
	defaultExpectedPerHour = 100000
	seenFalsePositive      = 1e-6
	minSeenCapacity        = 1024
)

// TrackerConfig bounds the accumulator map.
type TrackerConfig struct {
	MaxEntries int
	// TTL is counted from the last pageview of a session.
	TTL time.Duration
	// ExpectedPerHour sizes the filter of session ids seen in one hour bucket.
	// The filter is reset whenever it holds this many ids.
	ExpectedPerHour int
}

// Visit is one pageview applied to a session accumulator.
type Visit struct {
	SessionID  string
	URL        string
	TimeOnPage int
	At         time.Time
}

// Tracker owns the session accumulators. Entries are evicted when idle for
// longer than the TTL or when the map is full (least recently active first).
//
// A bloom filter remembers ids seen during the current hour bucket so that a
// session whose accumulator was evicted is not reported as new again. Once the
// filter reaches its capacity it is reset, so a full filter never hides a new
// session; at worst an evicted session is reported as new a second time.
type Tracker struct {
	mu        sync.Mutex
	cache     *expirable.LRU[string, *model.Session]
	seen      *bloom.BloomFilter
	seenCap   uint
	seenCount uint
	bucket    int64
}

// NewTracker builds a tracker, applying defaults to zero config values.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.ExpectedPerHour <= 0 {
		cfg.ExpectedPerHour = defaultExpectedPerHour
	}
	capacity := uint(max(cfg.ExpectedPerHour, minSeenCapacity))
	return &Tracker{
		cache:   expirable.NewLRU[string, *model.Session](cfg.MaxEntries, nil, cfg.TTL),
		seen:    bloom.NewWithEstimates(capacity, seenFalsePositive),
		seenCap: capacity,
	}
}

func (t *Tracker) resetSeen() {
	t.seen.ClearAll()
	t.seenCount = 0
}

// Touch applies a visit and returns a snapshot of the updated session plus
// whether this visit started a new session.
func (t *Tracker) Touch(v Visit) (model.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Late visits from an earlier hour must not roll the bucket back.
	if bucket := HourBucket(v.At); bucket > t.bucket {
		t.resetSeen()
		t.bucket = bucket
	}

	isNew := false
	sess, ok := t.cache.Get(v.SessionID)
	if !ok {
		if t.seenCount >= t.seenCap {
			t.resetSeen()
		}
		isNew = !t.seen.TestAndAddString(v.SessionID)
		if isNew {
			t.seenCount++
		}
		sess = &model.Session{ID: v.SessionID, StartedAt: v.At}
	}

	sess.PageCount++
	sess.LastActivity = v.At
	sess.Pages = append(sess.Pages, model.PageVisit{
		URL:        v.URL,
		TimeOnPage: v.TimeOnPage,
		VisitedAt:  v.At,
	})

	// Re-adding refreshes the entry's expiry.
	t.cache.Add(v.SessionID, sess)
	return sess.Clone(), isNew
}

// Get returns a snapshot of a live session.
func (t *Tracker) Get(id string) (model.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.cache.Peek(id)
	if !ok {
		return model.Session{}, false
	}
	return sess.Clone(), true
}

// Len reports the number of live accumulators.
func (t *Tracker) Len() int {
	return t.cache.Len()
}

// Purge drops every accumulator.
func (t *Tracker) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Purge()
	t.resetSeen()
}
