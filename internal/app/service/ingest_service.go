package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/PowerStats/internal/app/geo"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/repository"
	"github.com/sifan077/PowerStats/internal/app/session"
	"github.com/sifan077/PowerStats/internal/infra/logger"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultWriteTimeout = 5 * time.Second

// IngestService validates beacons and appends them to the event store.
type IngestService interface {
	TrackPageview(ctx context.Context, input PageviewInput) (*PageviewResult, error)
	TrackEvent(ctx context.Context, input EventInput) error
	TrackHeatmapSample(ctx context.Context, input HeatmapInput) error
}

// PageviewInput is a pageview beacon. Nil pointers take their defaults.
type PageviewInput struct {
	URL        string
	IPAddress  string
	UserAgent  string
	Referrer   string
	TimeOnPage *int
	Bounce     *bool
	Region     model.RegionHint
}

// PageviewResult reports the derived session.
type PageviewResult struct {
	SessionID  string `json:"session_id"`
	NewSession bool   `json:"new_session"`
}

// EventInput is a custom event beacon. SessionID is derived from the
// client address and agent when empty.
type EventInput struct {
	EventType string
	SessionID string
	EventData any
	PageURL   string
	IPAddress string
	UserAgent string
	Region    model.RegionHint
}

// HeatmapInput is a pointer or scroll sample. Coordinates are pointers so a
// missing coordinate is distinguishable from zero.
type HeatmapInput struct {
	PageURL   string
	X         *int
	Y         *int
	EventType string
	Region    model.RegionHint
}

// IngestDeps bundles the collaborators of the ingest service.
type IngestDeps struct {
	Logger       *zap.Logger
	Events       repository.EventRepository
	Sessions     *session.Tracker
	Regions      geo.Resolver
	Metrics      *infraPrometheus.Metrics
	WriteTimeout time.Duration
	Now          func() time.Time
}

type ingestService struct {
	logger       *zap.Logger
	events       repository.EventRepository
	sessions     *session.Tracker
	regions      geo.Resolver
	metrics      *infraPrometheus.Metrics
	writeTimeout time.Duration
	now          func() time.Time
}

// NewIngestService returns an IngestService. Events, Sessions and Regions are required.
func NewIngestService(deps IngestDeps) IngestService {
	s := &ingestService{
		logger:       logger.OrNop(deps.Logger),
		events:       deps.Events,
		sessions:     deps.Sessions,
		regions:      deps.Regions,
		metrics:      deps.Metrics,
		writeTimeout: deps.WriteTimeout,
		now:          deps.Now,
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ingestService) TrackPageview(ctx context.Context, input PageviewInput) (result *PageviewResult, err error) {
	defer func() { s.metrics.ObserveBeacon(model.BeaconKindPageview, err) }()

	if input.URL == "" {
		return nil, missingField("url")
	}
	timeOnPage := 0
	if input.TimeOnPage != nil {
		if *input.TimeOnPage < 0 {
			return nil, &ValidationError{Field: "timeOnPage", Reason: "must not be negative"}
		}
		timeOnPage = *input.TimeOnPage
	}
	bounce := true
	if input.Bounce != nil {
		bounce = *input.Bounce
	}

	now := s.now()
	region := s.regions.Resolve(input.Region)
	sessionID := session.DeriveID(input.IPAddress, input.UserAgent, now)

	pv := &model.Pageview{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		URL:        input.URL,
		Timestamp:  now,
		UserAgent:  input.UserAgent,
		IPAddress:  input.IPAddress,
		Referrer:   input.Referrer,
		TimeOnPage: timeOnPage,
		Bounce:     bounce,
		Region:     region,
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.events.CreatePageview(writeCtx, pv); err != nil {
		return nil, storageError("create pageview", err)
	}

	sess, isNew := s.sessions.Touch(session.Visit{
		SessionID:  sessionID,
		URL:        input.URL,
		TimeOnPage: timeOnPage,
		At:         now,
	})

	if isNew {
		s.metrics.SessionStarted(s.sessions.Len())
		s.recordTrafficSource(writeCtx, pv)
	}

	s.logger.Debug("pageview tracked",
		zap.String("session_id", sessionID),
		zap.String("url", input.URL),
		zap.Int("page_count", sess.PageCount),
		zap.Bool("new_session", isNew),
	)

	return &PageviewResult{SessionID: sessionID, NewSession: isNew}, nil
}

// recordTrafficSource writes the session's source row. The pageview is already
// stored, so a failure here is logged rather than returned.
func (s *ingestService) recordTrafficSource(ctx context.Context, pv *model.Pageview) {
	info := ClassifySource(pv.URL, pv.Referrer)
	src := &model.TrafficSource{
		ID:         uuid.New().String(),
		SessionID:  pv.SessionID,
		SourceType: info.Type,
		SourceName: info.Name,
		Campaign:   info.Campaign,
		Medium:     info.Medium,
		Term:       info.Term,
		Timestamp:  pv.Timestamp,
		Region:     pv.Region,
	}

	err := s.events.CreateTrafficSource(ctx, src)
	s.metrics.ObserveBeacon(model.BeaconKindTrafficSource, err)
	if err != nil {
		s.logger.Warn("failed to store traffic source",
			zap.String("session_id", pv.SessionID),
			zap.String("source_type", info.Type),
			zap.Error(err),
		)
	}
}

func (s *ingestService) TrackEvent(ctx context.Context, input EventInput) (err error) {
	defer func() { s.metrics.ObserveBeacon(model.BeaconKindEvent, err) }()

	if input.EventType == "" {
		return missingField("eventType")
	}

	var data datatypes.JSON
	if input.EventData != nil {
		raw, err := json.Marshal(input.EventData)
		if err != nil {
			return &ValidationError{Field: "eventData", Reason: "is not serializable"}
		}
		data = datatypes.JSON(raw)
	}

	now := s.now()
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = session.DeriveID(input.IPAddress, input.UserAgent, now)
	}

	ev := &model.Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: input.EventType,
		EventData: data,
		Timestamp: now,
		PageURL:   input.PageURL,
		Region:    s.regions.Resolve(input.Region),
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.events.CreateEvent(writeCtx, ev); err != nil {
		return storageError("create event", err)
	}
	return nil
}

var interactionTypes = map[string]bool{
	model.InteractionClick:  true,
	model.InteractionScroll: true,
	model.InteractionHover:  true,
}

func (s *ingestService) TrackHeatmapSample(ctx context.Context, input HeatmapInput) (err error) {
	defer func() { s.metrics.ObserveBeacon(model.BeaconKindHeatmap, err) }()

	switch {
	case input.PageURL == "":
		return missingField("pageUrl")
	case input.X == nil:
		return missingField("xCoord")
	case input.Y == nil:
		return missingField("yCoord")
	case input.EventType == "":
		return missingField("eventType")
	case !interactionTypes[input.EventType]:
		return &ValidationError{Field: "eventType", Reason: "must be click, scroll or hover"}
	}

	sample := &model.HeatmapSample{
		ID:        uuid.New().String(),
		PageURL:   input.PageURL,
		X:         *input.X,
		Y:         *input.Y,
		EventType: input.EventType,
		Timestamp: s.now(),
		Region:    s.regions.Resolve(input.Region),
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.events.CreateHeatmapSample(writeCtx, sample); err != nil {
		return storageError("create heatmap sample", err)
	}
	return nil
}
