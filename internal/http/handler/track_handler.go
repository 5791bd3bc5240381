package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/service"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
	"github.com/sifan077/PowerStats/internal/http/view"
	"go.uber.org/zap"
)

// TrackDeps groups dependencies required by the beacon handlers.
type TrackDeps struct {
	Logger    *zap.Logger
	Ingest    service.IngestService
	PublicURL string

	// Limiter guards the beacon routes when set.
	Limiter fiber.Handler
}

// TrackHandler accepts client beacons.
type TrackHandler struct {
	logger    *zap.Logger
	ingest    service.IngestService
	publicURL string
	limiter   fiber.Handler
}

// NewTrackHandler creates a beacon handler with the provided dependencies.
func NewTrackHandler(deps TrackDeps) *TrackHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackHandler{
		logger:    logger,
		ingest:    deps.Ingest,
		publicURL: deps.PublicURL,
		limiter:   deps.Limiter,
	}
}

// Register wires beacon routes onto the provided router.
func (h *TrackHandler) Register(router fiber.Router) {
	router.Get("/tracker.js", h.Script)

	track := router.Group("/api/track")
	if h.limiter != nil {
		track.Use(h.limiter)
	}
	{
		track.Post("/pageview", h.Pageview)
		track.Post("/event", h.Event)
		track.Post("/heatmap", h.Heatmap)
	}
}

// RegionFields are the optional location fields a beacon may carry.
type RegionFields struct {
	CountryCode string   `json:"countryCode,omitempty"`
	City        string   `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func (r RegionFields) hint() model.RegionHint {
	return model.RegionHint{
		CountryCode: r.CountryCode,
		City:        r.City,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
}

// PageviewRequest is the body of POST /api/track/pageview.
type PageviewRequest struct {
	URL        string `json:"url"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
	TimeOnPage *int   `json:"timeOnPage,omitempty"`
	Bounce     *bool  `json:"bounce,omitempty"`
	RegionFields
}

// Pageview handles POST /api/track/pageview
func (h *TrackHandler) Pageview(c *fiber.Ctx) error {
	var req PageviewRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	result, err := h.ingest.TrackPageview(c.UserContext(), service.PageviewInput{
		URL:        req.URL,
		IPAddress:  httpUtil.FirstNonEmpty(req.IPAddress, httpUtil.ClientIP(c)),
		UserAgent:  httpUtil.FirstNonEmpty(req.UserAgent, httpUtil.UserAgent(c)),
		Referrer:   httpUtil.FirstNonEmpty(req.Referrer, c.Get(fiber.HeaderReferer)),
		TimeOnPage: req.TimeOnPage,
		Bounce:     req.Bounce,
		Region:     req.hint(),
	})
	if err != nil {
		return respondError(c, h.logger, "track pageview", err)
	}

	return httpUtil.Success(c, result)
}

// EventRequest is the body of POST /api/track/event.
type EventRequest struct {
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId,omitempty"`
	EventData json.RawMessage `json:"eventData,omitempty"`
	PageURL   string          `json:"pageUrl,omitempty"`
	RegionFields
}

// Event handles POST /api/track/event
func (h *TrackHandler) Event(c *fiber.Ctx) error {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	input := service.EventInput{
		EventType: req.EventType,
		SessionID: req.SessionID,
		PageURL:   req.PageURL,
		IPAddress: httpUtil.ClientIP(c),
		UserAgent: httpUtil.UserAgent(c),
		Region:    req.hint(),
	}
	if len(req.EventData) > 0 && string(req.EventData) != "null" {
		input.EventData = req.EventData
	}

	if err := h.ingest.TrackEvent(c.UserContext(), input); err != nil {
		return respondError(c, h.logger, "track event", err)
	}

	return httpUtil.Success(c, nil)
}

// HeatmapRequest is the body of POST /api/track/heatmap.
type HeatmapRequest struct {
	PageURL   string `json:"pageUrl"`
	XCoord    *int   `json:"xCoord"`
	YCoord    *int   `json:"yCoord"`
	EventType string `json:"eventType"`
	RegionFields
}

// Heatmap handles POST /api/track/heatmap
func (h *TrackHandler) Heatmap(c *fiber.Ctx) error {
	var req HeatmapRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	err := h.ingest.TrackHeatmapSample(c.UserContext(), service.HeatmapInput{
		PageURL:   req.PageURL,
		X:         req.XCoord,
		Y:         req.YCoord,
		EventType: req.EventType,
		Region:    req.hint(),
	})
	if err != nil {
		return respondError(c, h.logger, "track heatmap sample", err)
	}

	return httpUtil.Success(c, nil)
}

// Script handles GET /tracker.js
func (h *TrackHandler) Script(c *fiber.Ctx) error {
	endpoint := h.publicURL
	if endpoint == "" {
		endpoint = c.BaseURL()
	}

	js, err := view.RenderTrackerScript(view.TrackerScriptData{Endpoint: endpoint})
	if err != nil {
		h.logger.Error("failed to render tracker script", zap.Error(err))
		return httpUtil.Failure(c, fiber.StatusInternalServerError, httpUtil.CodeInternal, "failed to render script")
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Type("js", "utf-8").SendString(js)
}
