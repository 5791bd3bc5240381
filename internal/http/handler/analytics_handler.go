package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerStats/internal/app/service"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
	"go.uber.org/zap"
)

// AnalyticsDeps groups dependencies required by the dashboard handlers.
type AnalyticsDeps struct {
	Logger    *zap.Logger
	Analytics service.AnalyticsService
}

// AnalyticsHandler serves the read-only aggregate endpoints.
type AnalyticsHandler struct {
	logger    *zap.Logger
	analytics service.AnalyticsService
}

// NewAnalyticsHandler creates an analytics handler with the provided dependencies.
func NewAnalyticsHandler(deps AnalyticsDeps) *AnalyticsHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{
		logger:    logger,
		analytics: deps.Analytics,
	}
}

// Register wires analytics routes onto the provided router.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	api := router.Group("/api/analytics")
	{
		api.Get("/summary", h.Summary)
		api.Get("/realtime", h.RealTime)
		api.Get("/regional", h.Regional)
		api.Get("/regions", h.Regions)
		api.Get("/heatmap", h.Heatmap)
		api.Get("/funnel/:name", h.Funnel)
		api.Get("/seo", h.SEO)
	}
}

// Summary handles GET /api/analytics/summary?url=&range=
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.analytics.Summary(c.UserContext(), service.SummaryQuery{
		URL:   c.Query("url"),
		Range: c.Query("range"),
	})
	if err != nil {
		return respondError(c, h.logger, "load summary", err)
	}
	return httpUtil.Success(c, summary)
}

// RealTime handles GET /api/analytics/realtime
func (h *AnalyticsHandler) RealTime(c *fiber.Ctx) error {
	rt, err := h.analytics.RealTime(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "load realtime counters", err)
	}
	return httpUtil.Success(c, rt)
}

// Regional handles GET /api/analytics/regional?range=&country=&city=
func (h *AnalyticsHandler) Regional(c *fiber.Ctx) error {
	out, err := h.analytics.Regional(c.UserContext(), service.RegionalQuery{
		Range:       c.Query("range"),
		CountryCode: c.Query("country"),
		City:        c.Query("city"),
	})
	if err != nil {
		return respondError(c, h.logger, "load regional analytics", err)
	}
	return httpUtil.Success(c, out)
}

// Regions handles GET /api/analytics/regions
func (h *AnalyticsHandler) Regions(c *fiber.Ctx) error {
	return httpUtil.Success(c, h.analytics.AvailableRegions())
}

// Heatmap handles GET /api/analytics/heatmap?url=
func (h *AnalyticsHandler) Heatmap(c *fiber.Ctx) error {
	points, err := h.analytics.Heatmap(c.UserContext(), c.Query("url"))
	if err != nil {
		return respondError(c, h.logger, "load heatmap", err)
	}
	return httpUtil.Success(c, points)
}

// Funnel handles GET /api/analytics/funnel/:name
func (h *AnalyticsHandler) Funnel(c *fiber.Ctx) error {
	return httpUtil.Success(c, h.analytics.ConversionFunnel(c.Params("name")))
}

// SEO handles GET /api/analytics/seo?url=
func (h *AnalyticsHandler) SEO(c *fiber.Ctx) error {
	return httpUtil.Success(c, h.analytics.SEOMetrics(c.Query("url")))
}
