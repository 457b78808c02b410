package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/advisor"
	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/prediction"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// CrowdHandler exposes footfall ingestion, prediction reads and the
// aggregation trigger. Snapshots arrive from zone sensors or manual
// counts; every ingest also runs the advisor's risk check so an
// over-capacity zone raises its signal immediately rather than on the
// next poll.
type CrowdHandler struct {
	Crowd      *repository.CrowdRepo
	Cache      *prediction.Cache
	Advisor    *advisor.Advisor
	Aggregator *prediction.Aggregator
	Clock      clock.Clock
}

// NewCrowdHandler constructs a CrowdHandler.
func NewCrowdHandler(crowd *repository.CrowdRepo, cache *prediction.Cache, adv *advisor.Advisor, agg *prediction.Aggregator, clk clock.Clock) *CrowdHandler {
	if crowd == nil || cache == nil || adv == nil || agg == nil || clk == nil {
		panic("nil dependency passed to NewCrowdHandler")
	}
	return &CrowdHandler{Crowd: crowd, Cache: cache, Advisor: adv, Aggregator: agg, Clock: clk}
}

// IngestSnapshot handles POST /v1/crowd/snapshots. The observation is
// recorded, then the zone's risk state is evaluated; the response
// reports the derived crowd level and whether the zone is currently at
// risk.
func (h *CrowdHandler) IngestSnapshot(c echo.Context) error {
	var body struct {
		ZoneID     string `json:"zone_id"`
		Footfall   uint32 `json:"footfall"`
		Capacity   uint32 `json:"capacity"`
		ObservedAt string `json:"observed_at"` // optional RFC3339, defaults to now
	}
	if err := c.Bind(&body); err != nil || body.ZoneID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone_id is required"})
	}
	observedAt := h.Clock.Now()
	if body.ObservedAt != "" {
		t, err := time.Parse(time.RFC3339, body.ObservedAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid observed_at"})
		}
		observedAt = t
	}
	snap := &model.CrowdSnapshot{
		ZoneID:    body.ZoneID,
		Footfall:  body.Footfall,
		Capacity:  body.Capacity,
		Timestamp: observedAt,
	}
	ctx := c.Request().Context()
	if err := h.Crowd.InsertSnapshot(ctx, snap); err != nil {
		return respondError(c, err)
	}
	atRisk, err := h.Advisor.IsOverCapacityRisk(ctx, body.ZoneID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":      snap.ID,
		"level":   model.ClassifyCrowd(snap.Footfall, snap.Capacity),
		"at_risk": atRisk,
	})
}

// GetPrediction handles GET /v1/zones/:zone/prediction?time=RFC3339.
// The response always carries a best-effort forecast; the source field
// tells the client whether it is fresh, a historical fallback, or
// unknown.
func (h *CrowdHandler) GetPrediction(c echo.Context) error {
	zoneID := c.Param("zone")
	if zoneID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone is required"})
	}
	at := h.Clock.Now()
	if ts := c.QueryParam("time"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time"})
		}
		at = t
	}
	result, err := h.Cache.GetPrediction(c.Request().Context(), zoneID, at)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ZoneRisk handles GET /v1/zones/:zone/risk and reports whether the
// zone's latest observation crosses the high-water mark.
func (h *CrowdHandler) ZoneRisk(c echo.Context) error {
	zoneID := c.Param("zone")
	if zoneID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone is required"})
	}
	atRisk, err := h.Advisor.IsOverCapacityRisk(c.Request().Context(), zoneID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"zone_id": zoneID, "at_risk": atRisk})
}

// RunAggregation handles POST /v1/admin/zones/:zone/aggregate and
// forces a pattern recomputation outside the schedule. The optional
// window query parameter (Go duration syntax) bounds the lookback.
func (h *CrowdHandler) RunAggregation(c echo.Context) error {
	zoneID := c.Param("zone")
	if zoneID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone is required"})
	}
	var window time.Duration
	if w := c.QueryParam("window"); w != "" {
		d, err := time.ParseDuration(w)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window"})
		}
		window = d
	}
	if err := h.Aggregator.RunAggregation(c.Request().Context(), zoneID, window); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"zone_id": zoneID, "status": "aggregated"})
}
