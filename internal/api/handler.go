package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobin2005/roadgaurd-dark/internal/engine"
	"github.com/jobin2005/roadgaurd-dark/internal/events"
	"github.com/jobin2005/roadgaurd-dark/internal/geo"
	"github.com/jobin2005/roadgaurd-dark/internal/models"
	"github.com/jobin2005/roadgaurd-dark/internal/repository"
	"github.com/jobin2005/roadgaurd-dark/internal/risk"
	"github.com/jobin2005/roadgaurd-dark/internal/vehicle"
)

// HazardSource fetches the active hazards around a point. Satisfied by the
// backend client; requests that carry their own hazard list bypass it.
type HazardSource interface {
	NearbyHazards(ctx context.Context, center models.Coordinate, radiusKM float64) ([]models.Hazard, error)
}

type Handler struct {
	manager        *engine.Manager
	analyzer       risk.Analyzer
	hazards        HazardSource
	store          repository.JourneyStore
	broadcaster    *events.Broadcaster
	nearbyRadiusKM float64
}

// NewHandler wires the HTTP surface. hazards and store may be nil; the
// corresponding endpoints then require inline data or return empty history.
func NewHandler(manager *engine.Manager, analyzer risk.Analyzer, hazards HazardSource,
	store repository.JourneyStore, broadcaster *events.Broadcaster, nearbyRadiusKM float64) *Handler {
	if nearbyRadiusKM <= 0 {
		nearbyRadiusKM = 15
	}
	return &Handler{
		manager:        manager,
		analyzer:       analyzer,
		hazards:        hazards,
		store:          store,
		broadcaster:    broadcaster,
		nearbyRadiusKM: nearbyRadiusKM,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/api/vehicles", h.getVehicles)
	r.POST("/api/routes/analyze", h.analyzeRoutes)
	r.GET("/api/journeys", h.getJourneys)
	r.POST("/api/journeys", h.startJourney)
	r.DELETE("/api/journeys/current", h.stopJourney)
	r.POST("/api/journeys/current/fixes", h.ingestFix)
	r.POST("/api/journeys/current/flags", h.submitFlag)
	r.GET("/api/journeys/current/events", h.streamEvents)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getVehicles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicle.All()})
}

// routePayload accepts either explicit points or an encoded polyline.
type routePayload struct {
	ID        string              `json:"id"`
	Points    []models.Coordinate `json:"points"`
	Polyline  string              `json:"polyline"`
	DistanceM float64             `json:"distance_m"`
	DurationS float64             `json:"duration_s"`
}

func (p *routePayload) toRoute(index int) (models.Route, error) {
	points := p.Points
	if len(points) == 0 && p.Polyline != "" {
		decoded, err := geo.DecodePolyline(p.Polyline)
		if err != nil {
			return models.Route{}, fmt.Errorf("invalid polyline: %w", err)
		}
		points = decoded
	}

	route := models.Route{
		ID:        p.ID,
		Points:    points,
		DistanceM: p.DistanceM,
		DurationS: p.DurationS,
	}
	if route.ID == "" {
		route.ID = fmt.Sprintf("route_%d", index+1)
	}
	if !route.Valid() {
		return models.Route{}, errors.New("route must have at least 2 points")
	}
	return route, nil
}

type analyzeRequest struct {
	Routes  []routePayload  `json:"routes"`
	Hazards []models.Hazard `json:"hazards"`
}

type analyzeResponse struct {
	Assessments   []risk.Assessment `json:"assessments"`
	SafestRouteID string            `json:"safest_route_id,omitempty"`
	HazardCount   int               `json:"hazard_count"`
}

func (h *Handler) analyzeRoutes(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Routes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one route is required"})
		return
	}

	routes := make([]models.Route, 0, len(req.Routes))
	for i := range req.Routes {
		route, err := req.Routes[i].toRoute(i)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		routes = append(routes, route)
	}

	hazards, err := h.resolveHazards(c.Request.Context(), req.Hazards, routes[0].Start())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch hazards"})
		return
	}

	resp := analyzeResponse{HazardCount: len(hazards)}
	for _, route := range routes {
		assessment, err := h.analyzer.AnalyzeRoute(c.Request.Context(), route, hazards)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp.Assessments = append(resp.Assessments, assessment)
	}

	if best := risk.Safest(resp.Assessments); best >= 0 {
		resp.SafestRouteID = resp.Assessments[best].RouteID
	}
	c.JSON(http.StatusOK, resp)
}

type startJourneyRequest struct {
	Route       routePayload       `json:"route"`
	VehicleKey  models.VehicleKey  `json:"vehicle"`
	TravelerID  string             `json:"traveler_id"`
	Destination *models.Coordinate `json:"destination"`
	Hazards     []models.Hazard    `json:"hazards"`
}

func (h *Handler) startJourney(c *gin.Context) {
	var req startJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	route, err := req.Route.toRoute(0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hazards, err := h.resolveHazards(c.Request.Context(), req.Hazards, route.Start())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch hazards"})
		return
	}

	session, err := h.manager.StartJourney(c.Request.Context(), engine.StartParams{
		Route:       route,
		Hazards:     hazards,
		VehicleKey:  req.VehicleKey,
		Destination: req.Destination,
		TravelerID:  req.TravelerID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"journey_id":   session.ID,
		"hazard_count": len(hazards),
		"status":       "tracking",
	})
}

func (h *Handler) stopJourney(c *gin.Context) {
	h.manager.StopJourney(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

type fixRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	SpeedMPS  *float64   `json:"speed_mps"`
	Timestamp *time.Time `json:"timestamp"`
}

func (h *Handler) ingestFix(c *gin.Context) {
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	fix := models.PositionFix{
		Coordinate: models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
		SpeedMPS:   req.SpeedMPS,
		Timestamp:  time.Now(),
	}
	if req.Timestamp != nil {
		fix.Timestamp = *req.Timestamp
	}

	if err := h.manager.HandleFix(fix); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type flagRequest struct {
	HazardID string `json:"hazard_id" binding:"required"`
}

func (h *Handler) submitFlag(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hazard_id is required"})
		return
	}

	result, err := h.manager.RequestFlag(c.Request.Context(), req.HazardID)
	if err != nil {
		c.JSON(flagErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flagged":         true,
		"total_flags":     result.FlagCount,
		"total_passages":  result.PassageCount,
		"pothole_removed": result.Removed,
	})
}

func flagErrorStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoActiveJourney), errors.Is(err, engine.ErrUnknownHazard):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoOpenWindow), errors.Is(err, engine.ErrNotTracking):
		return http.StatusConflict
	case errors.Is(err, engine.ErrFlagUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// streamEvents pushes engine events over SSE until the client disconnects or
// the broadcaster shuts down.
func (h *Handler) streamEvents(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) getJourneys(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"journeys": []repository.JourneyRecord{}})
		return
	}

	filter := repository.Filter{
		Limit: 20, // Default to 20 journeys if limit param not supplied
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if tid := c.Query("traveler_id"); tid != "" {
		filter.TravelerID = &tid
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}

	journeys, err := h.store.ListJourneys(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch journeys",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"journeys": journeys})
}

// resolveHazards prefers the request's inline hazard list and otherwise
// queries the backend around the route start. Fixed or removed hazards are
// filtered out either way.
func (h *Handler) resolveHazards(ctx context.Context, inline []models.Hazard, center models.Coordinate) ([]models.Hazard, error) {
	hazards := inline
	if hazards == nil {
		if h.hazards == nil {
			return nil, nil
		}
		fetched, err := h.hazards.NearbyHazards(ctx, center, h.nearbyRadiusKM)
		if err != nil {
			return nil, err
		}
		hazards = fetched
	}

	active := hazards[:0:0]
	for _, hz := range hazards {
		if hz.Status == "" || hz.Status == models.HazardStatusActive {
			active = append(active, hz)
		}
	}
	return active, nil
}
