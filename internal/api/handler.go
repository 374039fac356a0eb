// Package api is the HTTP service in front of the ingestion store: health,
// key discovery, weather and emergency-service lookups, and the telemetry,
// communication, mission and alert endpoints.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rescueops/internal/clock"
	"rescueops/internal/ingest"
)

// Keys are the third-party API keys exposed by GET /config. Empty keys are
// reported as null.
type Keys struct {
	Maps      string
	Weather   string
	Emergency string
}

type Handler struct {
	svc       *ingest.Service
	weather   WeatherSource
	emergency *EmergencyDirectory
	keys      Keys
	clock     clock.Clock
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewHandler wires the service. A nil weather source falls back to
// simulated conditions.
func NewHandler(svc *ingest.Service, weather WeatherSource, emergency *EmergencyDirectory, keys Keys, clk clock.Clock, logger *slog.Logger) *Handler {
	if weather == nil {
		weather = NewSimulatedWeather(nil)
	}
	if emergency == nil {
		emergency = NewEmergencyDirectory(nil)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:       svc,
		weather:   weather,
		emergency: emergency,
		keys:      keys,
		clock:     clk,
		logger:    logger,
		validate:  validator.New(),
	}
}

type telemetryRequest struct {
	UnitID string `json:"unitId" validate:"required"`
}

type missionRequest struct {
	MissionID string `json:"missionId" validate:"required"`
}

type coordinates struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lng float64 `validate:"gte=-180,lte=180"`
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": ingest.ISOTime(h.clock.Now())})
}

func (h *Handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"GOOGLE_MAPS_API_KEY": orNull(h.keys.Maps),
		"WEATHER_API_KEY":     orNull(h.keys.Weather),
		"EMERGENCY_API_KEY":   orNull(h.keys.Emergency),
	})
}

func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (h *Handler) getWeather(c *gin.Context) {
	pos, ok := h.bindCoordinates(c)
	if !ok {
		return
	}
	report, err := h.weather.Weather(c.Request.Context(), pos.Lat, pos.Lng)
	if err != nil {
		h.logger.Warn("weather lookup failed", "lat", pos.Lat, "lng", pos.Lng, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Weather data unavailable"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getEmergencyServices(c *gin.Context) {
	pos, ok := h.bindCoordinates(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": h.emergency.Near(pos.Lat, pos.Lng)})
}

func (h *Handler) bindCoordinates(c *gin.Context) (coordinates, bool) {
	lat, errLat := strconv.ParseFloat(c.Param("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Param("lng"), 64)
	pos := coordinates{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return pos, false
	}
	if err := h.validate.Struct(pos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return pos, false
	}
	return pos, true
}

// bindRecord decodes the body as a JSON object and, when req is non-nil,
// validates the same body against req.
func (h *Handler) bindRecord(c *gin.Context, req any) (ingest.Record, bool) {
	var rec ingest.Record
	if err := c.ShouldBindBodyWith(&rec, binding.JSON); err != nil || rec == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	if req == nil {
		return rec, true
	}
	if err := c.ShouldBindBodyWith(req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return rec, true
}

func (h *Handler) postTelemetry(c *gin.Context) {
	rec, ok := h.bindRecord(c, &telemetryRequest{})
	if !ok {
		return
	}
	key, err := h.svc.IngestTelemetry(c.Request.Context(), rec)
	if err != nil {
		h.logger.Error("telemetry storage failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store telemetry data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stored": key})
}

func (h *Handler) postCommunication(c *gin.Context) {
	rec, ok := h.bindRecord(c, nil)
	if !ok {
		return
	}
	key, err := h.svc.RelayMessage(c.Request.Context(), rec)
	if err != nil {
		h.logger.Error("communication relay failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to relay communication"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": key})
}

func (h *Handler) postMission(c *gin.Context) {
	rec, ok := h.bindRecord(c, &missionRequest{})
	if !ok {
		return
	}
	key, err := h.svc.SaveMission(c.Request.Context(), rec)
	if err != nil {
		h.logger.Error("mission storage failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store mission data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "missionId": key})
}

func (h *Handler) getMission(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.svc.GetMission(c.Request.Context(), id)
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Mission not found"})
	case err != nil:
		h.logger.Error("mission retrieval failed", "id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve mission data"})
	default:
		c.JSON(http.StatusOK, rec)
	}
}

func (h *Handler) getAlerts(c *gin.Context) {
	alerts, err := h.svc.RecentAlerts(c.Request.Context(), ingest.DefaultAlertWindow)
	if err != nil {
		h.logger.Error("alert retrieval failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) postAlert(c *gin.Context) {
	rec, ok := h.bindRecord(c, nil)
	if !ok {
		return
	}
	key, err := h.svc.IngestAlert(c.Request.Context(), rec)
	if err != nil {
		h.logger.Error("alert storage failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "alertId": key})
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
