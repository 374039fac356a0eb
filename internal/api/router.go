package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every endpoint on api.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.healthCheck)
	api.GET("/config", h.getConfig)
	api.GET("/weather/:lat/:lng", h.getWeather)
	api.GET("/emergency-services/:lat/:lng", h.getEmergencyServices)

	api.POST("/telemetry", h.postTelemetry)
	api.POST("/communication", h.postCommunication)

	mission := api.Group("/mission")
	{
		mission.POST("", h.postMission)
		mission.GET("/:id", h.getMission)
	}

	api.GET("/alerts", h.getAlerts)
	api.POST("/alert", h.postAlert)
}

// NewRouter returns an engine with recovery, request logging, permissive
// CORS and the routes mounted at the root.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors())
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
