package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/health"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	realtime "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Realtime"
)

// BreakerStatus reports the provider circuit breakers
type BreakerStatus interface {
	GetCircuitBreakerStatus() map[string]interface{}
}

// HealthController handles probes, metrics and the websocket endpoint
type HealthController struct {
	checker  *health.HealthChecker
	breakers BreakerStatus
	ws       *realtime.Handler
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.HealthChecker, breakers BreakerStatus, ws *realtime.Handler) *HealthController {
	return &HealthController{checker: checker, breakers: breakers, ws: ws}
}

// RegisterRoutes registers the infra routes with Gin
func (h *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", h.HealthLive)
	router.GET("/health/ready", h.HealthReady)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if h.ws != nil {
		router.GET("/ws", h.ws.ServeWS)
	}
}

func (h *HealthController) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthController) HealthReady(c *gin.Context) {
	status, ready := h.checker.GetHealthStatus(c.Request.Context())
	if h.breakers != nil {
		status["provider"] = h.breakers.GetCircuitBreakerStatus()
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
