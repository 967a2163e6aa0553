package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
)

// RainController proxies the fixed rain gauge channel
type RainController struct {
	provider  ChannelReader
	channelID string
	results   int
	logger    *logger.Logger
}

// NewRainController creates a new rain gauge controller
func NewRainController(provider ChannelReader, channelID string, results int, log *logger.Logger) *RainController {
	return &RainController{
		provider:  provider,
		channelID: channelID,
		results:   results,
		logger:    log.WithComponent("rain-controller"),
	}
}

// RegisterRoutes registers the rain gauge routes with Gin
func (h *RainController) RegisterRoutes(router *gin.Engine) {
	device := router.Group("/api/device")
	{
		device.GET("/rain", h.GetSensorData)
		device.GET("/rain/:field", h.GetFieldData)
		device.GET("/rain-channel-status", h.GetChannelStatus)
	}
}

func (h *RainController) GetSensorData(c *gin.Context) {
	feed, err := h.provider.FetchFeeds(c.Request.Context(), h.channelID, h.results)
	if err != nil {
		providerFailure(c, h.logger, err, "Failed to retrieve sensor data")
		return
	}
	respondData(c, http.StatusOK, feed.Feeds)
}

func (h *RainController) GetFieldData(c *gin.Context) {
	field, ok := parseField(c.Param("field"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid field")
		return
	}

	feed, err := h.provider.FetchField(c.Request.Context(), h.channelID, field, h.results)
	if err != nil {
		providerFailure(c, h.logger, err, "Failed to retrieve field data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "field": field, "data": feed.Feeds})
}

func (h *RainController) GetChannelStatus(c *gin.Context) {
	feed, err := h.provider.FetchStatus(c.Request.Context(), h.channelID)
	if err != nil {
		providerFailure(c, h.logger, err, "Failed to retrieve channel status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": feed})
}
