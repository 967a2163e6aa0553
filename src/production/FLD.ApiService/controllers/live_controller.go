package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	cache "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Cache"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
)

// SnapshotReader returns the last broadcast snapshot
type SnapshotReader interface {
	Latest(ctx context.Context) (*cache.CachedSnapshot, error)
}

// LiveController serves the cached deviceData snapshot. source may be nil
// when the cache is disabled.
type LiveController struct {
	source SnapshotReader
	logger *logger.Logger
}

func NewLiveController(source SnapshotReader, log *logger.Logger) *LiveController {
	return &LiveController{source: source, logger: log.WithComponent("live-controller")}
}

func (h *LiveController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/device/live", h.GetLive)
}

// GetLive answers without touching the provider
func (h *LiveController) GetLive(c *gin.Context) {
	if h.source == nil {
		respondError(c, http.StatusServiceUnavailable, "Live snapshot cache is disabled")
		return
	}

	snap, err := h.source.Latest(c.Request.Context())
	switch {
	case errors.Is(err, cache.ErrNoSnapshot):
		respondError(c, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	case err != nil:
		h.logger.ErrorWithError(err, "Snapshot cache read failed")
		respondError(c, http.StatusServiceUnavailable, "Snapshot cache unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"updatedAt": snap.UpdatedAt,
		"devices":   snap.Devices,
	})
}
