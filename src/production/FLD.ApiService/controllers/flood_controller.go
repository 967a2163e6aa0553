package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/middleware"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	telemetry "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Telemetry"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
)

// CycleRunner runs one fetch cycle on demand
type CycleRunner interface {
	RunCycle(ctx context.Context) (telemetry.CycleResult, error)
}

// ChannelReader is the provider surface proxied by the REST API
type ChannelReader interface {
	FetchFeeds(ctx context.Context, channelID string, results int) (*thingspeak.ChannelFeed, error)
	FetchField(ctx context.Context, channelID string, field, results int) (*thingspeak.ChannelFeed, error)
	FetchStatus(ctx context.Context, channelID string) (*thingspeak.ChannelFeed, error)
}

// SnapshotBuilder builds the live per-device snapshot
type SnapshotBuilder interface {
	Snapshot(ctx context.Context) ([]fldmodels.DeviceSnapshot, error)
}

// DeviceFinder resolves the device a provider request targets
type DeviceFinder interface {
	GetByID(ctx context.Context, id string) (*fldmodels.Device, error)
	GetPrimary(ctx context.Context) (*fldmodels.Device, error)
}

// ReadingLister returns a device's stored readings, newest first
type ReadingLister interface {
	ListByDevice(ctx context.Context, deviceID string) ([]fldmodels.Reading, error)
}

// FloodController exposes flood sensor data under /api/device
type FloodController struct {
	fetcher        CycleRunner
	provider       ChannelReader
	snapshots      SnapshotBuilder
	devices        DeviceFinder
	readings       ReadingLister
	results        int
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewFloodController creates a new flood controller. results is the batch
// size used for field queries.
func NewFloodController(fetcher CycleRunner, provider ChannelReader, snapshots SnapshotBuilder, devices DeviceFinder, readings ReadingLister, results int, log *logger.Logger, authMiddleware *middleware.AuthMiddleware) *FloodController {
	return &FloodController{
		fetcher:        fetcher,
		provider:       provider,
		snapshots:      snapshots,
		devices:        devices,
		readings:       readings,
		results:        results,
		logger:         log.WithComponent("flood-controller"),
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the flood routes with Gin
func (h *FloodController) RegisterRoutes(router *gin.Engine) {
	device := router.Group("/api/device")
	{
		device.GET("/flood", h.FetchAll)
		device.GET("/flood/:field", h.GetFieldData)
		device.GET("/flood-channel-status", h.GetChannelStatus)
		device.GET("/get-thinkspeakdatabyid/:deviceId", h.GetStoredReadings)
		device.GET("/get-thinkspeakdata",
			h.authMiddleware.Authenticate(),
			h.authMiddleware.RequirePermission(rbac.PermReadTelemetry),
			h.GetLatestData)
	}
}

// FetchAll runs a fetch cycle and returns its summary
func (h *FloodController) FetchAll(c *gin.Context) {
	result, err := h.fetcher.RunCycle(c.Request.Context())
	if err != nil {
		h.logger.ErrorWithError(err, "On-demand fetch failed")
		respondError(c, http.StatusInternalServerError, "Failed to fetch device data")
		return
	}
	respondData(c, http.StatusOK, result)
}

// GetFieldData proxies one field of a device's channel
func (h *FloodController) GetFieldData(c *gin.Context) {
	field, ok := parseField(c.Param("field"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid field")
		return
	}
	device, ok := h.resolveDevice(c)
	if !ok {
		return
	}

	feed, err := h.provider.FetchField(c.Request.Context(), device.ThingSpeakChannelID, field, h.results)
	if err != nil {
		providerFailure(c, h.logger, err, "Failed to retrieve field data")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  device.Name,
		"field":   field,
		"data":    feed.Feeds,
	})
}

// GetChannelStatus proxies a device's channel status
func (h *FloodController) GetChannelStatus(c *gin.Context) {
	device, ok := h.resolveDevice(c)
	if !ok {
		return
	}

	feed, err := h.provider.FetchStatus(c.Request.Context(), device.ThingSpeakChannelID)
	if err != nil {
		providerFailure(c, h.logger, err, "Failed to retrieve channel status")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  device.Name,
		"status":  feed,
	})
}

// GetLatestData fetches the newest entry of every device directly from
// the provider, in the same shape as the deviceData broadcast
func (h *FloodController) GetLatestData(c *gin.Context) {
	devices, err := h.snapshots.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.ErrorWithError(err, "Latest data request failed")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve latest device data")
		return
	}
	if len(devices) == 0 {
		respondError(c, http.StatusNotFound, "No devices found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "devices": devices})
}

// GetStoredReadings returns persisted readings of one device
func (h *FloodController) GetStoredReadings(c *gin.Context) {
	readings, err := h.readings.ListByDevice(c.Request.Context(), c.Param("deviceId"))
	switch {
	case errors.Is(err, interfaces.ErrInvalidID):
		respondError(c, http.StatusBadRequest, "Invalid device ID")
		return
	case err != nil:
		h.logger.ErrorWithError(err, "Stored readings request failed")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve ThingSpeak data")
		return
	}
	if len(readings) == 0 {
		respondError(c, http.StatusNotFound, "No ThingSpeak data found for this device")
		return
	}
	respondData(c, http.StatusOK, readings)
}

// resolveDevice picks ?deviceId= or the primary device; it writes the
// error response itself
func (h *FloodController) resolveDevice(c *gin.Context) (*fldmodels.Device, bool) {
	ctx := c.Request.Context()
	var (
		device *fldmodels.Device
		err    error
	)
	if id := c.Query("deviceId"); id != "" {
		device, err = h.devices.GetByID(ctx, id)
	} else {
		device, err = h.devices.GetPrimary(ctx)
	}

	switch {
	case err == nil:
		return device, true
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, interfaces.ErrInvalidID):
		respondError(c, http.StatusNotFound, "Device not found")
	default:
		h.logger.ErrorWithError(err, "Device lookup failed")
		respondError(c, http.StatusInternalServerError, "Internal Server Error")
	}
	return nil, false
}

// ThingSpeak channels carry field1..field8
func parseField(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 8 {
		return 0, false
	}
	return n, true
}

func providerFailure(c *gin.Context, log *logger.Logger, err error, message string) {
	if errors.Is(err, thingspeak.ErrCircuitOpen) {
		respondError(c, http.StatusServiceUnavailable, "ThingSpeak is temporarily unavailable")
		return
	}
	log.ErrorWithError(err, message)
	respondError(c, http.StatusBadGateway, message)
}
