package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/middleware"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceController handles the device registry
type DeviceController struct {
	deviceRepo     interfaces.DeviceRepository
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewDeviceController creates a new device controller
func NewDeviceController(deviceRepo interfaces.DeviceRepository, log *logger.Logger, authMiddleware *middleware.AuthMiddleware) *DeviceController {
	return &DeviceController{
		deviceRepo:     deviceRepo,
		logger:         log.WithComponent("device-controller"),
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the admin device routes under /api/device
func (h *DeviceController) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/api/device", h.authMiddleware.Authenticate(), h.authMiddleware.RequirePermission(rbac.PermManageDevices))
	{
		admin.POST("/add-device", h.AddDevice)
		admin.GET("/getall-device", h.GetAllDevices)
		admin.PUT("/update-device/:id", h.UpdateDevice)
		admin.DELETE("/delete-device/:id", h.DeleteDevice)
	}
}

// AddDevice registers a sensor station
func (h *DeviceController) AddDevice(c *gin.Context) {
	var req api_models.AddDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	name := strings.TrimSpace(req.Name)
	channel := strings.TrimSpace(req.ThingSpeakChannelID)
	if name == "" || channel == "" || req.Latitude == nil || req.Longitude == nil {
		respondError(c, http.StatusBadRequest, "All fields are required")
		return
	}
	if !validCoordinates(*req.Latitude, *req.Longitude) {
		respondError(c, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	device, err := h.deviceRepo.Create(c.Request.Context(), &fldmodels.Device{
		Name:                name,
		ThingSpeakChannelID: channel,
		Location:            fldmodels.Location{Latitude: *req.Latitude, Longitude: *req.Longitude},
	})
	if err != nil {
		h.fail(c, err, "Failed to add device")
		return
	}

	h.logger.WithDevice(device.HexID(), channel).Info("Device added")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Device added successfully", "data": device})
}

// GetAllDevices lists the registry
func (h *DeviceController) GetAllDevices(c *gin.Context) {
	devices, err := h.deviceRepo.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get devices")
		return
	}
	if devices == nil {
		devices = []fldmodels.Device{}
	}
	respondData(c, http.StatusOK, devices)
}

// UpdateDevice replaces name, channel and location of a device
func (h *DeviceController) UpdateDevice(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req api_models.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	name := strings.TrimSpace(req.Name)
	channel := strings.TrimSpace(req.ThingSpeakChannelID)
	if name == "" || channel == "" || req.Location == nil || req.Location.Latitude == nil || req.Location.Longitude == nil {
		respondError(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !validCoordinates(*req.Location.Latitude, *req.Location.Longitude) {
		respondError(c, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	updated, err := h.deviceRepo.Update(c.Request.Context(), &fldmodels.Device{
		ID:                  oid,
		Name:                name,
		ThingSpeakChannelID: channel,
		Location:            fldmodels.Location{Latitude: *req.Location.Latitude, Longitude: *req.Location.Longitude},
	})
	if err != nil {
		h.fail(c, err, "Internal Server Error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Device updated successfully", "data": updated})
}

// DeleteDevice removes a device. Its stored readings are kept.
func (h *DeviceController) DeleteDevice(c *gin.Context) {
	if err := h.deviceRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Internal Server Error")
		return
	}
	respondMessage(c, http.StatusOK, "Device deleted successfully")
}

func (h *DeviceController) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, interfaces.ErrInvalidID):
		respondError(c, http.StatusBadRequest, "Invalid device ID")
	case errors.Is(err, interfaces.ErrNotFound):
		respondError(c, http.StatusNotFound, "Device not found")
	case errors.Is(err, interfaces.ErrDuplicate):
		respondError(c, http.StatusConflict, "A device with this ThingSpeak channel already exists")
	default:
		h.logger.ErrorWithError(err, fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
