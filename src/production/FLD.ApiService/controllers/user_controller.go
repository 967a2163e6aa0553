package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	service "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/auth"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/middleware"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
)

// UserController handles profile and user administration requests
type UserController struct {
	userService    *service.UserService
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewUserController creates a new user controller
func NewUserController(userService *service.UserService, log *logger.Logger, authMiddleware *middleware.AuthMiddleware) *UserController {
	return &UserController{
		userService:    userService,
		logger:         log.WithComponent("user-controller"),
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the user routes with Gin
func (h *UserController) RegisterRoutes(router *gin.Engine) {
	users := router.Group("/api/user", h.authMiddleware.Authenticate())
	self := users.Group("", h.authMiddleware.RequirePermission(rbac.PermEditOwnProfile))
	{
		self.GET("/get", h.GetProfile)
		self.PUT("/update", h.UpdateProfile)
	}

	admin := users.Group("", h.authMiddleware.RequirePermission(rbac.PermManageUsers))
	{
		admin.GET("/getall", h.GetAllUsers)
		admin.PUT("/update-role", h.UpdateRole)
		admin.DELETE("/admin/:userId", h.DeleteUser)
	}
}

// GetProfile returns the authenticated user
func (h *UserController) GetProfile(c *gin.Context) {
	userID, err := middleware.GetUserFromGinContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's details
func (h *UserController) UpdateProfile(c *gin.Context) {
	userID, err := middleware.GetUserFromGinContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api_models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User details updated successfully", "data": user})
}

// GetAllUsers lists every account
func (h *UserController) GetAllUsers(c *gin.Context) {
	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, users)
}

// UpdateRole changes the role of another user
func (h *UserController) UpdateRole(c *gin.Context) {
	var req api_models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateUserRole(c.Request.Context(), req.UserID, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User role updated successfully", "data": user})
}

// DeleteUser removes an account
func (h *UserController) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "User deleted successfully")
}

func (h *UserController) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, interfaces.ErrInvalidID):
		respondError(c, http.StatusBadRequest, "Invalid user ID")
	case errors.Is(err, interfaces.ErrNotFound):
		respondError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidRole):
		respondError(c, http.StatusBadRequest, "Invalid role")
	default:
		h.logger.ErrorWithError(err, "user request failed")
		respondError(c, http.StatusInternalServerError, "Internal Server Error")
	}
}
