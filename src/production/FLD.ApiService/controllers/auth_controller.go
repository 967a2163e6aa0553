package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	service "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/auth"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
)

// AuthController handles signup, signin and password reset
type AuthController struct {
	authService *service.AuthService
	logger      *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(authService *service.AuthService, log *logger.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      log.WithComponent("auth-controller"),
	}
}

// RegisterRoutes registers the public auth routes under /api
func (h *AuthController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/signup", h.Signup)
		api.POST("/signin", h.Signin)
		api.POST("/reqotp", h.RequestOTP)
		api.POST("/reset-password", h.ResetPassword)
	}
}

// Signup handles user registration
func (h *AuthController) Signup(c *gin.Context) {
	var req api_models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": resp.Token})
}

// Signin handles user login
func (h *AuthController) Signin(c *gin.Context) {
	var req api_models.SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Signin(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": resp.Token, "role": resp.Role})
}

// RequestOTP mails a password reset code
func (h *AuthController) RequestOTP(c *gin.Context) {
	var req api_models.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "OTP sent to email successfully")
}

// ResetPassword replaces the password after checking the code
func (h *AuthController) ResetPassword(c *gin.Context) {
	var req api_models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password reset successful")
}

// authMessages maps service errors onto the client-facing 400 messages
var authMessages = map[error]string{
	service.ErrUserExists:         "User already exists",
	service.ErrInvalidCredentials: "Invalid Credentials",
	service.ErrUserNotFound:       "User does not exist",
	service.ErrWeakPassword:       "Password is too short",
	service.ErrOTPExpired:         "Invalid or expired OTP",
	service.ErrOTPMismatch:        "Incorrect OTP",
}

func (h *AuthController) fail(c *gin.Context, err error) {
	for target, message := range authMessages {
		if errors.Is(err, target) {
			respondError(c, http.StatusBadRequest, message)
			return
		}
	}
	if errors.Is(err, service.ErrOTPDelivery) {
		h.logger.ErrorWithError(err, "OTP delivery failed")
		respondError(c, http.StatusInternalServerError, "Failed to send OTP email")
		return
	}
	h.logger.ErrorWithError(err, "auth request failed")
	respondError(c, http.StatusInternalServerError, "Server error")
}
