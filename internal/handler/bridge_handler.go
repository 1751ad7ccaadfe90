package handler

import (
	"errors"
	"net/http"

	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"github.com/ELEVATE-Project/chat-communications/internal/service"
	"github.com/ELEVATE-Project/chat-communications/pkg/config"
	"github.com/ELEVATE-Project/chat-communications/pkg/logger"
	"github.com/ELEVATE-Project/chat-communications/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	mappingService    *service.MappingService
	defaultTenantCode string
)

// InitBridgeHandler wires the handlers to the mapping service
func InitBridgeHandler(svc *service.MappingService, cfg *config.Config) {
	mappingService = svc
	defaultTenantCode = cfg.Chat.DefaultTenantCode
}

// tenantCode resolves the tenant scope for a request
func tenantCode(c echo.Context) string {
	if code := c.Request().Header.Get("X-Tenant-Code"); code != "" {
		return code
	}
	return defaultTenantCode
}

// respondError translates a domain error into the response envelope
func respondError(c echo.Context, log *zap.Logger, operation string, err error) error {
	status := http.StatusInternalServerError
	responseCode := "INTERNAL_ERROR"
	message := "internal server error"

	switch {
	case platform.IsUserNotFound(err):
		status = http.StatusNotFound
		responseCode = "USER_NOT_FOUND"
		message = "user not found"
	case platform.IsInvalidUser(err):
		status = http.StatusBadRequest
		responseCode = "INVALID_USER"
		message = "invalid user"
	case platform.IsUnauthorized(err):
		status = http.StatusUnauthorized
		responseCode = "UNAUTHORIZED"
		message = "invalid credentials"
	case platform.IsTimeout(err):
		status = http.StatusGatewayTimeout
		responseCode = "TIMEOUT"
		message = "chat platform request timed out"
	case errors.Is(err, platform.ErrSendFailed):
		status = http.StatusBadGateway
		responseCode = "SEND_FAILED"
		message = "message send failed"
	case errors.Is(err, platform.ErrAvatarFailed):
		status = http.StatusBadGateway
		responseCode = "AVATAR_FAILED"
		message = "avatar update failed"
	case errors.Is(err, platform.ErrRemote):
		status = http.StatusBadGateway
		responseCode = "REMOTE_ERROR"
		message = "chat platform error"
	}

	log.Error("Bridge operation failed",
		zap.String("operation", operation),
		zap.String("response_code", responseCode),
		zap.Error(err))
	prometheus.RecordBridgeError(operation, responseCode)

	return c.JSON(status, echo.Map{
		"statusCode":   status,
		"message":      message,
		"responseCode": responseCode,
	})
}

// respondSuccess renders the success envelope
func respondSuccess(c echo.Context, status int, message string, result interface{}) error {
	return c.JSON(status, echo.Map{
		"statusCode": status,
		"message":    message,
		"result":     result,
	})
}

// Signup registers an internal user on the chat platform
func Signup(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.SignupCounter.Inc()

	var req struct {
		UserID   string `json:"user_id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		ImageURL string `json:"image_url,omitempty"`
		IsAdmin  bool   `json:"is_admin,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse signup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "invalid request",
			"responseCode": "BAD_REQUEST",
		})
	}

	if req.UserID == "" || req.Name == "" {
		log.Error("Invalid signup data", zap.String("user_id", req.UserID))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id and name are required",
			"responseCode": "BAD_REQUEST",
		})
	}

	user, err := mappingService.Signup(c.Request().Context(), service.SignupInput{
		UserID:     req.UserID,
		Name:       req.Name,
		Email:      req.Email,
		ImageURL:   req.ImageURL,
		TenantCode: tenantCode(c),
		IsAdmin:    req.IsAdmin,
	})
	if err != nil {
		return respondError(c, log, "signup", err)
	}

	log.Info("Chat signup completed",
		zap.String("user_id", req.UserID),
		zap.String("external_user_id", user.ExternalUserID))
	return respondSuccess(c, http.StatusOK, "user registered successfully", echo.Map{
		"user_id":          user.UserID,
		"external_user_id": user.ExternalUserID,
	})
}

// Login opens a chat platform session for an internal user
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		UserID string `json:"user_id"`
	}

	if err := c.Bind(&req); err != nil || req.UserID == "" {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id is required",
			"responseCode": "BAD_REQUEST",
		})
	}

	session, err := mappingService.Login(c.Request().Context(), req.UserID)
	if err != nil {
		return respondError(c, log, "login", err)
	}

	log.Info("Chat login completed", zap.String("user_id", req.UserID))
	return respondSuccess(c, http.StatusOK, "login successful", echo.Map{
		"external_user_id": session.UserID,
		"token":            session.Token,
	})
}

// Logout ends the user's chat platform sessions
func Logout(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LogoutCounter.Inc()

	var req struct {
		UserID         string `json:"user_id"`
		Token          string `json:"token,omitempty"`
		ExternalUserID string `json:"external_user_id,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse logout request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "invalid request",
			"responseCode": "BAD_REQUEST",
		})
	}

	if req.UserID == "" && req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id or token is required",
			"responseCode": "BAD_REQUEST",
		})
	}

	err := mappingService.Logout(c.Request().Context(), service.LogoutInput{
		UserID:         req.UserID,
		TenantCode:     tenantCode(c),
		Token:          req.Token,
		ExternalUserID: req.ExternalUserID,
	})
	if err != nil {
		return respondError(c, log, "logout", err)
	}

	log.Info("Chat logout completed", zap.String("user_id", req.UserID))
	return respondSuccess(c, http.StatusOK, "logout successful", nil)
}

// CreateRoom opens a direct-message room between two internal users
func CreateRoom(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RoomCreateCounter.Inc()

	var req struct {
		Usernames      []string `json:"usernames"`
		InitialMessage string   `json:"initial_message,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse room creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "invalid request",
			"responseCode": "BAD_REQUEST",
		})
	}

	if len(req.Usernames) != 2 || req.Usernames[0] == "" || req.Usernames[1] == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "exactly two usernames are required",
			"responseCode": "BAD_REQUEST",
		})
	}

	roomID, err := mappingService.CreateRoom(c.Request().Context(),
		[2]string{req.Usernames[0], req.Usernames[1]}, req.InitialMessage)
	if err != nil {
		return respondError(c, log, "create_room", err)
	}

	log.Info("Chat room created", zap.String("room_id", roomID))
	return respondSuccess(c, http.StatusOK, "room created successfully", echo.Map{
		"room_id": roomID,
	})
}

// UpdateAvatar sets the user's chat platform avatar from an image URL
func UpdateAvatar(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID   string `json:"user_id"`
		ImageURL string `json:"image_url"`
	}

	if err := c.Bind(&req); err != nil || req.UserID == "" || req.ImageURL == "" {
		log.Error("Failed to parse avatar request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id and image_url are required",
			"responseCode": "BAD_REQUEST",
		})
	}

	if err := mappingService.UpdateAvatar(c.Request().Context(), req.UserID, req.ImageURL); err != nil {
		return respondError(c, log, "update_avatar", err)
	}

	log.Info("Chat avatar updated", zap.String("user_id", req.UserID))
	return respondSuccess(c, http.StatusOK, "avatar updated successfully", nil)
}

// RemoveAvatar resets the user's chat platform avatar
func RemoveAvatar(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID string `json:"user_id"`
	}

	if err := c.Bind(&req); err != nil || req.UserID == "" {
		log.Error("Failed to parse avatar removal request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id is required",
			"responseCode": "BAD_REQUEST",
		})
	}

	if err := mappingService.RemoveAvatar(c.Request().Context(), req.UserID, tenantCode(c)); err != nil {
		return respondError(c, log, "remove_avatar", err)
	}

	log.Info("Chat avatar removed", zap.String("user_id", req.UserID))
	return respondSuccess(c, http.StatusOK, "avatar removed successfully", nil)
}

// UpdateUser updates the user's chat platform display name
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	}

	if err := c.Bind(&req); err != nil || req.UserID == "" || req.Name == "" {
		log.Error("Failed to parse user update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id and name are required",
			"responseCode": "BAD_REQUEST",
		})
	}

	if err := mappingService.UpdateUser(c.Request().Context(), req.UserID, tenantCode(c), req.Name); err != nil {
		return respondError(c, log, "update_user", err)
	}

	log.Info("Chat user updated", zap.String("user_id", req.UserID))
	return respondSuccess(c, http.StatusOK, "user updated successfully", nil)
}

// UserMapping resolves a chat platform user ID back to the internal user
func UserMapping(c echo.Context) error {
	log := logger.FromContext(c)

	externalUserID := c.Param("external_user_id")
	if externalUserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "external_user_id is required",
			"responseCode": "BAD_REQUEST",
		})
	}

	mapping, err := mappingService.UserMapping(c.Request().Context(), externalUserID, tenantCode(c))
	if err != nil {
		return respondError(c, log, "user_mapping", err)
	}

	return respondSuccess(c, http.StatusOK, "user mapping found", mapping)
}

// SetActiveStatus activates or deactivates the user's chat platform account
func SetActiveStatus(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID            string `json:"user_id"`
		ActiveStatus      bool   `json:"active_status"`
		ConfirmRelinquish bool   `json:"confirm_relinquish,omitempty"`
	}

	if err := c.Bind(&req); err != nil || req.UserID == "" {
		log.Error("Failed to parse active status request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"statusCode":   http.StatusBadRequest,
			"message":      "user_id is required",
			"responseCode": "BAD_REQUEST",
		})
	}

	err := mappingService.SetActiveStatus(c.Request().Context(),
		req.UserID, tenantCode(c), req.ActiveStatus, req.ConfirmRelinquish)
	if err != nil {
		return respondError(c, log, "set_active_status", err)
	}

	log.Info("Chat user active status updated",
		zap.String("user_id", req.UserID),
		zap.Bool("active", req.ActiveStatus))
	return respondSuccess(c, http.StatusOK, "active status updated successfully", nil)
}
