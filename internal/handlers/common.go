package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/services"
	"github.com/SAP-F-2025/practice-engine/internal/utils"
)

// ===== RESPONSE ENVELOPES =====

type ErrorResponse struct {
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func newErrorResponse(message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// ===== BASE HANDLER =====

// BaseHandler carries the pieces every handler shares.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of handler work with request-scoped fields.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	allArgs := append([]any{
		"request_id", c.GetString("request_id"),
		"path", c.Request.URL.Path,
	}, args...)
	h.logger.InfoContext(c.Request.Context(), msg, allArgs...)
}

// parseIDParam parses a positive integer path parameter; 0 means the response
// was already written.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, newErrorResponse("Invalid "+param, idStr))
		return 0
	}
	return uint(id)
}

// getPrincipal reads the authenticated identity the auth middleware resolved.
func (h *BaseHandler) getPrincipal(c *gin.Context) (models.Principal, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, newErrorResponse("User not authenticated", nil))
		return models.Principal{}, false
	}
	role, exists := c.Get("user_role")
	if !exists {
		c.JSON(http.StatusUnauthorized, newErrorResponse("User role missing", nil))
		return models.Principal{}, false
	}

	id, okID := userID.(string)
	userRole, okRole := role.(models.UserRole)
	if !okID || !okRole {
		c.JSON(http.StatusUnauthorized, newErrorResponse("Invalid authentication context", nil))
		return models.Principal{}, false
	}

	return models.Principal{UserID: id, Role: userRole}, true
}

// handleServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, gating 403, missing resources 404, everything else 500.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, newErrorResponse("Validation failed", validationErrors))
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, newErrorResponse("Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		}))
		return
	}

	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, newErrorResponse(err.Error(), nil))
	case services.IsForbidden(err):
		c.JSON(http.StatusForbidden, newErrorResponse(err.Error(), nil))
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, newErrorResponse(err.Error(), nil))
	default:
		h.logger.LogError(err, "Unhandled service error",
			"request_id", c.GetString("request_id"),
			"path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, newErrorResponse("Internal server error", nil))
	}
}
