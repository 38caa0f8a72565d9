package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides logging and error rendering shared by all handlers
type BaseHandler struct {
	logger     utils.Logger
	translator *i18n.Translator
}

func NewBaseHandler(logger utils.Logger, translator *i18n.Translator) BaseHandler {
	return BaseHandler{
		logger:     logger,
		translator: translator,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"timestamp", time.Now().Format(time.RFC3339),
	}
	fields = append(fields, additionalFields...)

	h.logger.InfoContext(c.Request.Context(), message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.logger.LogError(err, message, h.contextFields(c, additionalFields)...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.logger.WarnContext(c.Request.Context(), message, h.contextFields(c, additionalFields)...)
}

// LogInfo logs informational messages with context
func (h *BaseHandler) LogInfo(c *gin.Context, message string, additionalFields ...interface{}) {
	h.logger.InfoContext(c.Request.Context(), message, h.contextFields(c, additionalFields)...)
}

func (h *BaseHandler) contextFields(c *gin.Context, additional []interface{}) []interface{} {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	return append(fields, additional...)
}

// Helper method to extract user ID from context
func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get(ContextUserID); exists {
		return userID
	}
	return nil
}

// actor returns the authenticated caller, answering 401 when there is none.
func (h *BaseHandler) actor(c *gin.Context) (models.Actor, bool) {
	if actor, ok := ActorFrom(c); ok {
		return actor, true
	}
	h.RespondWithError(c, http.StatusUnauthorized, ReasonUnauthenticated, nil)
	return models.Actor{}, false
}

// RespondWithError sends a localized error response for a reason code and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code services.Reason, err error, details ...interface{}) {
	h.respond(c, statusCode, code, nil, err, details...)
}

func (h *BaseHandler) respond(c *gin.Context, statusCode int, code services.Reason, data map[string]any, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: h.translator.Td(c.Request.Context(), string(code), data),
		Code:    string(code),
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, "Request failed", "status_code", statusCode, "code", code)
	} else {
		h.LogWarn(c, "Request refused", "status_code", statusCode, "code", code, "error", err)
	}

	c.AbortWithStatusJSON(statusCode, errorResp)
}

// handleServiceError maps service errors onto HTTP statuses and reason codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var policyError *services.PolicyError
	if errors.As(err, &policyError) {
		var details interface{}
		if policyError.AttemptID != nil {
			details = gin.H{"attempt_id": *policyError.AttemptID}
		}
		h.respond(c, policyStatus(policyError.Reason), policyError.Reason, policyError.Details, err, details)
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, permissionError.Code, err, gin.H{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, services.ReasonNotFound, err)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, services.ReasonForbidden, err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, services.ReasonOf(err), err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, services.ReasonInternal, err)
	}
}

func policyStatus(reason services.Reason) int {
	switch reason {
	case services.ReasonOutsideWindow, services.ReasonNotEntitled, services.ReasonForbidden, services.ReasonNotOwner:
		return http.StatusForbidden
	case services.ReasonInvalidScore, services.ReasonInvalidUpload, services.ReasonInvalidDefinition:
		return http.StatusUnprocessableEntity
	case services.ReasonNotFound:
		return http.StatusNotFound
	case services.ReasonValidation:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}
