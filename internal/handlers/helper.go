package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
)

// parseIDParam reads a positive numeric path parameter. It answers 400 and
// returns 0 when the value is missing or malformed.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, gin.H{"param": param})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}

// bindJSON decodes the request body, answering 400 on malformed input.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, err.Error())
		return false
	}
	return true
}
