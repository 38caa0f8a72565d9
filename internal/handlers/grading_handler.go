package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(
	gradingService services.GradingService,
	logger utils.Logger,
	translator *i18n.Translator,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger, translator),
		gradingService: gradingService,
	}
}

// GradeSubmission records the final score of a submitted attempt
// @Summary Grade submission
// @Description Sets the final score and feedback. Grading an already graded
// @Description submission returns the stored grade with already_graded set.
// @Tags grading
// @Accept json
// @Produce json
// @Param grade body services.GradeRequest true "Grading data"
// @Success 200 {object} services.GradeResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /grading/grade [post]
func (h *GradingHandler) GradeSubmission(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.GradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Grading submission", "attempt_id", req.AttemptID)

	result, err := h.gradingService.Grade(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
