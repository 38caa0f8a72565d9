package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type EvaluationHandler struct {
	BaseHandler
	evaluationService services.EvaluationService
	exportService     services.ExportService
}

func NewEvaluationHandler(
	evaluationService services.EvaluationService,
	exportService services.ExportService,
	logger utils.Logger,
	translator *i18n.Translator,
) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:       NewBaseHandler(logger, translator),
		evaluationService: evaluationService,
		exportService:     exportService,
	}
}

// GetEvaluation returns an evaluation definition without answer keys
// @Summary Get evaluation
// @Tags evaluations
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Success 200 {object} services.EvaluationView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	evaluationID := h.parseIDParam(c, "id")
	if evaluationID == 0 {
		return
	}

	view, err := h.evaluationService.Get(c.Request.Context(), evaluationID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListAttempts lists attempts of an evaluation for graders
// @Summary List evaluation attempts
// @Tags evaluations
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Param status query string false "Attempt status"
// @Param student_id query string false "Student"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.AttemptListResponse
// @Router /evaluations/{id}/attempts [get]
func (h *EvaluationHandler) ListAttempts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	evaluationID := h.parseIDParam(c, "id")
	if evaluationID == 0 {
		return
	}

	h.LogRequest(c, "Listing attempts", "evaluation_id", evaluationID)

	list, err := h.evaluationService.ListAttempts(c.Request.Context(), evaluationID, h.parseAttemptFilters(c), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// ExportResults streams the results workbook.
func (h *EvaluationHandler) ExportResults(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	evaluationID := h.parseIDParam(c, "id")
	if evaluationID == 0 {
		return
	}

	h.LogRequest(c, "Exporting results", "evaluation_id", evaluationID)

	f, err := h.exportService.ExportResults(c.Request.Context(), evaluationID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, services.ReasonInternal, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="evaluation-%d-results.xlsx"`, evaluationID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *EvaluationHandler) parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		StudentID: c.Query("student_id"),
		Limit:     h.parseIntQuery(c, "limit", 0),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		attemptStatus := models.AttemptStatus(status)
		filters.Status = &attemptStatus
	}

	return filters
}
