package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type PlagiarismHandler struct {
	BaseHandler
	plagiarismService services.PlagiarismService
}

func NewPlagiarismHandler(
	plagiarismService services.PlagiarismService,
	logger utils.Logger,
	translator *i18n.Translator,
) *PlagiarismHandler {
	return &PlagiarismHandler{
		BaseHandler:       NewBaseHandler(logger, translator),
		plagiarismService: plagiarismService,
	}
}

// GetReport returns the latest plagiarism report of a submission
// @Summary Get plagiarism report
// @Tags plagiarism
// @Produce json
// @Param id path uint true "Submission (attempt) ID"
// @Success 200 {object} models.PlagiarismReport
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id}/plagiarism-report [get]
func (h *PlagiarismHandler) GetReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	report, err := h.plagiarismService.Report(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Rerun asks the oracle again. A queued rerun answers 202.
func (h *PlagiarismHandler) Rerun(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Rerunning plagiarism analysis", "attempt_id", attemptID)

	resp, err := h.plagiarismService.Rerun(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}
