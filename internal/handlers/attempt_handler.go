package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

// multipartOverhead leaves room for form fields next to the files.
const multipartOverhead = 1 << 20

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	maxUploadBytes int64
}

type SaveDraftBody struct {
	Answers []services.AnswerInput `json:"answers"`
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	maxUploadBytes int64,
	logger utils.Logger,
	translator *i18n.Translator,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger, translator),
		attemptService: attemptService,
		maxUploadBytes: maxUploadBytes,
	}
}

// StartAttempt opens an attempt for the calling student
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Evaluation to attempt"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "ALREADY_IN_PROGRESS carries the open attempt in details"
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Starting attempt", "evaluation_id", req.EvaluationID)

	resp, err := h.attemptService.Start(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if resp.Resumed {
		h.RespondWithError(c, http.StatusConflict, services.ReasonAlreadyInProgress, nil, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SubmitAttempt finalizes an attempt with the answers the client holds
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param submission body services.SubmitAttemptRequest true "Answers"
// @Success 200 {object} services.SubmitResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", req.AttemptID, "answers", len(req.Answers))

	result, err := h.attemptService.Submit(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitFiles finalizes an attempt from a multipart form: attempt_id, the
// files field (repeated), an optional text field and an optional answers
// field holding a JSON array.
func (h *AttemptHandler) SubmitFiles(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes*services.MaxUploadFiles+multipartOverhead)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.RespondWithError(c, http.StatusRequestEntityTooLarge, services.ReasonInvalidUpload, err)
			return
		}
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, err.Error())
		return
	}
	defer form.RemoveAll()

	attemptID, err := strconv.ParseUint(c.PostForm("attempt_id"), 10, 32)
	if err != nil || attemptID == 0 {
		h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, gin.H{"field": "attempt_id"})
		return
	}

	req := services.SubmitFilesRequest{
		AttemptID: uint(attemptID),
		Text:      c.PostForm("text"),
		Files:     uploadedFiles(form.File["files"]),
	}
	if raw := c.PostForm("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Answers); err != nil {
			h.RespondWithError(c, http.StatusBadRequest, services.ReasonValidation, err, gin.H{"field": "answers"})
			return
		}
	}

	h.LogRequest(c, "Submitting attempt files", "attempt_id", req.AttemptID, "files", len(req.Files))

	result, err := h.attemptService.SubmitFiles(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func uploadedFiles(headers []*multipart.FileHeader) []services.UploadedFile {
	files := make([]services.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}

// GetAttempt returns the attempt with its authoritative remaining time
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptView
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	view, err := h.attemptService.Get(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetTimeRemaining is the client countdown's poll endpoint.
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	resp, err := h.attemptService.TimeRemaining(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AttemptHandler) SaveAnswers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var body SaveDraftBody
	if !h.bindJSON(c, &body) {
		return
	}

	resp, err := h.attemptService.SaveDraft(c.Request.Context(), &services.SaveDraftRequest{
		AttemptID: attemptID,
		Answers:   body.Answers,
	}, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
