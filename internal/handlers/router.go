package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type HandlerManager struct {
	BaseHandler
	parser            auth.TokenParser
	translator        *i18n.Translator
	attemptHandler    *AttemptHandler
	evaluationHandler *EvaluationHandler
	gradingHandler    *GradingHandler
	plagiarismHandler *PlagiarismHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	parser auth.TokenParser,
	translator *i18n.Translator,
	maxUploadBytes int64,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		BaseHandler:       NewBaseHandler(logger, translator),
		parser:            parser,
		translator:        translator,
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), maxUploadBytes, logger, translator),
		evaluationHandler: NewEvaluationHandler(serviceManager.Evaluation(), serviceManager.Export(), logger, translator),
		gradingHandler:    NewGradingHandler(serviceManager.Grading(), logger, translator),
		plagiarismHandler: NewPlagiarismHandler(serviceManager.Plagiarism(), logger, translator),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	graders := hm.RequireRole(models.RoleTeacher, models.RoleAdmin)

	v1 := router.Group("/api/v1", hm.translator.Middleware(), hm.Authenticate(hm.parser))
	{
		evaluations := v1.Group("/evaluations")
		{
			evaluations.GET("/:id", hm.evaluationHandler.GetEvaluation)
			evaluations.GET("/:id/attempts", graders, hm.evaluationHandler.ListAttempts)
			evaluations.GET("/:id/results.xlsx", graders, hm.evaluationHandler.ExportResults)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.POST("/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/submit-file", hm.attemptHandler.SubmitFiles)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
			attempts.PUT("/:id/answers", hm.attemptHandler.SaveAnswers)
		}

		grading := v1.Group("/grading", graders)
		{
			grading.POST("/grade", hm.gradingHandler.GradeSubmission)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.GET("/:id/plagiarism-report", hm.plagiarismHandler.GetReport)
			submissions.POST("/:id/plagiarism/rerun", graders, hm.plagiarismHandler.Rerun)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "evaluation-service",
	})
}
