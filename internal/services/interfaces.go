package services

import (
	"context"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	// Start opens a new attempt. When the student already holds one, the
	// existing attempt is returned with Resumed set instead of an error.
	Start(ctx context.Context, req *StartAttemptRequest, actor models.Actor) (*StartAttemptResponse, error)
	// Submit finalizes an attempt. Calling it on a closed attempt returns the
	// stored result unchanged.
	Submit(ctx context.Context, req *SubmitAttemptRequest, actor models.Actor) (*SubmitResult, error)
	SubmitFiles(ctx context.Context, req *SubmitFilesRequest, actor models.Actor) (*SubmitResult, error)

	Get(ctx context.Context, attemptID uint, actor models.Actor) (*AttemptView, error)
	TimeRemaining(ctx context.Context, attemptID uint, actor models.Actor) (*TimeRemainingResponse, error)
	SaveDraft(ctx context.Context, req *SaveDraftRequest, actor models.Actor) (*TimeRemainingResponse, error)

	// ReconcileExpired marks IN_PROGRESS attempts of closed evaluations as
	// MISSED once their budget ran out. It returns how many were closed.
	ReconcileExpired(ctx context.Context, limit int) (int, error)
}

type GradingService interface {
	Grade(ctx context.Context, req *GradeRequest, actor models.Actor) (*GradeResult, error)
}

type PlagiarismService interface {
	// Request schedules an analysis. Failures only leave the attempt PENDING.
	Request(ctx context.Context, attempt *models.Attempt, reason, requestedBy string)
	Process(ctx context.Context, req events.PlagiarismRequest) error
	Handler() events.PlagiarismHandler
	RetryPending(ctx context.Context, limit int) (int, error)

	Report(ctx context.Context, attemptID uint, actor models.Actor) (*models.PlagiarismReport, error)
	Rerun(ctx context.Context, attemptID uint, actor models.Actor) (*PlagiarismRerunResponse, error)
}

type EvaluationService interface {
	Get(ctx context.Context, evaluationID uint, actor models.Actor) (*EvaluationView, error)
	ListAttempts(ctx context.Context, evaluationID uint, filters repositories.AttemptFilters, actor models.Actor) (*AttemptListResponse, error)
}

type ExportService interface {
	ExportResults(ctx context.Context, evaluationID uint, actor models.Actor) (*excelize.File, error)
}

// ===== REQUEST DTOs =====

type StartAttemptRequest struct {
	EvaluationID uint `json:"evaluation_id" validate:"required"`
}

type AnswerInput struct {
	QuestionID uint     `json:"question_id" validate:"required"`
	Selected   []string `json:"selected,omitempty" validate:"max=50,dive,max=100"`
	Text       string   `json:"text,omitempty" validate:"max=20000"`
}

func (a AnswerInput) Value() models.AnswerValue {
	return models.AnswerValue{Selected: a.Selected, Text: a.Text}
}

type SubmitAttemptRequest struct {
	AttemptID uint          `json:"attempt_id" validate:"required"`
	Answers   []AnswerInput `json:"answers" validate:"max=500,dive"`
}

// UploadedFile is one file handed over by the transport layer.
type UploadedFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// MaxUploadFiles bounds how many files one submission may carry.
const MaxUploadFiles = 20

type SubmitFilesRequest struct {
	AttemptID uint           `json:"attempt_id" validate:"required"`
	Files     []UploadedFile `json:"-" validate:"max=20"`
	Text      string         `json:"text,omitempty" validate:"max=100000"`
	Answers   []AnswerInput  `json:"answers,omitempty" validate:"max=500,dive"`
}

type SaveDraftRequest struct {
	AttemptID uint          `json:"-" validate:"required"`
	Answers   []AnswerInput `json:"answers" validate:"required,min=1,max=500,dive"`
}

type GradeRequest struct {
	AttemptID uint    `json:"submission_id" validate:"required"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback" validate:"max=5000"`
}

// ===== RESPONSE DTOs =====

type StartAttemptResponse struct {
	AttemptID            uint                     `json:"attempt_id"`
	EvaluationID         uint                     `json:"evaluation_id"`
	SequenceNumber       int                      `json:"sequence_number"`
	Status               models.AttemptStatus     `json:"status"`
	StartedAt            time.Time                `json:"started_at"`
	Deadline             time.Time                `json:"deadline"`
	TimeRemainingSeconds int                      `json:"time_remaining_seconds"`
	Questions            []models.StudentQuestion `json:"questions"`
	Answers              []AnswerInput            `json:"answers,omitempty"`
	Resumed              bool                     `json:"resumed"`
}

type SubmitResult struct {
	AttemptID        uint                    `json:"attempt_id"`
	Status           models.AttemptStatus    `json:"status"`
	SubmittedAt      *time.Time              `json:"submitted_at,omitempty"`
	ElapsedSeconds   *int                    `json:"elapsed_seconds,omitempty"`
	IsLate           bool                    `json:"is_late"`
	AutoScore        *float64                `json:"auto_score,omitempty"`
	Score            *float64                `json:"score,omitempty"`
	MaxScore         float64                 `json:"max_score"`
	Percentage       *float64                `json:"percentage,omitempty"`
	Passed           *bool                   `json:"passed,omitempty"`
	Letter           *scoring.Letter         `json:"letter,omitempty"`
	PlagiarismStatus models.PlagiarismStatus `json:"plagiarism_status"`
	PlagiarismScore  *float64                `json:"plagiarism_score,omitempty"`
	ArtifactCount    int                     `json:"artifact_count"`
	// Idempotent is set when the attempt was already closed and nothing changed.
	Idempotent bool `json:"idempotent"`
}

type AnswerView struct {
	QuestionID    uint               `json:"question_id"`
	Response      models.AnswerValue `json:"response"`
	AwardedPoints *float64           `json:"awarded_points,omitempty"`
	IsCorrect     *bool              `json:"is_correct,omitempty"`
	NeedsManual   bool               `json:"needs_manual"`
}

type AttemptView struct {
	ID                   uint                     `json:"id"`
	EvaluationID         uint                     `json:"evaluation_id"`
	StudentID            string                   `json:"student_id"`
	SequenceNumber       int                      `json:"sequence_number"`
	Status               models.AttemptStatus     `json:"status"`
	StartedAt            time.Time                `json:"started_at"`
	Deadline             time.Time                `json:"deadline"`
	TimeRemainingSeconds int                      `json:"time_remaining_seconds"`
	SubmittedAt          *time.Time               `json:"submitted_at,omitempty"`
	ElapsedSeconds       *int                     `json:"elapsed_seconds,omitempty"`
	IsLate               bool                     `json:"is_late"`
	Questions            []models.StudentQuestion `json:"questions,omitempty"`
	Answers              []AnswerView             `json:"answers,omitempty"`
	Artifacts            []models.Artifact        `json:"artifacts,omitempty"`

	AutoScore  *float64        `json:"auto_score,omitempty"`
	Score      *float64        `json:"score,omitempty"`
	MaxScore   float64         `json:"max_score"`
	Percentage *float64        `json:"percentage,omitempty"`
	Passed     *bool           `json:"passed,omitempty"`
	Letter     *scoring.Letter `json:"letter,omitempty"`
	Feedback   *string         `json:"feedback,omitempty"`
	GradedBy   *string         `json:"graded_by,omitempty"`
	GradedAt   *time.Time      `json:"graded_at,omitempty"`

	PlagiarismStatus models.PlagiarismStatus `json:"plagiarism_status,omitempty"`
	PlagiarismScore  *float64                `json:"plagiarism_score,omitempty"`
	PlagiarismClass  *models.PlagiarismClass `json:"plagiarism_class,omitempty"`
}

type TimeRemainingResponse struct {
	AttemptID            uint                 `json:"attempt_id"`
	Status               models.AttemptStatus `json:"status"`
	TimeRemainingSeconds int                  `json:"time_remaining_seconds"`
	Deadline             time.Time            `json:"deadline"`
	ServerTime           time.Time            `json:"server_time"`
}

type GradeResult struct {
	AttemptID       uint                    `json:"attempt_id"`
	Status          models.AttemptStatus    `json:"status"`
	AutoScore       *float64                `json:"auto_score,omitempty"`
	Score           float64                 `json:"score"`
	MaxScore        float64                 `json:"max_score"`
	Percentage      float64                 `json:"percentage"`
	Passed          bool                    `json:"passed"`
	Letter          scoring.Letter          `json:"letter"`
	Feedback        *string                 `json:"feedback,omitempty"`
	GradedBy        string                  `json:"graded_by"`
	GradedAt        time.Time               `json:"graded_at"`
	PlagiarismScore *float64                `json:"plagiarism_score,omitempty"`
	PlagiarismClass *models.PlagiarismClass `json:"plagiarism_class,omitempty"`
	AlreadyGraded   bool                    `json:"already_graded"`
}

type PlagiarismRerunResponse struct {
	AttemptID        uint                    `json:"attempt_id"`
	PlagiarismStatus models.PlagiarismStatus `json:"plagiarism_status"`
	Queued           bool                    `json:"queued"`
}

type EvaluationView struct {
	*models.Evaluation
	QuestionCount     int   `json:"question_count"`
	WindowOpen        bool  `json:"window_open"`
	AttemptsUsed      *int  `json:"attempts_used,omitempty"`
	AttemptsRemaining *int  `json:"attempts_remaining,omitempty"`
	ActiveAttemptID   *uint `json:"active_attempt_id,omitempty"`
}

type AttemptSummary struct {
	ID               uint                    `json:"id"`
	StudentID        string                  `json:"student_id"`
	SequenceNumber   int                     `json:"sequence_number"`
	Status           models.AttemptStatus    `json:"status"`
	StartedAt        time.Time               `json:"started_at"`
	SubmittedAt      *time.Time              `json:"submitted_at,omitempty"`
	IsLate           bool                    `json:"is_late"`
	AutoScore        *float64                `json:"auto_score,omitempty"`
	Score            *float64                `json:"score,omitempty"`
	Percentage       *float64                `json:"percentage,omitempty"`
	Passed           *bool                   `json:"passed,omitempty"`
	Letter           *scoring.Letter         `json:"letter,omitempty"`
	PlagiarismStatus models.PlagiarismStatus `json:"plagiarism_status"`
	PlagiarismScore  *float64                `json:"plagiarism_score,omitempty"`
	PlagiarismClass  *models.PlagiarismClass `json:"plagiarism_class,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*AttemptSummary `json:"attempts"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}
