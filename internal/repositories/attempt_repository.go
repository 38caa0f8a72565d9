package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type AttemptRepository interface {
	// Create fails with ErrDuplicate when the student already holds an
	// IN_PROGRESS attempt or the sequence number is taken.
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	// GetByIDForUpdate row-locks the attempt until tx ends.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	// GetActive returns the IN_PROGRESS attempt of the pair, or nil.
	GetActive(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (*models.Attempt, error)
	CountByStudent(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (int, error)
	ListByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// ListWindowClosed returns IN_PROGRESS attempts whose evaluation window
	// ended at or before now, with the evaluation preloaded.
	ListWindowClosed(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error)
	ListPlagiarismPending(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Attempt, error)
}

type AnswerRepository interface {
	// Upsert inserts or replaces answers keyed by (attempt_id, question_id).
	Upsert(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error)
}

type ArtifactRepository interface {
	Create(ctx context.Context, tx *gorm.DB, artifacts []*models.Artifact) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Artifact, error)
}

type PlagiarismReportRepository interface {
	// Upsert replaces the report of an attempt and bumps its run counter.
	Upsert(ctx context.Context, tx *gorm.DB, report *models.PlagiarismReport) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.PlagiarismReport, error)
}
