package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// Repository groups every store the services need. WithTransaction runs fn in
// a single database transaction; the tx handle is passed to each call that
// must participate in it, nil means "outside any transaction".
type Repository interface {
	Evaluations() EvaluationRepository
	Questions() QuestionRepository
	Attempts() AttemptRepository
	Answers() AnswerRepository
	Artifacts() ArtifactRepository
	PlagiarismReports() PlagiarismReportRepository

	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID string                `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "started_at", "submitted_at", "score", "sequence_number"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}
