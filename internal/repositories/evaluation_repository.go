package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type EvaluationRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error)
	// IsEntitled is true when the evaluation has no audience or the student is in it.
	IsEntitled(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (bool, error)
}

type QuestionRepository interface {
	// GetByEvaluation returns questions ordered by position, answer keys included.
	GetByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]*models.Question, error)
}
