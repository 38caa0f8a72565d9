package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// oneActiveAttemptIndex enforces at most one IN_PROGRESS attempt per
// (evaluation, student). Concurrent starts surface as gorm.ErrDuplicatedKey.
const oneActiveAttemptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_attempt_one_in_progress
	ON attempts (evaluation_id, student_id)
	WHERE status = 'IN_PROGRESS'`

// Migrate creates or updates the schema owned by this service.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&models.Evaluation{},
		&models.EvaluationAudience{},
		&models.Question{},
		&models.Attempt{},
		&models.StudentAnswer{},
		&models.Artifact{},
		&models.PlagiarismReport{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if err := db.Exec(oneActiveAttemptIndex).Error; err != nil {
		return fmt.Errorf("failed to create active attempt index: %w", err)
	}
	return nil
}
