package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) *AnswerPostgreSQL {
	return &AnswerPostgreSQL{db: db}
}

func (r *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "awarded_points", "is_correct", "needs_manual", "updated_at"}),
	}).Create(&answers).Error
	if err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var answers []*models.StudentAnswer
	if err := db.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("question_id ASC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}
