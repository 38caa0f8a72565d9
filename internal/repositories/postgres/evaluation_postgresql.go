package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type EvaluationPostgreSQL struct {
	db     *gorm.DB
	cache  cache.CacheService
	logger *slog.Logger
}

func NewEvaluationPostgreSQL(db *gorm.DB, cacheService cache.CacheService, logger *slog.Logger) *EvaluationPostgreSQL {
	return &EvaluationPostgreSQL{
		db:     db,
		cache:  cacheService,
		logger: logger,
	}
}

func (e *EvaluationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// GetByID reads through the cache. Evaluations are immutable once attempts
// exist, so a TTL is enough for invalidation.
func (e *EvaluationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	var evaluation models.Evaluation

	err := e.cache.CacheOrExecute(ctx, cache.EvaluationKey(id), &evaluation, cache.EvaluationTTL, func() (interface{}, error) {
		var dbEvaluation models.Evaluation
		if err := e.getDB(tx).WithContext(ctx).First(&dbEvaluation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("evaluation %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get evaluation: %w", err)
		}
		return &dbEvaluation, nil
	})
	if err != nil {
		return nil, err
	}

	return &evaluation, nil
}

func (e *EvaluationPostgreSQL) IsEntitled(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (bool, error) {
	var audience struct {
		Total   int64
		Matches int64
	}
	err := e.getDB(tx).WithContext(ctx).Model(&models.EvaluationAudience{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE student_id = ?) AS matches", studentID).
		Where("evaluation_id = ?", evaluationID).
		Scan(&audience).Error
	if err != nil {
		return false, fmt.Errorf("failed to check audience: %w", err)
	}
	return audience.Total == 0 || audience.Matches > 0, nil
}
