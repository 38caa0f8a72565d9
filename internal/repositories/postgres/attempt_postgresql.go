package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB, helpers *SharedHelpers) *AttemptPostgreSQL {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: helpers,
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	err := a.helpers.getDB(tx).WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to create attempt: %w", repositories.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.helpers.getDB(tx).WithContext(ctx).
		Preload("Answers").
		Preload("Artifacts").
		First(&attempt, id).Error
	if err != nil {
		return nil, notFound(err, "attempt", id)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.helpers.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error
	if err != nil {
		return nil, notFound(err, "attempt", id)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	if err := a.helpers.getDB(tx).WithContext(ctx).Omit(clause.Associations).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.helpers.getDB(tx).WithContext(ctx).
		Where("evaluation_id = ? AND student_id = ? AND status = ?", evaluationID, studentID, models.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountByStudent(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (int, error) {
	var count int64
	err := a.helpers.getDB(tx).WithContext(ctx).Model(&models.Attempt{}).
		Where("evaluation_id = ? AND student_id = ?", evaluationID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

func (a *AttemptPostgreSQL) ListByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := a.helpers.getDB(tx).WithContext(ctx).Model(&models.Attempt{}).Where("evaluation_id = ?", evaluationID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Report").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListWindowClosed(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.helpers.getDB(tx).WithContext(ctx).
		Joins("JOIN evaluations ON evaluations.id = attempts.evaluation_id").
		Where("attempts.status = ? AND evaluations.ends_at <= ?", models.AttemptInProgress, now).
		Order("attempts.started_at ASC").
		Limit(limit).
		Preload("Evaluation").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list window-closed attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListPlagiarismPending(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.helpers.getDB(tx).WithContext(ctx).
		Where("plagiarism_status = ? AND status IN ?", models.PlagiarismPending,
			[]models.AttemptStatus{models.AttemptSubmitted, models.AttemptGraded}).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending plagiarism checks: %w", err)
	}
	return attempts, nil
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}
