package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type PlagiarismReportPostgreSQL struct {
	db *gorm.DB
}

func NewPlagiarismReportPostgreSQL(db *gorm.DB) *PlagiarismReportPostgreSQL {
	return &PlagiarismReportPostgreSQL{db: db}
}

func (r *PlagiarismReportPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, report *models.PlagiarismReport) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"overall_score":       report.OverallScore,
			"classification":      report.Classification,
			"sources":             report.Sources,
			"suspicious_sections": report.SuspiciousSections,
			"analyzed_at":         report.AnalyzedAt,
			"updated_at":          gorm.Expr("NOW()"),
			"runs":                gorm.Expr("plagiarism_reports.runs + 1"),
		}),
	}).Create(report).Error
	if err != nil {
		return fmt.Errorf("failed to save plagiarism report: %w", err)
	}
	return nil
}

func (r *PlagiarismReportPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.PlagiarismReport, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var report models.PlagiarismReport
	if err := db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plagiarism report for attempt %d: %w", attemptID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plagiarism report: %w", err)
	}
	return &report, nil
}
