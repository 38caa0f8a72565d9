package postgres

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type Repository struct {
	db          *gorm.DB
	evaluations *EvaluationPostgreSQL
	questions   *QuestionPostgreSQL
	attempts    *AttemptPostgreSQL
	answers     *AnswerPostgreSQL
	artifacts   *ArtifactPostgreSQL
	reports     *PlagiarismReportPostgreSQL
}

func NewRepository(db *gorm.DB, cacheService cache.CacheService, logger *slog.Logger) *Repository {
	helpers := NewSharedHelpers(db)
	return &Repository{
		db:          db,
		evaluations: NewEvaluationPostgreSQL(db, cacheService, logger),
		questions:   NewQuestionPostgreSQL(db, cacheService),
		attempts:    NewAttemptPostgreSQL(db, helpers),
		answers:     NewAnswerPostgreSQL(db),
		artifacts:   NewArtifactPostgreSQL(db),
		reports:     NewPlagiarismReportPostgreSQL(db),
	}
}

func (r *Repository) Evaluations() repositories.EvaluationRepository { return r.evaluations }
func (r *Repository) Questions() repositories.QuestionRepository     { return r.questions }
func (r *Repository) Attempts() repositories.AttemptRepository       { return r.attempts }
func (r *Repository) Answers() repositories.AnswerRepository         { return r.answers }
func (r *Repository) Artifacts() repositories.ArtifactRepository     { return r.artifacts }
func (r *Repository) PlagiarismReports() repositories.PlagiarismReportRepository {
	return r.reports
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var _ repositories.Repository = (*Repository)(nil)
