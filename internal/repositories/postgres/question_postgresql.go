package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type QuestionPostgreSQL struct {
	db    *gorm.DB
	cache cache.CacheService
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheService cache.CacheService) *QuestionPostgreSQL {
	return &QuestionPostgreSQL{db: db, cache: cacheService}
}

// cachedQuestion keeps the answer key, which models.Question never serializes.
type cachedQuestion struct {
	models.Question
	AnswerKey []string `json:"answer_key"`
}

func (q *QuestionPostgreSQL) GetByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]*models.Question, error) {
	var cached []cachedQuestion

	err := q.cache.CacheOrExecute(ctx, cache.QuestionsKey(evaluationID), &cached, cache.QuestionsTTL, func() (interface{}, error) {
		db := q.db
		if tx != nil {
			db = tx
		}

		var rows []models.Question
		if err := db.WithContext(ctx).
			Where("evaluation_id = ?", evaluationID).
			Order("position ASC").Order("id ASC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get questions: %w", err)
		}

		out := make([]cachedQuestion, len(rows))
		for i, row := range rows {
			out[i] = cachedQuestion{Question: row, AnswerKey: row.AnswerKey}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	questions := make([]*models.Question, len(cached))
	for i := range cached {
		question := cached[i].Question
		question.AnswerKey = cached[i].AnswerKey
		questions[i] = &question
	}
	return questions, nil
}
