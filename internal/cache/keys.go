package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	EvaluationTTL = 10 * time.Minute
	QuestionsTTL  = 10 * time.Minute
)

func EvaluationKey(id uint) string {
	return fmt.Sprintf("evaluation:%d", id)
}

func QuestionsKey(evaluationID uint) string {
	return fmt.Sprintf("evaluation:%d:questions", evaluationID)
}

// SafeDelete drops keys and ignores failures; stale entries expire on their own.
func SafeDelete(ctx context.Context, c CacheService, keys ...string) {
	_ = c.Delete(ctx, keys...)
}
