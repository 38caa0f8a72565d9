package validator

import (
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/errors"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// QuestionValidator checks that a question's options and answer key agree
// with its type.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

func (v *QuestionValidator) ValidateQuestion(q *models.Question) ValidationErrors {
	field := fmt.Sprintf("questions[%d]", q.Position)

	switch q.Type {
	case models.QuestionSingleChoice, models.QuestionMultiSelect:
		if len(q.Options) < 2 {
			return ValidationErrors{*errors.NewValidationErrorWithRule(field+".options", "must have at least 2 options", "option_count", len(q.Options))}
		}
		if len(q.AnswerKey) == 0 || (q.Type == models.QuestionSingleChoice && len(q.AnswerKey) != 1) {
			return ValidationErrors{*errors.NewValidationErrorWithRule(field+".answer_key", "has the wrong number of correct options", "answer_key", len(q.AnswerKey))}
		}
		ids := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			ids[o.ID] = struct{}{}
		}
		for _, k := range q.AnswerKey {
			if _, ok := ids[k]; !ok {
				return ValidationErrors{*errors.NewValidationErrorWithRule(field+".answer_key", "must reference existing options", "answer_key", k)}
			}
		}
	case models.QuestionTrueFalse:
		if len(q.AnswerKey) != 1 || (q.AnswerKey[0] != "true" && q.AnswerKey[0] != "false") {
			return ValidationErrors{*errors.NewValidationErrorWithRule(field+".answer_key", "must be true or false", "answer_key", []string(q.AnswerKey))}
		}
	case models.QuestionShortAnswer:
		if len(q.AnswerKey) == 0 {
			return ValidationErrors{*errors.NewValidationErrorWithRule(field+".answer_key", "is required", "required", nil)}
		}
	}
	return nil
}
