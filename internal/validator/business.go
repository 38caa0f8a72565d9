package validator

import (
	"math"

	"github.com/SAP-F-2025/evaluation-service/internal/errors"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// BusinessValidator holds cross-field rules struct tags cannot express.
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

func (v *BusinessValidator) Validate(s interface{}) ValidationErrors {
	switch t := s.(type) {
	case *models.Evaluation:
		return v.validateEvaluation(t)
	}
	return nil
}

func (v *BusinessValidator) validateEvaluation(eval *models.Evaluation) ValidationErrors {
	var errs ValidationErrors
	if eval.EndsAt.Sub(eval.StartsAt) < eval.TimeBudget() {
		errs = append(errs, *errors.NewValidationErrorWithRule("duration_minutes", "must fit inside the scheduling window", "duration_window", eval.DurationMinutes))
	}
	return errs
}

// ValidatePoints checks that question weights add up to the evaluation total.
// Evaluations graded purely from uploads may have no questions at all.
func (v *BusinessValidator) ValidatePoints(eval *models.Evaluation, questions []*models.Question) ValidationErrors {
	if len(questions) == 0 {
		return nil
	}
	var sum float64
	for _, q := range questions {
		sum += q.Points
	}
	if math.Abs(sum-eval.TotalPoints) > 1e-6 {
		return ValidationErrors{*errors.NewValidationErrorWithRule("total_points", "must equal the sum of question points", "total_points", sum)}
	}
	return nil
}
