package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// ValidateBusiness validates business rules only
func (v *Validator) ValidateBusiness(s interface{}) ValidationErrors {
	return v.businessValidator.Validate(s)
}

// Validate performs complete validation (struct + business rules)
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	if errors := v.ValidateBusiness(s); len(errors) > 0 {
		return errors
	}

	return nil
}

// ValidateDefinition checks an evaluation and its questions before attempts
// are opened against it.
func (v *Validator) ValidateDefinition(eval *models.Evaluation, questions []*models.Question) error {
	if err := v.Validate(eval); err != nil {
		return err
	}

	var errs ValidationErrors
	for _, q := range questions {
		if err := v.ValidateStruct(q); err != nil {
			if ve, ok := err.(ValidationErrors); ok {
				errs = append(errs, ve...)
				continue
			}
			return err
		}
		errs = append(errs, v.questionValidator.ValidateQuestion(q)...)
	}
	errs = append(errs, v.businessValidator.ValidatePoints(eval, questions)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("evaluation_type", validateEvaluationType)
	validate.RegisterValidation("user_role", validateUserRole)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).Valid()
}

func validateEvaluationType(fl validator.FieldLevel) bool {
	switch models.EvaluationType(fl.Field().String()) {
	case models.EvaluationExam, models.EvaluationQuiz, models.EvaluationTP,
		models.EvaluationTD, models.EvaluationProject, models.EvaluationOral:
		return true
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}
