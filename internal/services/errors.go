package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/evaluation-service/internal/errors"
)

// Reason is the machine-readable code reported to callers for a refused or
// degraded operation.
type Reason string

const (
	ReasonAlreadyInProgress Reason = "ALREADY_IN_PROGRESS"
	ReasonAttemptsExhausted Reason = "ATTEMPTS_EXHAUSTED"
	ReasonOutsideWindow     Reason = "OUTSIDE_WINDOW"
	ReasonNotEntitled       Reason = "NOT_ENTITLED"
	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonNotOwner          Reason = "NOT_OWNER"
	ReasonForbidden         Reason = "FORBIDDEN"
	ReasonNotInProgress     Reason = "NOT_IN_PROGRESS"
	ReasonNotSubmitted      Reason = "NOT_SUBMITTED"
	ReasonTimeExpired       Reason = "TIME_EXPIRED"
	ReasonAlreadyGraded     Reason = "ALREADY_GRADED"
	ReasonInvalidScore      Reason = "INVALID_SCORE"
	ReasonInvalidUpload     Reason = "INVALID_UPLOAD"
	ReasonInvalidDefinition Reason = "INVALID_DEFINITION"
	ReasonValidation        Reason = "VALIDATION_FAILED"
	ReasonInternal          Reason = "INTERNAL_ERROR"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrReportNotFound     = errors.New("plagiarism report not found")
)

// Policy violations. They are compared by reason, so a PolicyError built
// with a custom message still matches its sentinel under errors.Is.
var (
	ErrAlreadyInProgress = NewPolicyError(ReasonAlreadyInProgress, "an attempt is already in progress for this evaluation")
	ErrAttemptsExhausted = NewPolicyError(ReasonAttemptsExhausted, "no attempts left for this evaluation")
	ErrOutsideWindow     = NewPolicyError(ReasonOutsideWindow, "the evaluation is not open at this time")
	ErrNotEntitled       = NewPolicyError(ReasonNotEntitled, "you are not part of this evaluation's audience")
	ErrNotInProgress     = NewPolicyError(ReasonNotInProgress, "the attempt is not in progress")
	ErrNotSubmitted      = NewPolicyError(ReasonNotSubmitted, "the attempt has not been submitted")
	ErrTimeExpired       = NewPolicyError(ReasonTimeExpired, "the time budget is exhausted, submit the attempt instead")
	ErrInvalidScore      = NewPolicyError(ReasonInvalidScore, "score is outside the evaluation's point range")
	ErrInvalidUpload     = NewPolicyError(ReasonInvalidUpload, "uploaded files were rejected")
	ErrInvalidDefinition = NewPolicyError(ReasonInvalidDefinition, "the evaluation definition is invalid")
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// PolicyError is a refusal decided before any state was changed.
type PolicyError struct {
	Reason    Reason `json:"reason"`
	Message   string `json:"message"`
	AttemptID *uint  `json:"attempt_id,omitempty"`
	// Details feeds the localized message template.
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func NewPolicyError(reason Reason, message string) *PolicyError {
	return &PolicyError{Reason: reason, Message: message}
}

func (pe *PolicyError) Error() string {
	if pe.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", pe.Reason, pe.Message, pe.Cause)
	}
	return fmt.Sprintf("%s: %s", pe.Reason, pe.Message)
}

func (pe *PolicyError) Is(target error) bool {
	t, ok := target.(*PolicyError)
	return ok && t.Reason == pe.Reason
}

func (pe *PolicyError) Unwrap() error {
	return pe.Cause
}

// WithDetail returns a copy of the error carrying one more template value.
func (pe *PolicyError) WithDetail(key string, value any) *PolicyError {
	cp := *pe
	cp.Details = make(map[string]any, len(pe.Details)+1)
	for k, v := range pe.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// WithCause returns a copy of the error carrying the underlying failure.
func (pe *PolicyError) WithCause(err error) *PolicyError {
	cp := *pe
	cp.Cause = err
	return &cp
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	Code       Reason `json:"code"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
		Code:       ReasonForbidden,
	}
}

func newOwnershipError(userID string, attemptID uint, action string) *PermissionError {
	pe := NewPermissionError(userID, attemptID, "attempt", action, "not owned by caller")
	pe.Code = ReasonNotOwner
	return pe
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEvaluationNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

func IsPolicy(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}

// IsConflict covers refusals caused by the current state of a resource.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyInProgress) ||
		errors.Is(err, ErrAttemptsExhausted) ||
		errors.Is(err, ErrNotInProgress) ||
		errors.Is(err, ErrNotSubmitted)
}

// ReasonOf extracts the reason code carried by err.
func ReasonOf(err error) Reason {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	var perm *PermissionError
	if errors.As(err, &perm) {
		return perm.Code
	}
	switch {
	case IsNotFound(err):
		return ReasonNotFound
	case IsValidation(err):
		return ReasonValidation
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return ReasonForbidden
	}
	return ReasonInternal
}
