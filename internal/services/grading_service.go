package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	notifier  NotificationEventService
	validator *validator.Validator
	clock     Clock
	logger    *ServiceLogger
}

func NewGradingService(
	repo repositories.Repository,
	notifier NotificationEventService,
	validator *validator.Validator,
	clock Clock,
	logger *slog.Logger,
) GradingService {
	return &gradingService{
		repo:      repo,
		notifier:  notifier,
		validator: validator,
		clock:     clock,
		logger:    NewServiceLogger(logger, LogConfig{Service: "evaluation-service", Component: "grading"}),
	}
}

// Grade records the final score of a submitted attempt. The plagiarism
// classification is reported alongside but never blocks or alters the grade.
func (s *gradingService) Grade(ctx context.Context, req *GradeRequest, actor models.Actor) (res *GradeResult, err error) {
	op := s.logger.WithOperation(ctx, "grade_attempt", actor.ID)
	defer func() { op.LogResult(req.AttemptID, "attempt", err) }()

	if !actor.Role.CanGrade() {
		return nil, NewPermissionError(actor.ID, req.AttemptID, "attempt", "grade", "only teachers can grade")
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		attempt *models.Attempt
		eval    *models.Evaluation
		graded  bool
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempts().GetByIDForUpdate(ctx, tx, req.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		eval, err = getEvaluation(ctx, s.repo, tx, attempt.EvaluationID)
		if err != nil {
			return err
		}

		switch attempt.Status {
		case models.AttemptGraded:
			return nil
		case models.AttemptSubmitted:
		default:
			return ErrNotSubmitted
		}

		if req.Score < 0 || req.Score > eval.TotalPoints {
			return ErrInvalidScore.WithDetail("MaxScore", eval.TotalPoints)
		}

		var feedback *string
		if f := strings.TrimSpace(req.Feedback); f != "" {
			feedback = &f
		}
		applyGrade(attempt, scoring.Compute(req.Score, eval.TotalPoints, eval.PassingScore), actor.ID, feedback, s.clock.Now())
		if err := s.repo.Attempts().Update(ctx, tx, attempt); err != nil {
			return err
		}
		graded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res = gradeResult(attempt, eval)
	if !graded {
		res.AlreadyGraded = true
		return res, nil
	}

	s.logger.LogTransition(ctx, attempt.ID, string(models.AttemptSubmitted), string(models.AttemptGraded),
		"evaluation_id", attempt.EvaluationID,
		"student_id", attempt.StudentID,
		"graded_by", actor.ID,
		"score", req.Score)
	s.notifier.NotifyAttemptGraded(ctx, attempt, eval)
	return res, nil
}

func gradeResult(attempt *models.Attempt, eval *models.Evaluation) *GradeResult {
	res := &GradeResult{
		AttemptID:       attempt.ID,
		Status:          attempt.Status,
		AutoScore:       attempt.AutoScore,
		MaxScore:        eval.TotalPoints,
		Feedback:        attempt.Feedback,
		PlagiarismScore: attempt.PlagiarismScore,
		PlagiarismClass: attempt.PlagiarismClass,
	}
	if attempt.Score != nil {
		grade := scoring.Compute(*attempt.Score, eval.TotalPoints, eval.PassingScore)
		res.Score = grade.Score
		res.Percentage = grade.Percentage
		res.Passed = grade.Passed
		res.Letter = grade.Letter
	}
	if attempt.GradedBy != nil {
		res.GradedBy = *attempt.GradedBy
	}
	if attempt.GradedAt != nil {
		res.GradedAt = *attempt.GradedAt
	}
	return res
}
