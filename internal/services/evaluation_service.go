package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type evaluationService struct {
	repo   repositories.Repository
	clock  Clock
	logger *ServiceLogger
}

func NewEvaluationService(repo repositories.Repository, clock Clock, logger *slog.Logger) EvaluationService {
	return &evaluationService{
		repo:   repo,
		clock:  clock,
		logger: NewServiceLogger(logger, LogConfig{Service: "evaluation-service", Component: "evaluations"}),
	}
}

// Get returns the student-safe definition. Students also see how many
// attempts they used and whether one is still open.
func (s *evaluationService) Get(ctx context.Context, evaluationID uint, actor models.Actor) (view *EvaluationView, err error) {
	op := s.logger.WithOperation(ctx, "get_evaluation", actor.ID)
	defer func() { op.LogResult(evaluationID, "evaluation", err) }()

	eval, err := getEvaluation(ctx, s.repo, nil, evaluationID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.Questions().GetByEvaluation(ctx, nil, eval.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	public := *eval
	public.Questions = nil
	public.Audience = nil
	view = &EvaluationView{
		Evaluation:    &public,
		QuestionCount: len(questions),
		WindowOpen:    eval.WindowOpen(s.clock.Now()),
	}
	if actor.Role.CanGrade() {
		return view, nil
	}

	entitled, err := s.repo.Evaluations().IsEntitled(ctx, nil, eval.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check audience: %w", err)
	}
	if !entitled {
		return nil, ErrNotEntitled
	}

	used, err := s.repo.Attempts().CountByStudent(ctx, nil, eval.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	remaining := max(eval.MaxAttempts-used, 0)
	view.AttemptsUsed = &used
	view.AttemptsRemaining = &remaining

	active, err := s.repo.Attempts().GetActive(ctx, nil, eval.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}
	if active != nil {
		view.ActiveAttemptID = &active.ID
	}
	return view, nil
}

func (s *evaluationService) ListAttempts(ctx context.Context, evaluationID uint, filters repositories.AttemptFilters, actor models.Actor) (resp *AttemptListResponse, err error) {
	op := s.logger.WithOperation(ctx, "list_attempts", actor.ID)
	defer func() { op.LogResult(evaluationID, "evaluation", err) }()

	if !actor.Role.CanGrade() {
		return nil, NewPermissionError(actor.ID, evaluationID, "evaluation", "list_attempts", "only teachers can list attempts")
	}
	eval, err := getEvaluation(ctx, s.repo, nil, evaluationID)
	if err != nil {
		return nil, err
	}

	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	attempts, total, err := s.repo.Attempts().ListByEvaluation(ctx, nil, evaluationID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	resp = &AttemptListResponse{
		Attempts: make([]*AttemptSummary, 0, len(attempts)),
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptSummary(a, eval.TotalPoints))
	}
	return resp, nil
}

func attemptSummary(a *models.Attempt, total float64) *AttemptSummary {
	return &AttemptSummary{
		ID:               a.ID,
		StudentID:        a.StudentID,
		SequenceNumber:   a.SequenceNumber,
		Status:           a.Status,
		StartedAt:        a.StartedAt,
		SubmittedAt:      a.SubmittedAt,
		IsLate:           a.IsLate,
		AutoScore:        a.AutoScore,
		Score:            a.Score,
		Percentage:       a.Percentage,
		Passed:           a.Passed,
		Letter:           letterOf(a, total),
		PlagiarismStatus: a.PlagiarismStatus,
		PlagiarismScore:  a.PlagiarismScore,
		PlagiarismClass:  a.PlagiarismClass,
	}
}
