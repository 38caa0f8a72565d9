package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// NotificationEventService turns attempt lifecycle changes into events.
// Delivery is someone else's job; publish failures are logged and swallowed
// so that a broker outage never fails a student's request.
type NotificationEventService interface {
	NotifyAttemptStarted(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation)
	NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt, artifactCount int)
	NotifyAttemptGraded(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation)
	NotifyAttemptMissed(ctx context.Context, attempt *models.Attempt, missedAt time.Time)
	NotifyManualGradingRequired(ctx context.Context, attempt *models.Attempt, questionIDs []uint)
	NotifyPlagiarismAnalyzed(ctx context.Context, attempt *models.Attempt, report *models.PlagiarismReport)
}

type notificationEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewNotificationEventService(eventPublisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ===== ATTEMPT NOTIFICATIONS =====

func (s *notificationEventService) NotifyAttemptStarted(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation) {
	s.publish(ctx, events.NewAttemptStartedEvent(events.AttemptStartedEvent{
		AttemptID:       attempt.ID,
		EvaluationID:    attempt.EvaluationID,
		EvaluationTitle: eval.Title,
		StudentID:       attempt.StudentID,
		SequenceNumber:  attempt.SequenceNumber,
		StartedAt:       attempt.StartedAt,
		Deadline:        attempt.Deadline(),
	}))
}

func (s *notificationEventService) NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt, artifactCount int) {
	data := events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		EvaluationID:  attempt.EvaluationID,
		StudentID:     attempt.StudentID,
		IsLate:        attempt.IsLate,
		ArtifactCount: artifactCount,
	}
	if attempt.SubmittedAt != nil {
		data.SubmittedAt = *attempt.SubmittedAt
	}
	if attempt.ElapsedSeconds != nil {
		data.ElapsedSeconds = *attempt.ElapsedSeconds
	}
	s.publish(ctx, events.NewAttemptSubmittedEvent(data))
}

func (s *notificationEventService) NotifyAttemptGraded(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation) {
	if attempt.Score == nil {
		return
	}
	grade := scoring.Compute(*attempt.Score, eval.TotalPoints, eval.PassingScore)
	data := events.AttemptGradedEvent{
		AttemptID:    attempt.ID,
		EvaluationID: attempt.EvaluationID,
		StudentID:    attempt.StudentID,
		Score:        grade.Score,
		MaxScore:     grade.MaxScore,
		Percentage:   grade.Percentage,
		Passed:       grade.Passed,
		Letter:       string(grade.Letter),
		Plagiarism:   attempt.PlagiarismScore,
	}
	if attempt.GradedBy != nil {
		data.GradedBy = *attempt.GradedBy
	}
	s.publish(ctx, events.NewAttemptGradedEvent(data))
}

func (s *notificationEventService) NotifyAttemptMissed(ctx context.Context, attempt *models.Attempt, missedAt time.Time) {
	s.publish(ctx, events.NewAttemptMissedEvent(events.AttemptMissedEvent{
		AttemptID:    attempt.ID,
		EvaluationID: attempt.EvaluationID,
		StudentID:    attempt.StudentID,
		MissedAt:     missedAt,
	}))
}

// ===== GRADING NOTIFICATIONS =====

func (s *notificationEventService) NotifyManualGradingRequired(ctx context.Context, attempt *models.Attempt, questionIDs []uint) {
	data := events.ManualGradingRequiredEvent{
		AttemptID:    attempt.ID,
		EvaluationID: attempt.EvaluationID,
		StudentID:    attempt.StudentID,
		QuestionIDs:  questionIDs,
		Plagiarism:   attempt.PlagiarismScore,
	}
	if attempt.AutoScore != nil {
		data.AutoScore = *attempt.AutoScore
	}
	s.publish(ctx, events.NewManualGradingRequiredEvent(data))
}

func (s *notificationEventService) NotifyPlagiarismAnalyzed(ctx context.Context, attempt *models.Attempt, report *models.PlagiarismReport) {
	s.publish(ctx, events.NewPlagiarismAnalyzedEvent(events.PlagiarismAnalyzedEvent{
		AttemptID:      attempt.ID,
		EvaluationID:   attempt.EvaluationID,
		StudentID:      attempt.StudentID,
		OverallScore:   report.OverallScore,
		Classification: string(report.Classification),
	}))
}

func (s *notificationEventService) publish(ctx context.Context, event *events.NotificationEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
