package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/plagiarism"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/storage"
)

const (
	PlagiarismReasonSubmission = "submission"
	PlagiarismReasonRerun      = "rerun"
	PlagiarismReasonRetry      = "retry"
)

type plagiarismService struct {
	repo     repositories.Repository
	gateway  plagiarism.Gateway
	queue    events.PlagiarismQueue
	blobs    storage.BlobStore
	notifier NotificationEventService
	clock    Clock
	logger   *ServiceLogger
}

// NewPlagiarismService wires the analysis flow. With a nil queue requests are
// analyzed inline, still without ever failing the caller.
func NewPlagiarismService(
	repo repositories.Repository,
	gateway plagiarism.Gateway,
	queue events.PlagiarismQueue,
	blobs storage.BlobStore,
	notifier NotificationEventService,
	clock Clock,
	logger *slog.Logger,
) PlagiarismService {
	return &plagiarismService{
		repo:     repo,
		gateway:  gateway,
		queue:    queue,
		blobs:    blobs,
		notifier: notifier,
		clock:    clock,
		logger:   NewServiceLogger(logger, LogConfig{Service: "evaluation-service", Component: "plagiarism"}),
	}
}

func (s *plagiarismService) Request(ctx context.Context, attempt *models.Attempt, reason, requestedBy string) {
	req := events.PlagiarismRequest{
		AttemptID:   attempt.ID,
		Reason:      reason,
		RequestedBy: requestedBy,
		RequestedAt: s.clock.Now(),
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, req); err != nil {
			s.logger.Logger().WarnContext(ctx, "Failed to enqueue plagiarism check, left pending",
				"attempt_id", attempt.ID,
				"error", err)
		}
		return
	}

	if err := s.Process(ctx, req); err != nil {
		s.logger.Logger().WarnContext(ctx, "Plagiarism check failed, left pending",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

// Process runs one analysis and stores its report. An error leaves the
// attempt PENDING for a later retry.
func (s *plagiarismService) Process(ctx context.Context, req events.PlagiarismRequest) error {
	attempt, err := s.repo.Attempts().GetByID(ctx, nil, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Logger().WarnContext(ctx, "Dropping plagiarism request for unknown attempt", "attempt_id", req.AttemptID)
			return nil
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.PlagiarismStatus != models.PlagiarismPending {
		s.logger.Logger().DebugContext(ctx, "Plagiarism request no longer pending",
			"attempt_id", attempt.ID,
			"plagiarism_status", attempt.PlagiarismStatus)
		return nil
	}

	analysis, err := s.gateway.Analyze(ctx, s.submissionFor(attempt))
	if err != nil {
		return fmt.Errorf("plagiarism gateway: %w", err)
	}
	report := plagiarism.Report(attempt.ID, analysis, s.clock.Now())

	superseded := false
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.Attempts().GetByIDForUpdate(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		// Another delivery of the same request may have finished while the
		// gateway was running.
		if locked.PlagiarismStatus != models.PlagiarismPending {
			superseded = true
			return nil
		}
		if err := s.repo.PlagiarismReports().Upsert(ctx, tx, report); err != nil {
			return err
		}
		locked.PlagiarismStatus = models.PlagiarismCompleted
		locked.PlagiarismScore = &report.OverallScore
		locked.PlagiarismClass = &report.Classification
		if err := s.repo.Attempts().Update(ctx, tx, locked); err != nil {
			return err
		}
		attempt = locked
		return nil
	})
	if err != nil {
		return err
	}
	if superseded {
		s.logger.Logger().DebugContext(ctx, "Plagiarism analysis already stored by another run", "attempt_id", attempt.ID)
		return nil
	}

	s.logger.Logger().InfoContext(ctx, "Plagiarism analysis stored",
		"attempt_id", attempt.ID,
		"overall_score", report.OverallScore,
		"classification", report.Classification,
		"reason", req.Reason)
	s.notifier.NotifyPlagiarismAnalyzed(ctx, attempt, report)
	return nil
}

func (s *plagiarismService) submissionFor(attempt *models.Attempt) plagiarism.Submission {
	sub := plagiarism.Submission{AttemptID: attempt.ID}

	var texts []string
	if attempt.SubmissionText != nil {
		texts = append(texts, *attempt.SubmissionText)
	}
	for _, a := range attempt.Answers {
		if t := a.Response.Data().Text; a.NeedsManual && t != "" {
			texts = append(texts, t)
		}
	}
	sub.Text = strings.Join(texts, "\n\n")

	for _, artifact := range attempt.Artifacts {
		key := artifact.StorageKey
		sub.Files = append(sub.Files, plagiarism.File{
			Name:        artifact.FileName,
			ContentType: artifact.ContentType,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return s.blobs.Get(ctx, key)
			},
		})
	}
	return sub
}

func (s *plagiarismService) RetryPending(ctx context.Context, limit int) (int, error) {
	attempts, err := s.repo.Attempts().ListPlagiarismPending(ctx, nil, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending analyses: %w", err)
	}
	for _, attempt := range attempts {
		s.Request(ctx, attempt, PlagiarismReasonRetry, "")
	}
	return len(attempts), nil
}

func (s *plagiarismService) Report(ctx context.Context, attemptID uint, actor models.Actor) (*models.PlagiarismReport, error) {
	if !actor.Role.CanGrade() {
		return nil, NewPermissionError(actor.ID, attemptID, "plagiarism_report", "read", "only teachers can read plagiarism reports")
	}
	report, err := s.repo.PlagiarismReports().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get plagiarism report: %w", err)
	}
	return report, nil
}

// Rerun marks a submitted attempt pending again and schedules a new analysis.
func (s *plagiarismService) Rerun(ctx context.Context, attemptID uint, actor models.Actor) (*PlagiarismRerunResponse, error) {
	if !actor.Role.CanGrade() {
		return nil, NewPermissionError(actor.ID, attemptID, "plagiarism_report", "rerun", "only teachers can rerun plagiarism checks")
	}

	var attempt *models.Attempt
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempts().GetByIDForUpdate(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if attempt.Status != models.AttemptSubmitted && attempt.Status != models.AttemptGraded {
			return ErrNotSubmitted
		}
		attempt.PlagiarismStatus = models.PlagiarismPending
		return s.repo.Attempts().Update(ctx, tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Logger().InfoContext(ctx, "Plagiarism rerun requested",
		"attempt_id", attemptID,
		"requested_by", actor.ID)
	s.Request(ctx, attempt, PlagiarismReasonRerun, actor.ID)

	// Inline runs may have completed already.
	status := models.PlagiarismPending
	if s.queue == nil {
		if refreshed, err := s.repo.Attempts().GetByID(ctx, nil, attemptID); err == nil {
			status = refreshed.PlagiarismStatus
		}
	}
	return &PlagiarismRerunResponse{
		AttemptID:        attemptID,
		PlagiarismStatus: status,
		Queued:           s.queue != nil,
	}, nil
}

// Handler adapts Process for the queue consumer. A gateway that is not
// configured is not retried; the reconcile sweep picks the attempt up later.
func (s *plagiarismService) Handler() events.PlagiarismHandler {
	return func(ctx context.Context, req events.PlagiarismRequest) error {
		err := s.Process(ctx, req)
		if errors.Is(err, plagiarism.ErrGatewayDisabled) {
			return nil
		}
		return err
	}
}
