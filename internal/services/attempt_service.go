package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
	"github.com/SAP-F-2025/evaluation-service/internal/storage"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type AttemptOptions struct {
	// Grace is tolerated past the time budget before a submission counts as late.
	Grace  time.Duration
	Upload validator.UploadPolicy
}

type attemptService struct {
	repo       repositories.Repository
	engine     *scoring.Engine
	blobs      storage.BlobStore
	plagiarism PlagiarismService
	notifier   NotificationEventService
	validator  *validator.Validator
	clock      Clock
	opts       AttemptOptions
	logger     *ServiceLogger
}

func NewAttemptService(
	repo repositories.Repository,
	blobs storage.BlobStore,
	plagiarism PlagiarismService,
	notifier NotificationEventService,
	validator *validator.Validator,
	clock Clock,
	opts AttemptOptions,
	logger *slog.Logger,
) AttemptService {
	return &attemptService{
		repo:       repo,
		engine:     scoring.NewEngine(),
		blobs:      blobs,
		plagiarism: plagiarism,
		notifier:   notifier,
		validator:  validator,
		clock:      clock,
		opts:       opts,
		logger:     NewServiceLogger(logger, LogConfig{Service: "evaluation-service", Component: "attempts"}),
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, actor models.Actor) (resp *StartAttemptResponse, err error) {
	op := s.logger.WithOperation(ctx, "start_attempt", actor.ID)
	defer func() { op.LogResult(req.EvaluationID, "evaluation", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, NewPermissionError(actor.ID, req.EvaluationID, "evaluation", "start", "only students sit evaluations")
	}

	eval, err := s.loadEvaluation(ctx, nil, req.EvaluationID)
	if err != nil {
		return nil, err
	}

	entitled, err := s.repo.Evaluations().IsEntitled(ctx, nil, eval.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check audience: %w", err)
	}
	if !entitled {
		return nil, ErrNotEntitled
	}

	now := s.clock.Now()

	active, err := s.repo.Attempts().GetActive(ctx, nil, eval.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}
	if active != nil {
		if _, err := s.closeIfExpired(ctx, active, eval, now); err != nil {
			return nil, err
		}
		if active.Status == models.AttemptInProgress {
			return s.resume(ctx, active, eval, now)
		}
	}

	if !eval.WindowOpen(now) {
		return nil, ErrOutsideWindow
	}

	questions, err := s.repo.Questions().GetByEvaluation(ctx, nil, eval.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if err := s.validator.ValidateDefinition(eval, questions); err != nil {
		return nil, ErrInvalidDefinition.WithCause(err)
	}

	attempt := &models.Attempt{
		EvaluationID:      eval.ID,
		StudentID:         actor.ID,
		Status:            models.AttemptInProgress,
		StartedAt:         now,
		TimeBudgetSeconds: int(eval.TimeBudget() / time.Second),
		PlagiarismStatus:  models.PlagiarismNotRequired,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		used, err := s.repo.Attempts().CountByStudent(ctx, tx, eval.ID, actor.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if used >= eval.MaxAttempts {
			return ErrAttemptsExhausted
		}
		attempt.SequenceNumber = used + 1
		return s.repo.Attempts().Create(ctx, tx, attempt)
	})
	if repositories.IsDuplicateError(err) {
		// A concurrent start won the race; hand its attempt back.
		winner, getErr := s.repo.Attempts().GetActive(ctx, nil, eval.ID, actor.ID)
		if getErr == nil && winner != nil {
			return s.resume(ctx, winner, eval, now)
		}
		return nil, fmt.Errorf("%w: concurrent start for evaluation %d", ErrConflict, eval.ID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.LogTransition(ctx, attempt.ID, string(models.AttemptNotStarted), string(attempt.Status),
		"evaluation_id", eval.ID,
		"student_id", actor.ID,
		"sequence_number", attempt.SequenceNumber)
	s.notifier.NotifyAttemptStarted(ctx, attempt, eval)

	return &StartAttemptResponse{
		AttemptID:            attempt.ID,
		EvaluationID:         eval.ID,
		SequenceNumber:       attempt.SequenceNumber,
		Status:               attempt.Status,
		StartedAt:            attempt.StartedAt,
		Deadline:             attempt.Deadline(),
		TimeRemainingSeconds: attempt.RemainingSeconds(now),
		Questions:            orderedQuestions(attempt.ID, eval, questions),
	}, nil
}

func (s *attemptService) resume(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation, now time.Time) (*StartAttemptResponse, error) {
	questions, err := s.repo.Questions().GetByEvaluation(ctx, nil, eval.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	drafts, err := s.repo.Answers().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft answers: %w", err)
	}

	s.logger.Logger().InfoContext(ctx, "Resuming attempt in progress",
		"attempt_id", attempt.ID,
		"evaluation_id", eval.ID,
		"student_id", attempt.StudentID)

	return &StartAttemptResponse{
		AttemptID:            attempt.ID,
		EvaluationID:         eval.ID,
		SequenceNumber:       attempt.SequenceNumber,
		Status:               attempt.Status,
		StartedAt:            attempt.StartedAt,
		Deadline:             attempt.Deadline(),
		TimeRemainingSeconds: attempt.RemainingSeconds(now),
		Questions:            orderedQuestions(attempt.ID, eval, questions),
		Answers:              draftInputs(drafts),
		Resumed:              true,
	}, nil
}

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, actor models.Actor) (res *SubmitResult, err error) {
	op := s.logger.WithOperation(ctx, "submit_attempt", actor.ID)
	defer func() { op.LogResult(req.AttemptID, "attempt", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.finalize(ctx, submission{
		attemptID: req.AttemptID,
		actor:     actor,
		answers:   req.Answers,
	})
}

// SubmitFiles streams the uploads into the blob store before finalizing.
// Blobs are released on every failure path and kept only once the attempt
// row that references them is committed.
func (s *attemptService) SubmitFiles(ctx context.Context, req *SubmitFilesRequest, actor models.Actor) (res *SubmitResult, err error) {
	op := s.logger.WithOperation(ctx, "submit_attempt_files", actor.ID)
	defer func() { op.LogResult(req.AttemptID, "attempt", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	for _, f := range req.Files {
		if err := s.opts.Upload.ValidateUpload(f.Name, f.Size); err != nil {
			return nil, ErrInvalidUpload.WithCause(err)
		}
	}

	attempt, err := s.loadAttempt(ctx, nil, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsOwnedBy(actor.ID) {
		return nil, newOwnershipError(actor.ID, attempt.ID, "submit")
	}
	sub := submission{
		attemptID: req.AttemptID,
		actor:     actor,
		answers:   req.Answers,
		text:      req.Text,
	}
	if attempt.Status.IsTerminal() {
		return s.finalize(ctx, sub)
	}

	session := storage.NewUploadSession(s.blobs)
	defer func() {
		if releaseErr := session.Release(); releaseErr != nil {
			s.logger.Logger().ErrorContext(ctx, "Failed to release uploaded files",
				"attempt_id", attempt.ID,
				"error", releaseErr)
		}
	}()

	for _, f := range req.Files {
		artifact, err := s.storeFile(ctx, session, attempt.ID, f)
		if err != nil {
			return nil, err
		}
		sub.artifacts = append(sub.artifacts, artifact)
	}

	res, err = s.finalize(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !res.Idempotent {
		session.Commit()
	}
	return res, nil
}

func (s *attemptService) storeFile(ctx context.Context, session *storage.UploadSession, attemptID uint, f UploadedFile) (*models.Artifact, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", f.Name, err)
	}
	defer rc.Close()

	key := storage.ArtifactKey(attemptID, f.Name)
	n, err := session.Put(ctx, key, rc)
	if err != nil {
		return nil, err
	}
	return &models.Artifact{
		AttemptID:   attemptID,
		FileName:    filepath.Base(f.Name),
		StorageKey:  key,
		ContentType: f.ContentType,
		SizeBytes:   n,
	}, nil
}

type submission struct {
	attemptID uint
	actor     models.Actor
	answers   []AnswerInput
	text      string
	artifacts []*models.Artifact
}

// finalize is the single path by which an attempt leaves IN_PROGRESS through
// a submit. The attempt row is locked for the whole transaction, so duplicate
// submits serialize and the second one sees a closed attempt.
func (s *attemptService) finalize(ctx context.Context, sub submission) (*SubmitResult, error) {
	var (
		res       *SubmitResult
		attempt   *models.Attempt
		eval      *models.Evaluation
		manualIDs []uint
		closed    bool
	)

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempts().GetByIDForUpdate(ctx, tx, sub.attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if !attempt.IsOwnedBy(sub.actor.ID) {
			return newOwnershipError(sub.actor.ID, attempt.ID, "submit")
		}

		eval, err = s.loadEvaluation(ctx, tx, attempt.EvaluationID)
		if err != nil {
			return err
		}

		if attempt.Status.IsTerminal() {
			artifacts, err := s.repo.Artifacts().GetByAttempt(ctx, tx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to get artifacts: %w", err)
			}
			res = submitResult(attempt, eval, len(artifacts))
			res.Idempotent = true
			return nil
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrNotInProgress
		}

		questions, err := s.repo.Questions().GetByEvaluation(ctx, tx, eval.ID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}
		answers := s.answerMap(ctx, attempt.ID, questions, sub.answers)

		now := s.clock.Now()
		result := s.engine.ScoreAttempt(eval.TotalPoints, questions, answers)

		elapsed := int(now.Sub(attempt.StartedAt) / time.Second)
		attempt.Status = models.AttemptSubmitted
		attempt.SubmittedAt = &now
		attempt.ElapsedSeconds = &elapsed
		attempt.IsLate = attempt.Overdue(now, s.opts.Grace)
		attempt.AutoScore = &result.AutoScore
		if sub.text != "" {
			attempt.SubmissionText = &sub.text
		}

		if err := s.repo.Answers().Upsert(ctx, tx, answerRows(attempt.ID, questions, answers, result)); err != nil {
			return err
		}
		if len(sub.artifacts) > 0 {
			if err := s.repo.Artifacts().Create(ctx, tx, sub.artifacts); err != nil {
				return err
			}
		}

		if result.NeedsManual || eval.RequiresFileUpload {
			manualIDs = manualQuestionIDs(result)
		} else {
			applyGrade(attempt, scoring.Compute(result.AutoScore, eval.TotalPoints, eval.PassingScore), models.SystemGrader, nil, now)
		}
		if needsPlagiarismCheck(eval, sub, questions, answers) {
			attempt.PlagiarismStatus = models.PlagiarismPending
		}

		if err := s.repo.Attempts().Update(ctx, tx, attempt); err != nil {
			return err
		}

		closed = true
		res = submitResult(attempt, eval, len(sub.artifacts))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closed {
		s.afterSubmit(ctx, attempt, eval, sub, manualIDs)
	}
	if !eval.ShowResults {
		res.hideScores()
	}
	return res, nil
}

func (s *attemptService) afterSubmit(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation, sub submission, manualIDs []uint) {
	s.logger.LogTransition(ctx, attempt.ID, string(models.AttemptInProgress), string(attempt.Status),
		"evaluation_id", attempt.EvaluationID,
		"student_id", attempt.StudentID,
		"is_late", attempt.IsLate,
		"artifact_count", len(sub.artifacts))

	s.notifier.NotifyAttemptSubmitted(ctx, attempt, len(sub.artifacts))
	if attempt.Status == models.AttemptGraded {
		s.notifier.NotifyAttemptGraded(ctx, attempt, eval)
	} else {
		s.notifier.NotifyManualGradingRequired(ctx, attempt, manualIDs)
	}

	if attempt.PlagiarismStatus == models.PlagiarismPending && s.plagiarism != nil {
		s.plagiarism.Request(ctx, attempt, "submission", sub.actor.ID)
	}
}

// ===== READ OPERATIONS =====

func (s *attemptService) Get(ctx context.Context, attemptID uint, actor models.Actor) (*AttemptView, error) {
	attempt, eval, err := s.readAttempt(ctx, attemptID, actor)
	if err != nil {
		return nil, err
	}

	var questions []*models.Question
	if actor.Role.CanGrade() || attempt.Status == models.AttemptInProgress {
		questions, err = s.repo.Questions().GetByEvaluation(ctx, nil, eval.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get questions: %w", err)
		}
	}

	return s.attemptView(attempt, eval, questions, actor, s.clock.Now()), nil
}

func (s *attemptService) TimeRemaining(ctx context.Context, attemptID uint, actor models.Actor) (*TimeRemainingResponse, error) {
	attempt, _, err := s.readAttempt(ctx, attemptID, actor)
	if err != nil {
		return nil, err
	}
	return timeRemaining(attempt, s.clock.Now()), nil
}

// readAttempt loads an attempt for a reader and applies the lazy MISSED
// transition before anything is reported.
func (s *attemptService) readAttempt(ctx context.Context, attemptID uint, actor models.Actor) (*models.Attempt, *models.Evaluation, error) {
	attempt, err := s.loadAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if !attempt.IsOwnedBy(actor.ID) && !actor.Role.CanGrade() {
		return nil, nil, newOwnershipError(actor.ID, attemptID, "read")
	}

	eval, err := s.loadEvaluation(ctx, nil, attempt.EvaluationID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.closeIfExpired(ctx, attempt, eval, s.clock.Now()); err != nil {
		return nil, nil, err
	}
	return attempt, eval, nil
}

// ===== DRAFTS =====

func (s *attemptService) SaveDraft(ctx context.Context, req *SaveDraftRequest, actor models.Actor) (*TimeRemainingResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		attempt *models.Attempt
		now     time.Time
	)
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempts().GetByIDForUpdate(ctx, tx, req.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if !attempt.IsOwnedBy(actor.ID) {
			return newOwnershipError(actor.ID, attempt.ID, "save_draft")
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrNotInProgress
		}
		now = s.clock.Now()
		if attempt.Overdue(now, s.opts.Grace) {
			return ErrTimeExpired
		}

		questions, err := s.repo.Questions().GetByEvaluation(ctx, tx, attempt.EvaluationID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}
		rows, verrs := draftRows(attempt.ID, questions, req.Answers)
		if len(verrs) > 0 {
			return verrs
		}
		return s.repo.Answers().Upsert(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Logger().DebugContext(ctx, "Draft answers saved",
		"attempt_id", attempt.ID,
		"answers_count", len(req.Answers))
	return timeRemaining(attempt, now), nil
}

// ===== EXPIRY =====

func (s *attemptService) ReconcileExpired(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	attempts, err := s.repo.Attempts().ListWindowClosed(ctx, nil, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired attempts: %w", err)
	}

	missed := 0
	for _, attempt := range attempts {
		eval := attempt.Evaluation
		if eval == nil {
			if eval, err = s.loadEvaluation(ctx, nil, attempt.EvaluationID); err != nil {
				s.logger.Logger().ErrorContext(ctx, "Failed to load evaluation for expired attempt",
					"attempt_id", attempt.ID,
					"error", err)
				continue
			}
		}
		ok, err := s.closeIfExpired(ctx, attempt, eval, now)
		if err != nil {
			s.logger.Logger().ErrorContext(ctx, "Failed to mark attempt missed",
				"attempt_id", attempt.ID,
				"error", err)
			continue
		}
		if ok {
			missed++
		}
	}
	return missed, nil
}

// closeIfExpired marks an IN_PROGRESS attempt MISSED when its evaluation
// window has closed and its time budget plus grace is spent. The attempt's
// status is refreshed in place; the result is true when this call did the
// transition.
func (s *attemptService) closeIfExpired(ctx context.Context, attempt *models.Attempt, eval *models.Evaluation, now time.Time) (bool, error) {
	if attempt.Status != models.AttemptInProgress || !eval.WindowClosed(now) || !attempt.Overdue(now, s.opts.Grace) {
		return false, nil
	}

	marked := false
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.Attempts().GetByIDForUpdate(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if !locked.Status.CanTransitionTo(models.AttemptMissed) {
			attempt.Status = locked.Status
			return nil
		}
		locked.Status = models.AttemptMissed
		if err := s.repo.Attempts().Update(ctx, tx, locked); err != nil {
			return err
		}
		attempt.Status = models.AttemptMissed
		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if marked {
		s.logger.LogTransition(ctx, attempt.ID, string(models.AttemptInProgress), string(models.AttemptMissed),
			"evaluation_id", attempt.EvaluationID,
			"student_id", attempt.StudentID)
		s.notifier.NotifyAttemptMissed(ctx, attempt, now)
	}
	return marked, nil
}

// ===== LOADERS =====

func (s *attemptService) loadEvaluation(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	return getEvaluation(ctx, s.repo, tx, id)
}

func getEvaluation(ctx context.Context, repo repositories.Repository, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	eval, err := repo.Evaluations().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return eval, nil
}

func (s *attemptService) loadAttempt(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempts().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}
