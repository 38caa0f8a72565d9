package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/plagiarism"
)

type recordingQueue struct {
	mu       sync.Mutex
	requests []events.PlagiarismRequest
	err      error
}

func (q *recordingQueue) Enqueue(ctx context.Context, req events.PlagiarismRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

func checkedExam(h *harness, id uint) []*models.Question {
	eval, questions := essayExam(id)
	eval.PlagiarismCheck = true
	h.repo.addEvaluation(eval, questions...)
	return questions
}

func TestPlagiarism_FileSubmissionIsClassified(t *testing.T) {
	h := newHarness(t)
	h.repo.addEvaluation(project(2))
	ctx := context.Background()

	var uploaded string
	h.gateway.On("Analyze", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sub := args.Get(1).(plagiarism.Submission)
			rc, err := sub.Files[0].Open(ctx)
			if assert.NoError(t, err) {
				b, _ := io.ReadAll(rc)
				rc.Close()
				uploaded = string(b)
			}
		}).
		Return(&plagiarism.Analysis{
			OverallScore: 45,
			Sources:      []plagiarism.Source{{Source: "github.com/someone/compiler", Similarity: 45, MatchedText: "func lex("}},
		}, nil).Once()

	resp := h.start(t, 2, student)
	res, err := h.services.Attempt().SubmitFiles(ctx, &SubmitFilesRequest{
		AttemptID: resp.AttemptID,
		Files:     []UploadedFile{textFile("lexer.go", "package lexer\n\nfunc lex(")},
	}, student)
	require.NoError(t, err)
	assert.Equal(t, models.PlagiarismPending, res.PlagiarismStatus)

	assert.Equal(t, "package lexer\n\nfunc lex(", uploaded)
	stored := h.repo.attempt(resp.AttemptID)
	assert.Equal(t, models.PlagiarismCompleted, stored.PlagiarismStatus)
	assert.Equal(t, 45.0, *stored.PlagiarismScore)
	assert.Equal(t, models.PlagiarismPlagiarized, *stored.PlagiarismClass)
	assert.Equal(t, models.AttemptSubmitted, stored.Status)
	assert.Len(t, h.publisher.EventsOfType(events.EventPlagiarismAnalyzed), 1)

	report, err := h.services.Plagiarism().Report(ctx, resp.AttemptID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Runs)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, "github.com/someone/compiler", report.Sources[0].Source)

	// the classification is advisory only
	graded, err := h.services.Grading().Grade(ctx, &GradeRequest{AttemptID: resp.AttemptID, Score: 14}, teacher)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptGraded, graded.Status)
	assert.Equal(t, models.PlagiarismPlagiarized, *graded.PlagiarismClass)
	h.gateway.AssertExpectations(t)
}

func TestPlagiarism_GatewayFailureLeavesAttemptPending(t *testing.T) {
	h := newHarness(t)
	questions := checkedExam(h, 1)
	ctx := context.Background()

	h.gateway.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()
	attemptID := submitEssay(t, h, 1, questions)

	stored := h.repo.attempt(attemptID)
	assert.Equal(t, models.AttemptSubmitted, stored.Status)
	assert.Equal(t, models.PlagiarismPending, stored.PlagiarismStatus)
	assert.Nil(t, stored.PlagiarismScore)

	_, err := h.services.Plagiarism().Report(ctx, attemptID, teacher)
	assert.ErrorIs(t, err, ErrReportNotFound)

	// grading does not wait for the analysis
	_, err = h.services.Grading().Grade(ctx, &GradeRequest{AttemptID: attemptID, Score: 12}, teacher)
	require.NoError(t, err)

	h.gateway.On("Analyze", mock.Anything, mock.MatchedBy(func(sub plagiarism.Submission) bool {
		return sub.AttemptID == attemptID && sub.Text == "Every operation appears to take effect atomically."
	})).Return(&plagiarism.Analysis{OverallScore: 20}, nil).Once()

	n, err := h.services.Plagiarism().RetryPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored = h.repo.attempt(attemptID)
	assert.Equal(t, models.PlagiarismCompleted, stored.PlagiarismStatus)
	assert.Equal(t, models.PlagiarismSuspicious, *stored.PlagiarismClass)
	assert.Equal(t, models.AttemptGraded, stored.Status)
	h.gateway.AssertExpectations(t)
}

func TestPlagiarism_Rerun(t *testing.T) {
	h := newHarness(t)
	questions := checkedExam(h, 1)
	ctx := context.Background()

	h.gateway.On("Analyze", mock.Anything, mock.Anything).Return(&plagiarism.Analysis{OverallScore: 5}, nil).Once()
	attemptID := submitEssay(t, h, 1, questions)

	h.clock.Advance(time.Hour)
	h.gateway.On("Analyze", mock.Anything, mock.Anything).Return(&plagiarism.Analysis{OverallScore: 62}, nil).Once()

	resp, err := h.services.Plagiarism().Rerun(ctx, attemptID, teacher)
	require.NoError(t, err)
	assert.False(t, resp.Queued)
	assert.Equal(t, models.PlagiarismCompleted, resp.PlagiarismStatus)

	report, err := h.services.Plagiarism().Report(ctx, attemptID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Runs)
	assert.Equal(t, 62.0, report.OverallScore)
	assert.Equal(t, models.PlagiarismPlagiarized, report.Classification)
	assert.Equal(t, baseTime.Add(time.Hour), report.AnalyzedAt)
	h.gateway.AssertExpectations(t)
}

func TestPlagiarism_Refusals(t *testing.T) {
	h := newHarness(t)
	h.addQuiz(1)
	ctx := context.Background()
	inProgress := h.start(t, 1, student).AttemptID

	_, err := h.services.Plagiarism().Report(ctx, inProgress, student)
	assert.Equal(t, ReasonForbidden, ReasonOf(err))

	_, err = h.services.Plagiarism().Rerun(ctx, inProgress, student)
	assert.Equal(t, ReasonForbidden, ReasonOf(err))

	_, err = h.services.Plagiarism().Rerun(ctx, inProgress, teacher)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	_, err = h.services.Plagiarism().Rerun(ctx, 999, teacher)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestPlagiarism_QueuedRequests(t *testing.T) {
	h := newHarness(t)
	checkedExam(h, 1)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := &recordingQueue{}
	svc := NewPlagiarismService(h.repo, h.gateway, queue, h.blobs, NewNotificationEventService(h.publisher, logger), h.clock, logger)

	attempt := &models.Attempt{
		EvaluationID:      1,
		StudentID:         student.ID,
		SequenceNumber:    1,
		Status:            models.AttemptSubmitted,
		StartedAt:         baseTime,
		TimeBudgetSeconds: 1800,
		PlagiarismStatus:  models.PlagiarismPending,
	}
	require.NoError(t, h.repo.Attempts().Create(ctx, nil, attempt))

	svc.Request(ctx, attempt, PlagiarismReasonSubmission, student.ID)

	require.Len(t, queue.requests, 1)
	assert.Equal(t, attempt.ID, queue.requests[0].AttemptID)
	assert.Equal(t, PlagiarismReasonSubmission, queue.requests[0].Reason)
	assert.Equal(t, baseTime, queue.requests[0].RequestedAt)
	h.gateway.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)

	queue.err = errors.New("broker down")
	svc.Request(ctx, attempt, PlagiarismReasonRetry, "")
	assert.Equal(t, models.PlagiarismPending, h.repo.attempt(attempt.ID).PlagiarismStatus)

	t.Run("handler settles disabled gateway", func(t *testing.T) {
		h.gateway.On("Analyze", mock.Anything, mock.Anything).Return(nil, plagiarism.ErrGatewayDisabled).Twice()

		err := svc.Process(ctx, queue.requests[0])
		assert.ErrorIs(t, err, plagiarism.ErrGatewayDisabled)

		assert.NoError(t, svc.Handler()(ctx, queue.requests[0]))
		assert.Equal(t, models.PlagiarismPending, h.repo.attempt(attempt.ID).PlagiarismStatus)
	})

	t.Run("processed requests are not analyzed twice", func(t *testing.T) {
		h.gateway.On("Analyze", mock.Anything, mock.Anything).Return(&plagiarism.Analysis{OverallScore: 3}, nil).Once()

		require.NoError(t, svc.Handler()(ctx, queue.requests[0]))
		require.NoError(t, svc.Handler()(ctx, queue.requests[0]))

		assert.Equal(t, models.PlagiarismCompleted, h.repo.attempt(attempt.ID).PlagiarismStatus)
		h.gateway.AssertExpectations(t)
	})

	t.Run("unknown attempts are dropped", func(t *testing.T) {
		assert.NoError(t, svc.Process(ctx, events.PlagiarismRequest{AttemptID: 12345}))
	})
}

func TestPlagiarism_OverlappingRunsStoreOneReport(t *testing.T) {
	h := newHarness(t)
	checkedExam(h, 1)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewPlagiarismService(h.repo, h.gateway, nil, h.blobs, NewNotificationEventService(h.publisher, logger), h.clock, logger)

	attempt := &models.Attempt{
		EvaluationID:      1,
		StudentID:         student.ID,
		SequenceNumber:    1,
		Status:            models.AttemptSubmitted,
		StartedAt:         baseTime,
		TimeBudgetSeconds: 1800,
		PlagiarismStatus:  models.PlagiarismPending,
	}
	require.NoError(t, h.repo.Attempts().Create(ctx, nil, attempt))
	req := events.PlagiarismRequest{AttemptID: attempt.ID, Reason: PlagiarismReasonRetry}

	// The first delivery is still waiting on the gateway when a second one
	// completes and stores its report.
	h.gateway.On("Analyze", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			require.NoError(t, svc.Process(ctx, req))
		}).
		Return(&plagiarism.Analysis{OverallScore: 50}, nil).Once()
	h.gateway.On("Analyze", mock.Anything, mock.Anything).
		Return(&plagiarism.Analysis{OverallScore: 10}, nil).Once()

	require.NoError(t, svc.Process(ctx, req))

	stored := h.repo.attempt(attempt.ID)
	assert.Equal(t, models.PlagiarismCompleted, stored.PlagiarismStatus)
	assert.Equal(t, 10.0, *stored.PlagiarismScore)

	report, err := h.repo.PlagiarismReports().GetByAttempt(ctx, nil, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Runs)
	assert.Equal(t, 10.0, report.OverallScore)
	assert.Len(t, h.publisher.EventsOfType(events.EventPlagiarismAnalyzed), 1)
	h.gateway.AssertExpectations(t)
}
