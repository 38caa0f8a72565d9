package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/plagiarism"
	"github.com/SAP-F-2025/evaluation-service/internal/storage"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

var (
	student = models.Actor{ID: "student-1", Role: models.RoleStudent}
	other   = models.Actor{ID: "student-2", Role: models.RoleStudent}
	teacher = models.Actor{ID: "teacher-1", Role: models.RoleTeacher}

	baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Analyze(ctx context.Context, sub plagiarism.Submission) (*plagiarism.Analysis, error) {
	args := m.Called(ctx, sub)
	if a := args.Get(0); a != nil {
		return a.(*plagiarism.Analysis), args.Error(1)
	}
	return nil, args.Error(1)
}

type harness struct {
	repo      *fakeRepo
	clock     *fakeClock
	gateway   *mockGateway
	publisher *events.MockEventPublisher
	blobs     *storage.FSStore
	blobDir   string
	services  ServiceManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobDir := t.TempDir()
	blobs, err := storage.NewFSStore(blobDir)
	require.NoError(t, err)

	h := &harness{
		repo:      newFakeRepo(),
		clock:     &fakeClock{now: baseTime},
		gateway:   &mockGateway{},
		publisher: events.NewMockEventPublisher(logger),
		blobs:     blobs,
		blobDir:   blobDir,
	}
	h.services = NewServiceManager(Dependencies{
		Repo:      h.repo,
		Blobs:     h.blobs,
		Gateway:   h.gateway,
		Publisher: h.publisher,
		Clock:     h.clock,
		Attempts: AttemptOptions{
			Grace:  time.Minute,
			Upload: validator.UploadPolicy{MaxBytes: 1 << 20},
		},
		Logger: logger,
	})
	return h
}

// quiz is a 30 minute evaluation open from one hour ago to two hours from
// now, with four single-choice questions worth five points each.
func quiz(id uint) (*models.Evaluation, []*models.Question) {
	eval := &models.Evaluation{
		ID:              id,
		Title:           "Networks quiz",
		Type:            models.EvaluationQuiz,
		StartsAt:        baseTime.Add(-time.Hour),
		EndsAt:          baseTime.Add(2 * time.Hour),
		DurationMinutes: 30,
		TotalPoints:     20,
		PassingScore:    50,
		MaxAttempts:     2,
		ShowResults:     true,
	}
	var questions []*models.Question
	for i := 0; i < 4; i++ {
		questions = append(questions, &models.Question{
			ID:           id*10 + uint(i) + 1,
			EvaluationID: id,
			Position:     i + 1,
			Type:         models.QuestionSingleChoice,
			Text:         "Which layer?",
			Points:       5,
			Options: datatypes.JSONSlice[models.QuestionOption]{
				{ID: "a", Text: "Transport"},
				{ID: "b", Text: "Network"},
				{ID: "c", Text: "Link"},
			},
			AnswerKey: datatypes.JSONSlice[string]{"a"},
		})
	}
	return eval, questions
}

// project is a file-upload evaluation without questions.
func project(id uint) *models.Evaluation {
	return &models.Evaluation{
		ID:                 id,
		Title:              "Compiler project",
		Type:               models.EvaluationProject,
		StartsAt:           baseTime.Add(-time.Hour),
		EndsAt:             baseTime.Add(48 * time.Hour),
		DurationMinutes:    240,
		TotalPoints:        20,
		PassingScore:       50,
		MaxAttempts:        1,
		RequiresFileUpload: true,
		PlagiarismCheck:    true,
		ShowResults:        true,
	}
}

func (h *harness) addQuiz(id uint) (*models.Evaluation, []*models.Question) {
	eval, questions := quiz(id)
	h.repo.addEvaluation(eval, questions...)
	return eval, questions
}

func (h *harness) start(t *testing.T, evaluationID uint, actor models.Actor) *StartAttemptResponse {
	t.Helper()
	resp, err := h.services.Attempt().Start(context.Background(), &StartAttemptRequest{EvaluationID: evaluationID}, actor)
	require.NoError(t, err)
	return resp
}

func choose(questionID uint, option string) AnswerInput {
	return AnswerInput{QuestionID: questionID, Selected: []string{option}}
}

func textFile(name, content string) UploadedFile {
	return UploadedFile{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
