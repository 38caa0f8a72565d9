package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
)

type mockAttemptService struct{ mock.Mock }

func (m *mockAttemptService) Start(ctx context.Context, req *services.StartAttemptRequest, actor models.Actor) (*services.StartAttemptResponse, error) {
	args := m.Called(ctx, req, actor)
	resp, _ := args.Get(0).(*services.StartAttemptResponse)
	return resp, args.Error(1)
}

func (m *mockAttemptService) Submit(ctx context.Context, req *services.SubmitAttemptRequest, actor models.Actor) (*services.SubmitResult, error) {
	args := m.Called(ctx, req, actor)
	res, _ := args.Get(0).(*services.SubmitResult)
	return res, args.Error(1)
}

func (m *mockAttemptService) SubmitFiles(ctx context.Context, req *services.SubmitFilesRequest, actor models.Actor) (*services.SubmitResult, error) {
	args := m.Called(ctx, req, actor)
	res, _ := args.Get(0).(*services.SubmitResult)
	return res, args.Error(1)
}

func (m *mockAttemptService) Get(ctx context.Context, attemptID uint, actor models.Actor) (*services.AttemptView, error) {
	args := m.Called(ctx, attemptID, actor)
	view, _ := args.Get(0).(*services.AttemptView)
	return view, args.Error(1)
}

func (m *mockAttemptService) TimeRemaining(ctx context.Context, attemptID uint, actor models.Actor) (*services.TimeRemainingResponse, error) {
	args := m.Called(ctx, attemptID, actor)
	resp, _ := args.Get(0).(*services.TimeRemainingResponse)
	return resp, args.Error(1)
}

func (m *mockAttemptService) SaveDraft(ctx context.Context, req *services.SaveDraftRequest, actor models.Actor) (*services.TimeRemainingResponse, error) {
	args := m.Called(ctx, req, actor)
	resp, _ := args.Get(0).(*services.TimeRemainingResponse)
	return resp, args.Error(1)
}

func (m *mockAttemptService) ReconcileExpired(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type mockGradingService struct{ mock.Mock }

func (m *mockGradingService) Grade(ctx context.Context, req *services.GradeRequest, actor models.Actor) (*services.GradeResult, error) {
	args := m.Called(ctx, req, actor)
	res, _ := args.Get(0).(*services.GradeResult)
	return res, args.Error(1)
}

type mockPlagiarismService struct{ mock.Mock }

func (m *mockPlagiarismService) Request(ctx context.Context, attempt *models.Attempt, reason, requestedBy string) {
	m.Called(ctx, attempt, reason, requestedBy)
}

func (m *mockPlagiarismService) Process(ctx context.Context, req events.PlagiarismRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockPlagiarismService) Handler() events.PlagiarismHandler {
	return m.Process
}

func (m *mockPlagiarismService) RetryPending(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *mockPlagiarismService) Report(ctx context.Context, attemptID uint, actor models.Actor) (*models.PlagiarismReport, error) {
	args := m.Called(ctx, attemptID, actor)
	report, _ := args.Get(0).(*models.PlagiarismReport)
	return report, args.Error(1)
}

func (m *mockPlagiarismService) Rerun(ctx context.Context, attemptID uint, actor models.Actor) (*services.PlagiarismRerunResponse, error) {
	args := m.Called(ctx, attemptID, actor)
	resp, _ := args.Get(0).(*services.PlagiarismRerunResponse)
	return resp, args.Error(1)
}

type mockEvaluationService struct{ mock.Mock }

func (m *mockEvaluationService) Get(ctx context.Context, evaluationID uint, actor models.Actor) (*services.EvaluationView, error) {
	args := m.Called(ctx, evaluationID, actor)
	view, _ := args.Get(0).(*services.EvaluationView)
	return view, args.Error(1)
}

func (m *mockEvaluationService) ListAttempts(ctx context.Context, evaluationID uint, filters repositories.AttemptFilters, actor models.Actor) (*services.AttemptListResponse, error) {
	args := m.Called(ctx, evaluationID, filters, actor)
	list, _ := args.Get(0).(*services.AttemptListResponse)
	return list, args.Error(1)
}

type mockExportService struct{ mock.Mock }

func (m *mockExportService) ExportResults(ctx context.Context, evaluationID uint, actor models.Actor) (*excelize.File, error) {
	args := m.Called(ctx, evaluationID, actor)
	f, _ := args.Get(0).(*excelize.File)
	return f, args.Error(1)
}

type mockServices struct {
	attempt    *mockAttemptService
	grading    *mockGradingService
	plagiarism *mockPlagiarismService
	evaluation *mockEvaluationService
	export     *mockExportService
}

func (m *mockServices) Attempt() services.AttemptService       { return m.attempt }
func (m *mockServices) Grading() services.GradingService       { return m.grading }
func (m *mockServices) Plagiarism() services.PlagiarismService { return m.plagiarism }
func (m *mockServices) Evaluation() services.EvaluationService { return m.evaluation }
func (m *mockServices) Export() services.ExportService         { return m.export }

func (m *mockServices) assertExpectations(t mock.TestingT) {
	m.attempt.AssertExpectations(t)
	m.grading.AssertExpectations(t)
	m.plagiarism.AssertExpectations(t)
	m.evaluation.AssertExpectations(t)
	m.export.AssertExpectations(t)
}

var _ services.ServiceManager = (*mockServices)(nil)
