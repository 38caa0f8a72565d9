package services

import (
	"log/slog"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/plagiarism"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/storage"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type ServiceManager interface {
	Attempt() AttemptService
	Grading() GradingService
	Plagiarism() PlagiarismService
	Evaluation() EvaluationService
	Export() ExportService
}

type Dependencies struct {
	Repo      repositories.Repository
	Blobs     storage.BlobStore
	Gateway   plagiarism.Gateway
	Publisher events.EventPublisher
	Queue     events.PlagiarismQueue // nil runs plagiarism checks inline
	Validator *validator.Validator
	Clock     Clock
	Attempts  AttemptOptions
	Logger    *slog.Logger
}

type serviceManager struct {
	attempt    AttemptService
	grading    GradingService
	plagiarism PlagiarismService
	evaluation EvaluationService
	export     ExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}

	notifier := NewNotificationEventService(deps.Publisher, deps.Logger)
	plag := NewPlagiarismService(deps.Repo, deps.Gateway, deps.Queue, deps.Blobs, notifier, deps.Clock, deps.Logger)

	return &serviceManager{
		attempt:    NewAttemptService(deps.Repo, deps.Blobs, plag, notifier, deps.Validator, deps.Clock, deps.Attempts, deps.Logger),
		grading:    NewGradingService(deps.Repo, notifier, deps.Validator, deps.Clock, deps.Logger),
		plagiarism: plag,
		evaluation: NewEvaluationService(deps.Repo, deps.Clock, deps.Logger),
		export:     NewExportService(deps.Repo, deps.Logger),
	}
}

func (m *serviceManager) Attempt() AttemptService       { return m.attempt }
func (m *serviceManager) Grading() GradingService       { return m.grading }
func (m *serviceManager) Plagiarism() PlagiarismService { return m.plagiarism }
func (m *serviceManager) Evaluation() EvaluationService { return m.evaluation }
func (m *serviceManager) Export() ExportService         { return m.export }
