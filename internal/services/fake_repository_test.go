package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// fakeRepo is an in-memory repositories.Repository. Transactions are
// serialized by txMu, which stands in for row locks; reads hand out copies
// so services cannot mutate stored rows behind the repository's back.
type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID      uint
	evaluations map[uint]*models.Evaluation
	audience    map[uint]map[string]bool
	questions   map[uint][]*models.Question
	attempts    map[uint]*models.Attempt
	answers     map[uint]map[uint]*models.StudentAnswer
	artifacts   map[uint][]*models.Artifact
	reports     map[uint]*models.PlagiarismReport
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:      100,
		evaluations: map[uint]*models.Evaluation{},
		audience:    map[uint]map[string]bool{},
		questions:   map[uint][]*models.Question{},
		attempts:    map[uint]*models.Attempt{},
		answers:     map[uint]map[uint]*models.StudentAnswer{},
		artifacts:   map[uint][]*models.Artifact{},
		reports:     map[uint]*models.PlagiarismReport{},
	}
}

func (r *fakeRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) addEvaluation(eval *models.Evaluation, questions ...*models.Question) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations[eval.ID] = eval
	r.questions[eval.ID] = questions
}

func (r *fakeRepo) addAudience(evaluationID uint, studentIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.audience[evaluationID] == nil {
		r.audience[evaluationID] = map[string]bool{}
	}
	for _, id := range studentIDs {
		r.audience[evaluationID][id] = true
	}
}

func (r *fakeRepo) attempt(id uint) *models.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := *r.attempts[id]
	return &a
}

func (r *fakeRepo) countAttempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

func (r *fakeRepo) Evaluations() repositories.EvaluationRepository { return fakeEvaluations{r} }
func (r *fakeRepo) Questions() repositories.QuestionRepository     { return fakeQuestions{r} }
func (r *fakeRepo) Attempts() repositories.AttemptRepository       { return fakeAttempts{r} }
func (r *fakeRepo) Answers() repositories.AnswerRepository         { return fakeAnswers{r} }
func (r *fakeRepo) Artifacts() repositories.ArtifactRepository     { return fakeArtifacts{r} }
func (r *fakeRepo) PlagiarismReports() repositories.PlagiarismReportRepository {
	return fakeReports{r}
}

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(nil)
}

// ===== EVALUATIONS / QUESTIONS =====

type fakeEvaluations struct{ r *fakeRepo }

func (f fakeEvaluations) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	eval, ok := f.r.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("evaluation %d: %w", id, repositories.ErrNotFound)
	}
	cp := *eval
	return &cp, nil
}

func (f fakeEvaluations) IsEntitled(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	members := f.r.audience[evaluationID]
	return len(members) == 0 || members[studentID], nil
}

type fakeQuestions struct{ r *fakeRepo }

func (f fakeQuestions) GetByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]*models.Question, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	out := make([]*models.Question, 0, len(f.r.questions[evaluationID]))
	for _, q := range f.r.questions[evaluationID] {
		cp := *q
		out = append(out, &cp)
	}
	return out, nil
}

// ===== ATTEMPTS =====

type fakeAttempts struct{ r *fakeRepo }

func stripAssociations(a *models.Attempt) *models.Attempt {
	cp := *a
	cp.Evaluation = nil
	cp.Answers = nil
	cp.Artifacts = nil
	cp.Report = nil
	return &cp
}

func (f fakeAttempts) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range f.r.attempts {
		if a.EvaluationID != attempt.EvaluationID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.SequenceNumber == attempt.SequenceNumber ||
			(a.Status == models.AttemptInProgress && attempt.Status == models.AttemptInProgress) {
			return fmt.Errorf("failed to create attempt: %w", repositories.ErrDuplicate)
		}
	}
	attempt.ID = f.r.id()
	attempt.CreatedAt = attempt.StartedAt
	f.r.attempts[attempt.ID] = stripAssociations(attempt)
	return nil
}

func (f fakeAttempts) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	a, ok := f.r.attempts[id]
	if !ok {
		return nil, fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
	}
	cp := stripAssociations(a)
	for _, qid := range sortedKeys(f.r.answers[id]) {
		cp.Answers = append(cp.Answers, *f.r.answers[id][qid])
	}
	for _, art := range f.r.artifacts[id] {
		cp.Artifacts = append(cp.Artifacts, *art)
	}
	return cp, nil
}

func (f fakeAttempts) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	a, ok := f.r.attempts[id]
	if !ok {
		return nil, fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
	}
	return stripAssociations(a), nil
}

func (f fakeAttempts) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.attempts[attempt.ID]; !ok {
		return fmt.Errorf("attempt %d: %w", attempt.ID, repositories.ErrNotFound)
	}
	f.r.attempts[attempt.ID] = stripAssociations(attempt)
	return nil
}

func (f fakeAttempts) GetActive(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range f.r.attempts {
		if a.EvaluationID == evaluationID && a.StudentID == studentID && a.Status == models.AttemptInProgress {
			return stripAssociations(a), nil
		}
	}
	return nil, nil
}

func (f fakeAttempts) CountByStudent(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (int, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	n := 0
	for _, a := range f.r.attempts {
		if a.EvaluationID == evaluationID && a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (f fakeAttempts) ListByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var matched []*models.Attempt
	for _, id := range sortedKeys(f.r.attempts) {
		a := f.r.attempts[id]
		if a.EvaluationID != evaluationID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.StudentID != "" && a.StudentID != filters.StudentID {
			continue
		}
		matched = append(matched, stripAssociations(a))
	}
	total := int64(len(matched))
	if filters.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filters.Offset:]
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (f fakeAttempts) ListWindowClosed(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Attempt
	for _, id := range sortedKeys(f.r.attempts) {
		a := f.r.attempts[id]
		eval := f.r.evaluations[a.EvaluationID]
		if a.Status != models.AttemptInProgress || eval == nil || now.Before(eval.EndsAt) {
			continue
		}
		cp := stripAssociations(a)
		evalCopy := *eval
		cp.Evaluation = &evalCopy
		out = append(out, cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f fakeAttempts) ListPlagiarismPending(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Attempt
	for _, id := range sortedKeys(f.r.attempts) {
		if a := f.r.attempts[id]; a.PlagiarismStatus == models.PlagiarismPending {
			out = append(out, stripAssociations(a))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ===== ANSWERS / ARTIFACTS / REPORTS =====

type fakeAnswers struct{ r *fakeRepo }

func (f fakeAnswers) Upsert(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range answers {
		byQuestion := f.r.answers[a.AttemptID]
		if byQuestion == nil {
			byQuestion = map[uint]*models.StudentAnswer{}
			f.r.answers[a.AttemptID] = byQuestion
		}
		if existing, ok := byQuestion[a.QuestionID]; ok {
			a.ID = existing.ID
		} else {
			a.ID = f.r.id()
		}
		cp := *a
		byQuestion[a.QuestionID] = &cp
	}
	return nil
}

func (f fakeAnswers) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.StudentAnswer
	for _, qid := range sortedKeys(f.r.answers[attemptID]) {
		cp := *f.r.answers[attemptID][qid]
		out = append(out, &cp)
	}
	return out, nil
}

type fakeArtifacts struct{ r *fakeRepo }

func (f fakeArtifacts) Create(ctx context.Context, tx *gorm.DB, artifacts []*models.Artifact) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range artifacts {
		a.ID = f.r.id()
		cp := *a
		f.r.artifacts[a.AttemptID] = append(f.r.artifacts[a.AttemptID], &cp)
	}
	return nil
}

func (f fakeArtifacts) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Artifact, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Artifact
	for _, a := range f.r.artifacts[attemptID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type fakeReports struct{ r *fakeRepo }

func (f fakeReports) Upsert(ctx context.Context, tx *gorm.DB, report *models.PlagiarismReport) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if existing, ok := f.r.reports[report.AttemptID]; ok {
		report.ID = existing.ID
		report.Runs = existing.Runs + 1
	} else {
		report.ID = f.r.id()
		report.Runs = 1
	}
	cp := *report
	f.r.reports[report.AttemptID] = &cp
	return nil
}

func (f fakeReports) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.PlagiarismReport, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	report, ok := f.r.reports[attemptID]
	if !ok {
		return nil, fmt.Errorf("report for attempt %d: %w", attemptID, repositories.ErrNotFound)
	}
	cp := *report
	return &cp, nil
}

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var _ repositories.Repository = (*fakeRepo)(nil)
