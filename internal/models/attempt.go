package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "NOT_STARTED"
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptGraded     AttemptStatus = "GRADED"
	AttemptMissed     AttemptStatus = "MISSED"
)

var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptNotStarted: {AttemptInProgress, AttemptMissed},
	AttemptInProgress: {AttemptSubmitted, AttemptMissed},
	AttemptSubmitted:  {AttemptGraded},
}

// CanTransitionTo enforces the forward-only attempt lifecycle.
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true once an attempt can no longer receive answers.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptGraded || s == AttemptMissed
}

type PlagiarismStatus string

const (
	PlagiarismNotRequired PlagiarismStatus = "NOT_REQUIRED"
	PlagiarismPending     PlagiarismStatus = "PENDING"
	PlagiarismCompleted   PlagiarismStatus = "COMPLETED"
)

// Attempt is one student's sitting of one evaluation. The pair
// (evaluation_id, student_id) has at most one IN_PROGRESS row, enforced by a
// partial unique index created at migration time.
type Attempt struct {
	ID                uint          `json:"id" gorm:"primaryKey"`
	EvaluationID      uint          `json:"evaluation_id" gorm:"not null;uniqueIndex:idx_attempt_sequence,priority:1;index:idx_attempt_student_eval,priority:2"`
	StudentID         string        `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_attempt_sequence,priority:2;index:idx_attempt_student_eval,priority:1"`
	SequenceNumber    int           `json:"sequence_number" gorm:"not null;uniqueIndex:idx_attempt_sequence,priority:3"`
	Status            AttemptStatus `json:"status" gorm:"not null;size:20;index"`
	StartedAt         time.Time     `json:"started_at" gorm:"not null"`
	TimeBudgetSeconds int           `json:"time_budget_seconds" gorm:"not null"`

	SubmittedAt    *time.Time `json:"submitted_at"`
	ElapsedSeconds *int       `json:"elapsed_seconds"`
	IsLate         bool       `json:"is_late" gorm:"default:false"`
	SubmissionText *string    `json:"submission_text,omitempty" gorm:"type:text"`

	// AutoScore is the objective part computed at submit time; Score is final.
	AutoScore  *float64   `json:"auto_score"`
	Score      *float64   `json:"score"`
	Percentage *float64   `json:"percentage"`
	Passed     *bool      `json:"passed"`
	Feedback   *string    `json:"feedback" gorm:"type:text"`
	GradedBy   *string    `json:"graded_by" gorm:"size:255"`
	GradedAt   *time.Time `json:"graded_at"`

	PlagiarismStatus PlagiarismStatus `json:"plagiarism_status" gorm:"size:20;default:NOT_REQUIRED;index"`
	PlagiarismScore  *float64         `json:"plagiarism_score"`
	PlagiarismClass  *PlagiarismClass `json:"plagiarism_class" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Evaluation *Evaluation       `json:"evaluation,omitempty" gorm:"foreignKey:EvaluationID"`
	Answers    []StudentAnswer   `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	Artifacts  []Artifact        `json:"artifacts,omitempty" gorm:"foreignKey:AttemptID"`
	Report     *PlagiarismReport `json:"plagiarism_report,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) TimeBudget() time.Duration {
	return time.Duration(a.TimeBudgetSeconds) * time.Second
}

// Deadline is the moment the time budget runs out.
func (a *Attempt) Deadline() time.Time {
	return a.StartedAt.Add(a.TimeBudget())
}

// Remaining is the authoritative time left: max(0, budget - (now - started_at)).
func (a *Attempt) Remaining(now time.Time) time.Duration {
	left := a.TimeBudget() - now.Sub(a.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (a *Attempt) RemainingSeconds(now time.Time) int {
	if a.Status != AttemptInProgress {
		return 0
	}
	return int(a.Remaining(now) / time.Second)
}

// Overdue reports whether the attempt ran past its budget plus grace.
func (a *Attempt) Overdue(now time.Time, grace time.Duration) bool {
	return now.After(a.Deadline().Add(grace))
}

func (a *Attempt) IsOwnedBy(studentID string) bool {
	return a.StudentID == studentID
}

// AnswerValue is what a student submitted for one question. Choice types use
// Selected, free-text types use Text.
type AnswerValue struct {
	Selected []string `json:"selected,omitempty"`
	Text     string   `json:"text,omitempty"`
}

func (v AnswerValue) IsEmpty() bool {
	return len(v.Selected) == 0 && v.Text == ""
}

type StudentAnswer struct {
	ID            uint                            `json:"id" gorm:"primaryKey"`
	AttemptID     uint                            `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:1"`
	QuestionID    uint                            `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:2"`
	Response      datatypes.JSONType[AnswerValue] `json:"response" gorm:"type:jsonb"`
	AwardedPoints *float64                        `json:"awarded_points"`
	IsCorrect     *bool                           `json:"is_correct"`
	NeedsManual   bool                            `json:"needs_manual" gorm:"default:false"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

// Artifact is an uploaded file attached to an attempt. StorageKey points into
// the blob store.
type Artifact struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AttemptID   uint      `json:"attempt_id" gorm:"not null;index"`
	FileName    string    `json:"file_name" gorm:"not null;size:255"`
	StorageKey  string    `json:"-" gorm:"not null;size:512;uniqueIndex"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Artifact) TableName() string {
	return "attempt_artifacts"
}
