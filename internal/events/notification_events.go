package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptGraded    EventType = "attempt.graded"
	EventAttemptMissed    EventType = "attempt.missed"

	// Grading events
	EventManualGradingRequired EventType = "grading.manual_required"

	// Plagiarism events
	EventPlagiarismRequested EventType = "plagiarism.requested"
	EventPlagiarismAnalyzed  EventType = "plagiarism.analyzed"
)

const (
	eventSource  = "evaluation-service"
	eventVersion = "1.0"
)

// NotificationEvent is the envelope for every event this service emits.
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Attempt notification event payloads

type AttemptStartedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	EvaluationID    uint      `json:"evaluation_id"`
	EvaluationTitle string    `json:"evaluation_title"`
	StudentID       string    `json:"student_id"`
	SequenceNumber  int       `json:"sequence_number"`
	StartedAt       time.Time `json:"started_at"`
	Deadline        time.Time `json:"deadline"`
}

type AttemptSubmittedEvent struct {
	AttemptID      uint      `json:"attempt_id"`
	EvaluationID   uint      `json:"evaluation_id"`
	StudentID      string    `json:"student_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	IsLate         bool      `json:"is_late"`
	ArtifactCount  int       `json:"artifact_count"`
}

type AttemptGradedEvent struct {
	AttemptID    uint     `json:"attempt_id"`
	EvaluationID uint     `json:"evaluation_id"`
	StudentID    string   `json:"student_id"`
	Score        float64  `json:"score"`
	MaxScore     float64  `json:"max_score"`
	Percentage   float64  `json:"percentage"`
	Passed       bool     `json:"passed"`
	Letter       string   `json:"letter"`
	GradedBy     string   `json:"graded_by"`
	Plagiarism   *float64 `json:"plagiarism_score,omitempty"`
}

type AttemptMissedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	EvaluationID uint      `json:"evaluation_id"`
	StudentID    string    `json:"student_id"`
	MissedAt     time.Time `json:"missed_at"`
}

type ManualGradingRequiredEvent struct {
	AttemptID    uint     `json:"attempt_id"`
	EvaluationID uint     `json:"evaluation_id"`
	StudentID    string   `json:"student_id"`
	AutoScore    float64  `json:"auto_score"`
	QuestionIDs  []uint   `json:"question_ids,omitempty"`
	Plagiarism   *float64 `json:"plagiarism_score,omitempty"`
}

type PlagiarismAnalyzedEvent struct {
	AttemptID      uint    `json:"attempt_id"`
	EvaluationID   uint    `json:"evaluation_id"`
	StudentID      string  `json:"student_id"`
	OverallScore   float64 `json:"overall_score"`
	Classification string  `json:"classification"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAttemptStartedEvent(data AttemptStartedEvent) *NotificationEvent {
	return newEvent(EventAttemptStarted, data)
}

func NewAttemptSubmittedEvent(data AttemptSubmittedEvent) *NotificationEvent {
	return newEvent(EventAttemptSubmitted, data)
}

func NewAttemptGradedEvent(data AttemptGradedEvent) *NotificationEvent {
	return newEvent(EventAttemptGraded, data)
}

func NewAttemptMissedEvent(data AttemptMissedEvent) *NotificationEvent {
	return newEvent(EventAttemptMissed, data)
}

func NewManualGradingRequiredEvent(data ManualGradingRequiredEvent) *NotificationEvent {
	return newEvent(EventManualGradingRequired, data)
}

func NewPlagiarismAnalyzedEvent(data PlagiarismAnalyzedEvent) *NotificationEvent {
	return newEvent(EventPlagiarismAnalyzed, data)
}

func generateEventID() string {
	return uuid.NewString()
}
