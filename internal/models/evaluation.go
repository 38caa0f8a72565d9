package models

import (
	"time"

	"gorm.io/gorm"
)

type EvaluationType string

const (
	EvaluationExam    EvaluationType = "EXAM"
	EvaluationQuiz    EvaluationType = "QUIZ"
	EvaluationTP      EvaluationType = "TP"
	EvaluationTD      EvaluationType = "TD"
	EvaluationProject EvaluationType = "PROJECT"
	EvaluationOral    EvaluationType = "ORAL"
)

// Evaluation is a scheduled, time-boxed assessment instance. Authoring happens
// elsewhere; this service only reads it.
type Evaluation struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	CourseID        *uint          `json:"course_id" gorm:"index"`
	Title           string         `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Type            EvaluationType `json:"type" gorm:"not null;size:20;index" validate:"required,evaluation_type"`
	StartsAt        time.Time      `json:"starts_at" gorm:"not null;index" validate:"required"`
	EndsAt          time.Time      `json:"ends_at" gorm:"not null;index" validate:"required,gtfield=StartsAt"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null" validate:"required,min=1,max=600"`
	TotalPoints     float64        `json:"total_points" gorm:"not null" validate:"required,gt=0"`
	PassingScore    float64        `json:"passing_score" gorm:"not null" validate:"min=0,max=100"` // percentage
	MaxAttempts     int            `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`

	RequiresFileUpload bool `json:"requires_file_upload" gorm:"default:false"`
	PlagiarismCheck    bool `json:"plagiarism_check" gorm:"default:false"`
	ShuffleQuestions   bool `json:"shuffle_questions" gorm:"default:false"`
	ShuffleOptions     bool `json:"shuffle_options" gorm:"default:false"`
	ShowResults        bool `json:"show_results" gorm:"default:true"`

	CreatedBy string         `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question           `json:"questions,omitempty" gorm:"foreignKey:EvaluationID"`
	Audience  []EvaluationAudience `json:"-" gorm:"foreignKey:EvaluationID"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// TimeBudget is the per-attempt duration.
func (e *Evaluation) TimeBudget() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// WindowOpen reports whether now falls in [StartsAt, EndsAt).
func (e *Evaluation) WindowOpen(now time.Time) bool {
	return !now.Before(e.StartsAt) && now.Before(e.EndsAt)
}

func (e *Evaluation) WindowClosed(now time.Time) bool {
	return !now.Before(e.EndsAt)
}

// EvaluationAudience restricts an evaluation to a set of students. An
// evaluation without rows is open to every student.
type EvaluationAudience struct {
	EvaluationID uint      `json:"evaluation_id" gorm:"primaryKey"`
	StudentID    string    `json:"student_id" gorm:"primaryKey;size:255"`
	CreatedAt    time.Time `json:"created_at"`
}

func (EvaluationAudience) TableName() string {
	return "evaluation_audience"
}
