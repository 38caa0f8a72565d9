package models

import (
	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionShortAnswer  QuestionType = "SHORT_ANSWER"
	QuestionEssay        QuestionType = "ESSAY"
	QuestionMultiSelect  QuestionType = "MULTI_SELECT"
	QuestionFileUpload   QuestionType = "FILE_UPLOAD"
)

var AllQuestionTypes = []QuestionType{
	QuestionSingleChoice,
	QuestionTrueFalse,
	QuestionShortAnswer,
	QuestionEssay,
	QuestionMultiSelect,
	QuestionFileUpload,
}

func (t QuestionType) Valid() bool {
	for _, known := range AllQuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresManualGrading is true for types no answer key can score.
func (t QuestionType) RequiresManualGrading() bool {
	return t == QuestionEssay || t == QuestionFileUpload
}

type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID           uint                                `json:"id" gorm:"primaryKey"`
	EvaluationID uint                                `json:"evaluation_id" gorm:"not null;index:idx_question_eval_pos,priority:1"`
	Position     int                                 `json:"position" gorm:"not null;index:idx_question_eval_pos,priority:2"`
	Type         QuestionType                        `json:"type" gorm:"not null;size:20" validate:"required,question_type"`
	Text         string                              `json:"text" gorm:"type:text;not null" validate:"required"`
	Points       float64                             `json:"points" gorm:"not null" validate:"gt=0"`
	Options      datatypes.JSONSlice[QuestionOption] `json:"options,omitempty" gorm:"type:jsonb"`
	// AnswerKey holds option ids for choice types, "true"/"false" for
	// TRUE_FALSE and accepted strings for SHORT_ANSWER. Never serialized.
	AnswerKey datatypes.JSONSlice[string] `json:"-" gorm:"type:jsonb"`
}

func (Question) TableName() string {
	return "questions"
}

// StudentQuestion is the projection of a question safe to hand to a student.
type StudentQuestion struct {
	ID       uint             `json:"id"`
	Position int              `json:"position"`
	Type     QuestionType     `json:"type"`
	Text     string           `json:"text"`
	Points   float64          `json:"points"`
	Options  []QuestionOption `json:"options,omitempty"`
}

func (q *Question) ForStudent() StudentQuestion {
	sq := StudentQuestion{
		ID:       q.ID,
		Position: q.Position,
		Type:     q.Type,
		Text:     q.Text,
		Points:   q.Points,
	}
	if len(q.Options) > 0 {
		sq.Options = make([]QuestionOption, len(q.Options))
		copy(sq.Options, q.Options)
	}
	return sq
}
