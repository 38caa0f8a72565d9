// Package scoring turns submitted answers into points, percentages and grades.
// Everything here is a pure function of its inputs and safe to recompute.
package scoring

import (
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// QuestionResult is the outcome of scoring one question.
type QuestionResult struct {
	QuestionID  uint    `json:"question_id"`
	Awarded     float64 `json:"awarded"`
	MaxPoints   float64 `json:"max_points"`
	Correct     *bool   `json:"correct,omitempty"`
	NeedsManual bool    `json:"needs_manual"`
}

// Result aggregates every question of an attempt.
type Result struct {
	Questions   []QuestionResult `json:"questions"`
	AutoScore   float64          `json:"auto_score"`
	TotalPoints float64          `json:"total_points"`
	NeedsManual bool             `json:"needs_manual"`
}

// Strategy scores a single answered question.
type Strategy interface {
	Score(q *models.Question, answer models.AnswerValue) QuestionResult
}

// Engine routes each question to the strategy registered for its type.
type Engine struct {
	strategies map[models.QuestionType]Strategy
}

func NewEngine() *Engine {
	return &Engine{
		strategies: map[models.QuestionType]Strategy{
			models.QuestionSingleChoice: singleChoiceStrategy{},
			models.QuestionTrueFalse:    trueFalseStrategy{},
			models.QuestionMultiSelect:  multiSelectStrategy{},
			models.QuestionShortAnswer:  shortAnswerStrategy{},
			models.QuestionEssay:        manualStrategy{},
			models.QuestionFileUpload:   manualStrategy{},
		},
	}
}

// ScoreQuestion scores one question. A nil answer is worth zero on objective
// types and still needs a human on manual ones.
func (e *Engine) ScoreQuestion(q *models.Question, answer *models.AnswerValue) QuestionResult {
	s, ok := e.strategies[q.Type]
	if !ok {
		return QuestionResult{QuestionID: q.ID, MaxPoints: q.Points, NeedsManual: true}
	}
	if answer == nil || answer.IsEmpty() {
		if q.Type.RequiresManualGrading() {
			return s.Score(q, models.AnswerValue{})
		}
		return incorrect(q)
	}
	return s.Score(q, *answer)
}

// ScoreAttempt scores every question against the submitted answers. The
// automatic score is clamped to [0, totalPoints].
func (e *Engine) ScoreAttempt(totalPoints float64, questions []*models.Question, answers map[uint]models.AnswerValue) Result {
	res := Result{
		Questions:   make([]QuestionResult, 0, len(questions)),
		TotalPoints: totalPoints,
	}

	var sum float64
	for _, q := range questions {
		var answer *models.AnswerValue
		if v, ok := answers[q.ID]; ok {
			answer = &v
		}
		qr := e.ScoreQuestion(q, answer)
		if qr.NeedsManual {
			res.NeedsManual = true
		}
		sum += qr.Awarded
		res.Questions = append(res.Questions, qr)
	}

	res.AutoScore = ClampScore(sum, totalPoints)
	return res
}

// --- strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Score(q *models.Question, answer models.AnswerValue) QuestionResult {
	if len(answer.Selected) != 1 {
		return incorrect(q)
	}
	for _, k := range q.AnswerKey {
		if answer.Selected[0] == k {
			return correct(q)
		}
	}
	return incorrect(q)
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Score(q *models.Question, answer models.AnswerValue) QuestionResult {
	if len(q.AnswerKey) == 0 {
		return incorrect(q)
	}
	given := answer.Text
	if len(answer.Selected) == 1 {
		given = answer.Selected[0]
	}
	if normalize(given) == normalize(q.AnswerKey[0]) {
		return correct(q)
	}
	return incorrect(q)
}

// multiSelectStrategy awards full points only for an exact set match.
type multiSelectStrategy struct{}

func (multiSelectStrategy) Score(q *models.Question, answer models.AnswerValue) QuestionResult {
	if setEqual(toSet(q.AnswerKey), toSet(answer.Selected)) {
		return correct(q)
	}
	return incorrect(q)
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Score(q *models.Question, answer models.AnswerValue) QuestionResult {
	given := normalize(answer.Text)
	if given == "" {
		return incorrect(q)
	}
	for _, k := range q.AnswerKey {
		if normalize(k) == given {
			return correct(q)
		}
	}
	return incorrect(q)
}

type manualStrategy struct{}

func (manualStrategy) Score(q *models.Question, _ models.AnswerValue) QuestionResult {
	return QuestionResult{QuestionID: q.ID, MaxPoints: q.Points, NeedsManual: true}
}

// helpers

func correct(q *models.Question) QuestionResult {
	ok := true
	return QuestionResult{QuestionID: q.ID, Awarded: q.Points, MaxPoints: q.Points, Correct: &ok}
}

func incorrect(q *models.Question) QuestionResult {
	ok := false
	return QuestionResult{QuestionID: q.ID, MaxPoints: q.Points, Correct: &ok}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
