package services

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// orderedQuestions projects questions for the student. Shuffling is seeded
// from the attempt so a reloading client sees the same order.
func orderedQuestions(attemptID uint, eval *models.Evaluation, questions []*models.Question) []models.StudentQuestion {
	out := make([]models.StudentQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ForStudent())
	}
	if !eval.ShuffleQuestions && !eval.ShuffleOptions {
		return out
	}

	rng := rand.New(rand.NewPCG(uint64(attemptID), uint64(eval.ID)))
	if eval.ShuffleQuestions {
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if eval.ShuffleOptions {
		for i := range out {
			opts := out[i].Options
			if out[i].Type == models.QuestionTrueFalse {
				continue
			}
			rng.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}
	return out
}

// answerMap keeps the submitted answers that belong to the evaluation. The
// last answer wins when a question appears twice.
func (s *attemptService) answerMap(ctx context.Context, attemptID uint, questions []*models.Question, inputs []AnswerInput) map[uint]models.AnswerValue {
	known := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	answers := make(map[uint]models.AnswerValue, len(inputs))
	var ignored []uint
	for _, in := range inputs {
		if _, ok := known[in.QuestionID]; !ok {
			ignored = append(ignored, in.QuestionID)
			continue
		}
		answers[in.QuestionID] = cleanAnswer(in.Value())
	}
	if len(ignored) > 0 {
		s.logger.Logger().WarnContext(ctx, "Ignoring answers to unknown questions",
			"attempt_id", attemptID,
			"question_ids", ignored)
	}
	return answers
}

func cleanAnswer(v models.AnswerValue) models.AnswerValue {
	selected := make([]string, 0, len(v.Selected))
	for _, id := range v.Selected {
		if id = strings.TrimSpace(id); id != "" {
			selected = append(selected, id)
		}
	}
	return models.AnswerValue{Selected: selected, Text: strings.TrimSpace(v.Text)}
}

// answerRows records one row per question, so the stored answers are exactly
// what was scored.
func answerRows(attemptID uint, questions []*models.Question, answers map[uint]models.AnswerValue, result scoring.Result) []*models.StudentAnswer {
	rows := make([]*models.StudentAnswer, 0, len(questions))
	for i, q := range questions {
		qr := result.Questions[i]
		row := &models.StudentAnswer{
			AttemptID:   attemptID,
			QuestionID:  q.ID,
			Response:    datatypes.NewJSONType(answers[q.ID]),
			IsCorrect:   qr.Correct,
			NeedsManual: qr.NeedsManual,
		}
		if !qr.NeedsManual {
			awarded := qr.Awarded
			row.AwardedPoints = &awarded
		}
		rows = append(rows, row)
	}
	return rows
}

func draftRows(attemptID uint, questions []*models.Question, inputs []AnswerInput) ([]*models.StudentAnswer, ValidationErrors) {
	known := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	byQuestion := make(map[uint]*models.StudentAnswer, len(inputs))
	var errs ValidationErrors
	for _, in := range inputs {
		if _, ok := known[in.QuestionID]; !ok {
			errs = append(errs, *NewValidationError("answers.question_id", "does not belong to this evaluation", in.QuestionID))
			continue
		}
		byQuestion[in.QuestionID] = &models.StudentAnswer{
			AttemptID:  attemptID,
			QuestionID: in.QuestionID,
			Response:   datatypes.NewJSONType(cleanAnswer(in.Value())),
		}
	}

	rows := make([]*models.StudentAnswer, 0, len(byQuestion))
	for _, q := range questions {
		if row, ok := byQuestion[q.ID]; ok {
			rows = append(rows, row)
		}
	}
	return rows, errs
}

func draftInputs(rows []*models.StudentAnswer) []AnswerInput {
	if len(rows) == 0 {
		return nil
	}
	out := make([]AnswerInput, 0, len(rows))
	for _, row := range rows {
		v := row.Response.Data()
		out = append(out, AnswerInput{QuestionID: row.QuestionID, Selected: v.Selected, Text: v.Text})
	}
	return out
}

func manualQuestionIDs(result scoring.Result) []uint {
	var ids []uint
	for _, qr := range result.Questions {
		if qr.NeedsManual {
			ids = append(ids, qr.QuestionID)
		}
	}
	return ids
}

// needsPlagiarismCheck is true when the evaluation asks for it and the
// submission carries something to compare: files, free text or essay answers.
func needsPlagiarismCheck(eval *models.Evaluation, sub submission, questions []*models.Question, answers map[uint]models.AnswerValue) bool {
	if !eval.PlagiarismCheck {
		return false
	}
	if len(sub.artifacts) > 0 || sub.text != "" {
		return true
	}
	for _, q := range questions {
		if q.Type == models.QuestionEssay && answers[q.ID].Text != "" {
			return true
		}
	}
	return false
}

func applyGrade(attempt *models.Attempt, grade scoring.Grade, gradedBy string, feedback *string, now time.Time) {
	attempt.Status = models.AttemptGraded
	attempt.Score = &grade.Score
	attempt.Percentage = &grade.Percentage
	attempt.Passed = &grade.Passed
	attempt.GradedBy = &gradedBy
	attempt.GradedAt = &now
	if feedback != nil {
		attempt.Feedback = feedback
	}
}

func letterOf(attempt *models.Attempt, total float64) *scoring.Letter {
	if attempt.Score == nil {
		return nil
	}
	letter := scoring.Compute(*attempt.Score, total, 0).Letter
	return &letter
}

func submitResult(attempt *models.Attempt, eval *models.Evaluation, artifactCount int) *SubmitResult {
	return &SubmitResult{
		AttemptID:        attempt.ID,
		Status:           attempt.Status,
		SubmittedAt:      attempt.SubmittedAt,
		ElapsedSeconds:   attempt.ElapsedSeconds,
		IsLate:           attempt.IsLate,
		AutoScore:        attempt.AutoScore,
		Score:            attempt.Score,
		MaxScore:         eval.TotalPoints,
		Percentage:       attempt.Percentage,
		Passed:           attempt.Passed,
		Letter:           letterOf(attempt, eval.TotalPoints),
		PlagiarismStatus: attempt.PlagiarismStatus,
		PlagiarismScore:  attempt.PlagiarismScore,
		ArtifactCount:    artifactCount,
	}
}

func (r *SubmitResult) hideScores() {
	r.AutoScore = nil
	r.Score = nil
	r.Percentage = nil
	r.Passed = nil
	r.Letter = nil
	r.PlagiarismScore = nil
}

func timeRemaining(attempt *models.Attempt, now time.Time) *TimeRemainingResponse {
	return &TimeRemainingResponse{
		AttemptID:            attempt.ID,
		Status:               attempt.Status,
		TimeRemainingSeconds: attempt.RemainingSeconds(now),
		Deadline:             attempt.Deadline(),
		ServerTime:           now,
	}
}

// attemptView builds what a reader may see. Students get their questions in
// attempt order and see scores only when the evaluation publishes results;
// graders see everything, plagiarism included.
func (s *attemptService) attemptView(attempt *models.Attempt, eval *models.Evaluation, questions []*models.Question, actor models.Actor, now time.Time) *AttemptView {
	grader := actor.Role.CanGrade()
	view := &AttemptView{
		ID:                   attempt.ID,
		EvaluationID:         attempt.EvaluationID,
		StudentID:            attempt.StudentID,
		SequenceNumber:       attempt.SequenceNumber,
		Status:               attempt.Status,
		StartedAt:            attempt.StartedAt,
		Deadline:             attempt.Deadline(),
		TimeRemainingSeconds: attempt.RemainingSeconds(now),
		SubmittedAt:          attempt.SubmittedAt,
		ElapsedSeconds:       attempt.ElapsedSeconds,
		IsLate:               attempt.IsLate,
		Artifacts:            attempt.Artifacts,
		MaxScore:             eval.TotalPoints,
		Feedback:             attempt.Feedback,
	}

	if len(questions) > 0 {
		if grader {
			view.Questions = orderedQuestions(attempt.ID, &models.Evaluation{ID: eval.ID}, questions)
		} else {
			view.Questions = orderedQuestions(attempt.ID, eval, questions)
		}
	}

	showScores := grader || (eval.ShowResults && attempt.Status.IsTerminal())
	for _, a := range attempt.Answers {
		av := AnswerView{
			QuestionID:  a.QuestionID,
			Response:    a.Response.Data(),
			NeedsManual: a.NeedsManual,
		}
		if showScores {
			av.AwardedPoints = a.AwardedPoints
			av.IsCorrect = a.IsCorrect
		}
		view.Answers = append(view.Answers, av)
	}

	if showScores {
		view.AutoScore = attempt.AutoScore
		view.Score = attempt.Score
		view.Percentage = attempt.Percentage
		view.Passed = attempt.Passed
		view.Letter = letterOf(attempt, eval.TotalPoints)
		view.GradedAt = attempt.GradedAt
	}
	if grader {
		view.GradedBy = attempt.GradedBy
		view.PlagiarismStatus = attempt.PlagiarismStatus
		view.PlagiarismScore = attempt.PlagiarismScore
		view.PlagiarismClass = attempt.PlagiarismClass
	}
	return view
}
