package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// essayExam has one single-choice question and one essay, ten points each.
func essayExam(id uint) (*models.Evaluation, []*models.Question) {
	eval, _ := quiz(id)
	eval.Type = models.EvaluationExam
	eval.Title = "Distributed systems exam"
	eval.MaxAttempts = 1
	questions := []*models.Question{
		{
			ID:           id*10 + 1,
			EvaluationID: id,
			Position:     1,
			Type:         models.QuestionSingleChoice,
			Text:         "Which protocol elects a leader?",
			Points:       10,
			Options: datatypes.JSONSlice[models.QuestionOption]{
				{ID: "raft", Text: "Raft"},
				{ID: "http", Text: "HTTP"},
			},
			AnswerKey: datatypes.JSONSlice[string]{"raft"},
		},
		{
			ID:           id*10 + 2,
			EvaluationID: id,
			Position:     2,
			Type:         models.QuestionEssay,
			Text:         "Explain linearizability.",
			Points:       10,
		},
	}
	return eval, questions
}

func submitEssay(t *testing.T, h *harness, evaluationID uint, questions []*models.Question) uint {
	t.Helper()
	resp := h.start(t, evaluationID, student)
	res, err := h.services.Attempt().Submit(context.Background(), &SubmitAttemptRequest{
		AttemptID: resp.AttemptID,
		Answers: []AnswerInput{
			{QuestionID: questions[0].ID, Selected: []string{"raft"}},
			{QuestionID: questions[1].ID, Text: "Every operation appears to take effect atomically."},
		},
	}, student)
	require.NoError(t, err)
	require.Equal(t, models.AttemptSubmitted, res.Status)
	return resp.AttemptID
}

func TestGrade(t *testing.T) {
	h := newHarness(t)
	eval, questions := essayExam(1)
	h.repo.addEvaluation(eval, questions...)
	ctx := context.Background()
	attemptID := submitEssay(t, h, 1, questions)

	stored := h.repo.attempt(attemptID)
	assert.Equal(t, 10.0, *stored.AutoScore)
	assert.Nil(t, stored.Score)
	manual := h.publisher.EventsOfType(events.EventManualGradingRequired)
	require.Len(t, manual, 1)
	assert.Equal(t, []uint{questions[1].ID}, manual[0].Data.(events.ManualGradingRequiredEvent).QuestionIDs)

	res, err := h.services.Grading().Grade(ctx, &GradeRequest{
		AttemptID: attemptID,
		Score:     16,
		Feedback:  "  Clear and precise. ",
	}, teacher)
	require.NoError(t, err)

	assert.Equal(t, models.AttemptGraded, res.Status)
	assert.False(t, res.AlreadyGraded)
	assert.Equal(t, 16.0, res.Score)
	assert.Equal(t, 80.0, res.Percentage)
	assert.True(t, res.Passed)
	assert.Equal(t, scoring.LetterA, res.Letter)
	assert.Equal(t, teacher.ID, res.GradedBy)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, "Clear and precise.", *res.Feedback)
	assert.Equal(t, baseTime, res.GradedAt)
	assert.Len(t, h.publisher.EventsOfType(events.EventAttemptGraded), 1)

	t.Run("second grade is a no-op", func(t *testing.T) {
		again, err := h.services.Grading().Grade(ctx, &GradeRequest{AttemptID: attemptID, Score: 4}, teacher)
		require.NoError(t, err)

		assert.True(t, again.AlreadyGraded)
		assert.Equal(t, 16.0, again.Score)
		assert.Equal(t, 16.0, *h.repo.attempt(attemptID).Score)
		assert.Len(t, h.publisher.EventsOfType(events.EventAttemptGraded), 1)
	})
}

func TestGrade_Refusals(t *testing.T) {
	h := newHarness(t)
	eval, questions := essayExam(1)
	h.repo.addEvaluation(eval, questions...)
	ctx := context.Background()
	submitted := submitEssay(t, h, 1, questions)
	inProgress := h.start(t, 1, other).AttemptID

	tests := []struct {
		name   string
		req    *GradeRequest
		actor  models.Actor
		reason Reason
	}{
		{"student", &GradeRequest{AttemptID: submitted, Score: 10}, student, ReasonForbidden},
		{"above total", &GradeRequest{AttemptID: submitted, Score: 20.5}, teacher, ReasonInvalidScore},
		{"negative", &GradeRequest{AttemptID: submitted, Score: -1}, teacher, ReasonInvalidScore},
		{"in progress", &GradeRequest{AttemptID: inProgress, Score: 10}, teacher, ReasonNotSubmitted},
		{"unknown attempt", &GradeRequest{AttemptID: 999, Score: 10}, teacher, ReasonNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.services.Grading().Grade(ctx, tt.req, tt.actor)

			require.Error(t, err)
			assert.Equal(t, tt.reason, ReasonOf(err))
		})
	}

	assert.Equal(t, models.AttemptSubmitted, h.repo.attempt(submitted).Status)
	assert.Equal(t, models.AttemptInProgress, h.repo.attempt(inProgress).Status)
}

func TestGrade_BoundaryScores(t *testing.T) {
	for _, score := range []float64{0, 20} {
		h := newHarness(t)
		eval, questions := essayExam(1)
		h.repo.addEvaluation(eval, questions...)
		attemptID := submitEssay(t, h, 1, questions)

		res, err := h.services.Grading().Grade(context.Background(), &GradeRequest{AttemptID: attemptID, Score: score}, teacher)
		require.NoError(t, err)
		assert.Equal(t, score, res.Score)
		assert.Equal(t, score == 20, res.Passed)
	}
}
