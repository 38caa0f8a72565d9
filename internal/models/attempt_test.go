package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to AttemptStatus
		allowed  bool
	}{
		{AttemptNotStarted, AttemptInProgress, true},
		{AttemptInProgress, AttemptSubmitted, true},
		{AttemptInProgress, AttemptMissed, true},
		{AttemptSubmitted, AttemptGraded, true},
		{AttemptGraded, AttemptSubmitted, false},
		{AttemptSubmitted, AttemptInProgress, false},
		{AttemptMissed, AttemptInProgress, false},
		{AttemptGraded, AttemptGraded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAttemptStatus_IsTerminal(t *testing.T) {
	assert.False(t, AttemptNotStarted.IsTerminal())
	assert.False(t, AttemptInProgress.IsTerminal())
	assert.True(t, AttemptSubmitted.IsTerminal())
	assert.True(t, AttemptGraded.IsTerminal())
	assert.True(t, AttemptMissed.IsTerminal())
}

func TestAttempt_Remaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := &Attempt{Status: AttemptInProgress, StartedAt: start, TimeBudgetSeconds: 3600}

	assert.Equal(t, time.Hour, attempt.Remaining(start))
	assert.Equal(t, 40*time.Minute, attempt.Remaining(start.Add(20*time.Minute)))
	assert.Equal(t, time.Duration(0), attempt.Remaining(start.Add(61*time.Minute)))
	assert.Equal(t, 2400, attempt.RemainingSeconds(start.Add(20*time.Minute)))
	assert.Equal(t, start.Add(time.Hour), attempt.Deadline())

	// remaining never grows as time moves forward
	prev := attempt.Remaining(start)
	for i := 1; i <= 90; i++ {
		cur := attempt.Remaining(start.Add(time.Duration(i) * time.Minute))
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestAttempt_RemainingSecondsOnlyWhileInProgress(t *testing.T) {
	start := time.Now()
	attempt := &Attempt{Status: AttemptSubmitted, StartedAt: start, TimeBudgetSeconds: 600}
	assert.Equal(t, 0, attempt.RemainingSeconds(start))
}

func TestAttempt_Overdue(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := &Attempt{StartedAt: start, TimeBudgetSeconds: 60}

	assert.False(t, attempt.Overdue(start.Add(60*time.Second), 0))
	assert.True(t, attempt.Overdue(start.Add(61*time.Second), 0))
	assert.False(t, attempt.Overdue(start.Add(61*time.Second), 30*time.Second))
}

func TestEvaluation_Window(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	eval := &Evaluation{StartsAt: start, EndsAt: start.Add(2 * time.Hour), DurationMinutes: 60}

	assert.False(t, eval.WindowOpen(start.Add(-time.Second)))
	assert.True(t, eval.WindowOpen(start))
	assert.True(t, eval.WindowOpen(start.Add(time.Hour)))
	assert.False(t, eval.WindowOpen(start.Add(2*time.Hour)))
	assert.True(t, eval.WindowClosed(start.Add(2*time.Hour)))
	assert.Equal(t, time.Hour, eval.TimeBudget())
}

func TestQuestion_ForStudentHidesAnswerKey(t *testing.T) {
	q := &Question{
		ID:        7,
		Type:      QuestionSingleChoice,
		Text:      "2+2?",
		Points:    5,
		Options:   []QuestionOption{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
		AnswerKey: []string{"b"},
	}

	sq := q.ForStudent()
	assert.Equal(t, uint(7), sq.ID)
	assert.Len(t, sq.Options, 2)

	sq.Options[0].Text = "changed"
	assert.Equal(t, "3", q.Options[0].Text)
}

func TestQuestionType_RequiresManualGrading(t *testing.T) {
	assert.True(t, QuestionEssay.RequiresManualGrading())
	assert.True(t, QuestionFileUpload.RequiresManualGrading())
	assert.False(t, QuestionMultiSelect.RequiresManualGrading())
	assert.False(t, QuestionType("MATCHING").Valid())
}
