package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterOn20(t *testing.T) {
	tests := []struct {
		score float64
		want  Letter
	}{
		{20, LetterA},
		{16, LetterA},
		{15.99, LetterB},
		{14, LetterB},
		{12, LetterC},
		{10, LetterD},
		{9.99, LetterE},
		{0, LetterE},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterOn20(tt.score), "score %v", tt.score)
	}
}

func TestLetterForPercentage_MatchesTwentyScale(t *testing.T) {
	for p := 0.0; p <= 100; p += 0.5 {
		assert.Equal(t, LetterOn20(p/5), LetterForPercentage(p))
	}
	assert.Equal(t, LetterA, LetterForPercentage(80))
	assert.Equal(t, LetterD, LetterForPercentage(50))
}

func TestPercentage_Bounds(t *testing.T) {
	assert.Equal(t, 50.0, Percentage(10, 20))
	assert.Equal(t, 100.0, Percentage(25, 20))
	assert.Equal(t, 0.0, Percentage(-3, 20))
	assert.Equal(t, 0.0, Percentage(5, 0))
	assert.Equal(t, 33.33, Percentage(1, 3))
}

func TestCompute(t *testing.T) {
	g := Compute(9.5, 20, 50)
	assert.Equal(t, 47.5, g.Percentage)
	assert.False(t, g.Passed)
	assert.Equal(t, LetterE, g.Letter)

	g = Compute(17, 20, 50)
	assert.True(t, g.Passed)
	assert.Equal(t, LetterA, g.Letter)
}

func TestCompute_JustBelowThreshold(t *testing.T) {
	g := Compute(9.999, 20, 50)
	assert.Equal(t, 50.0, g.Percentage)
	assert.False(t, g.Passed)
	assert.Equal(t, LetterE, g.Letter)

	g = Compute(15.999, 20, 50)
	assert.Equal(t, LetterB, g.Letter)

	g = Compute(10, 20, 50)
	assert.True(t, g.Passed)
	assert.Equal(t, LetterD, g.Letter)
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(3, 3, 100))
	assert.False(t, Passed(2.9999, 3, 100))
	assert.True(t, Passed(0, 10, 0))
	assert.False(t, Passed(5, 0, 0))
}
