package scoring

import "math"

type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
)

// letterThresholds is ordered from highest to lowest minimum, on a 20-point scale.
var letterThresholds = []struct {
	min    float64
	letter Letter
}{
	{16, LetterA},
	{14, LetterB},
	{12, LetterC},
	{10, LetterD},
}

// LetterOn20 maps a score out of 20 to its letter.
func LetterOn20(score float64) Letter {
	for _, t := range letterThresholds {
		if score >= t.min {
			return t.letter
		}
	}
	return LetterE
}

// LetterForPercentage maps a percentage onto the same table.
func LetterForPercentage(percentage float64) Letter {
	return LetterOn20(percentage / 5)
}

// ClampScore bounds score to [0, total].
func ClampScore(score, total float64) float64 {
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	if score > total {
		return total
	}
	return score
}

// Percentage is score / total * 100, bounded to [0, 100] and rounded to
// two decimals for display.
func Percentage(score, total float64) float64 {
	return math.Round(rawPercentage(score, total)*100) / 100
}

func rawPercentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return ClampScore(score, total) / total * 100
}

// Passed compares the unrounded ratio: score/total*100 >= passingScore.
func Passed(score, total, passingScore float64) bool {
	if total <= 0 {
		return false
	}
	return ClampScore(score, total)*100 >= passingScore*total
}

// Grade is the derived view of a final score.
type Grade struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Letter     Letter  `json:"letter"`
}

func Compute(score, total, passingScore float64) Grade {
	score = ClampScore(score, total)
	return Grade{
		Score:      score,
		MaxScore:   total,
		Percentage: Percentage(score, total),
		Passed:     Passed(score, total, passingScore),
		Letter:     LetterForPercentage(rawPercentage(score, total)),
	}
}
