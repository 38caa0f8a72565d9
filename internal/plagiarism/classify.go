package plagiarism

import (
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// Similarity thresholds, in percent.
const (
	SuspiciousThreshold  = 15.0
	PlagiarizedThreshold = 40.0
)

// Classify maps an overall similarity score to its advisory class.
func Classify(score float64) models.PlagiarismClass {
	switch {
	case score >= PlagiarizedThreshold:
		return models.PlagiarismPlagiarized
	case score >= SuspiciousThreshold:
		return models.PlagiarismSuspicious
	default:
		return models.PlagiarismClean
	}
}

// Report turns a gateway analysis into the stored report of an attempt.
func Report(attemptID uint, a *Analysis, analyzedAt time.Time) *models.PlagiarismReport {
	report := &models.PlagiarismReport{
		AttemptID:      attemptID,
		OverallScore:   a.OverallScore,
		Classification: Classify(a.OverallScore),
		AnalyzedAt:     analyzedAt,
		Runs:           1,
	}
	for _, s := range a.Sources {
		report.Sources = append(report.Sources, models.PlagiarismSource{
			Source:      s.Source,
			Similarity:  s.Similarity,
			MatchedText: s.MatchedText,
		})
	}
	for _, s := range a.SuspiciousSections {
		report.SuspiciousSections = append(report.SuspiciousSections, models.SuspiciousSection{
			Text:       s.Text,
			Similarity: s.Similarity,
			Source:     s.Source,
		})
	}
	return report
}
