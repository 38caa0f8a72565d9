package models

import (
	"time"

	"gorm.io/datatypes"
)

type PlagiarismClass string

const (
	PlagiarismClean       PlagiarismClass = "CLEAN"
	PlagiarismSuspicious  PlagiarismClass = "SUSPICIOUS"
	PlagiarismPlagiarized PlagiarismClass = "PLAGIARIZED"
)

type PlagiarismSource struct {
	Source      string  `json:"source"`
	Similarity  float64 `json:"similarity"`
	MatchedText string  `json:"matched_text,omitempty"`
}

type SuspiciousSection struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Source     *string `json:"source,omitempty"`
}

// PlagiarismReport is the stored outcome of the latest analysis of an attempt.
type PlagiarismReport struct {
	ID                 uint                                   `json:"id" gorm:"primaryKey"`
	AttemptID          uint                                   `json:"attempt_id" gorm:"not null;uniqueIndex"`
	OverallScore       float64                                `json:"overall_score"`
	Classification     PlagiarismClass                        `json:"classification" gorm:"size:20"`
	Sources            datatypes.JSONSlice[PlagiarismSource]  `json:"sources" gorm:"type:jsonb"`
	SuspiciousSections datatypes.JSONSlice[SuspiciousSection] `json:"suspicious_sections" gorm:"type:jsonb"`
	Runs               int                                    `json:"runs" gorm:"default:1"`
	AnalyzedAt         time.Time                              `json:"analyzed_at"`
	CreatedAt          time.Time                              `json:"created_at"`
	UpdatedAt          time.Time                              `json:"updated_at"`
}

func (PlagiarismReport) TableName() string {
	return "plagiarism_reports"
}
