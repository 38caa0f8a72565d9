package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

const exportPageSize = 500

var resultHeaders = []string{
	"Student ID", "Attempt", "Status", "Started At", "Submitted At", "Late",
	"Score", "Max Score", "Percentage", "Letter", "Passed",
	"Plagiarism Score", "Plagiarism Class",
}

type exportService struct {
	repo   repositories.Repository
	logger *ServiceLogger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: NewServiceLogger(logger, LogConfig{Service: "evaluation-service", Component: "export"}),
	}
}

// ExportResults builds a workbook with one row per attempt and a summary sheet.
func (s *exportService) ExportResults(ctx context.Context, evaluationID uint, actor models.Actor) (f *excelize.File, err error) {
	op := s.logger.WithOperation(ctx, "export_results", actor.ID)
	defer func() { op.LogResult(evaluationID, "evaluation", err) }()

	if !actor.Role.CanGrade() {
		return nil, NewPermissionError(actor.ID, evaluationID, "evaluation", "export_results", "only teachers can export results")
	}
	eval, err := getEvaluation(ctx, s.repo, nil, evaluationID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.allAttempts(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	f = excelize.NewFile()
	if err := writeResultsSheet(f, eval, attempts); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSummarySheet(f, eval, attempts); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (s *exportService) allAttempts(ctx context.Context, evaluationID uint) ([]*models.Attempt, error) {
	var all []*models.Attempt
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.Attempts().ListByEvaluation(ctx, nil, evaluationID, repositories.AttemptFilters{
			Limit:     exportPageSize,
			Offset:    offset,
			SortBy:    "sequence_number",
			SortOrder: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}

func writeResultsSheet(f *excelize.File, eval *models.Evaluation, attempts []*models.Attempt) error {
	const sheet = "Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, toRow(resultHeaders)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(resultHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, a := range attempts {
		if err := setRow(f, sheet, i+2, resultRow(eval, a)); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func resultRow(eval *models.Evaluation, a *models.Attempt) []interface{} {
	row := []interface{}{
		a.StudentID,
		a.SequenceNumber,
		string(a.Status),
		a.StartedAt.Format("2006-01-02 15:04:05"),
		formatTime(a.SubmittedAt),
		yesNo(a.IsLate),
	}

	if a.Score != nil {
		grade := scoring.Compute(*a.Score, eval.TotalPoints, eval.PassingScore)
		row = append(row, grade.Score, grade.MaxScore, grade.Percentage, string(grade.Letter), yesNo(grade.Passed))
	} else {
		row = append(row, "", eval.TotalPoints, "", "", "")
	}

	if a.PlagiarismScore != nil {
		row = append(row, *a.PlagiarismScore)
	} else {
		row = append(row, "")
	}
	if a.PlagiarismClass != nil {
		row = append(row, string(*a.PlagiarismClass))
	} else {
		row = append(row, string(a.PlagiarismStatus))
	}
	return row
}

func writeSummarySheet(f *excelize.File, eval *models.Evaluation, attempts []*models.Attempt) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	var graded, passed, missed, late int
	var sum float64
	for _, a := range attempts {
		switch a.Status {
		case models.AttemptMissed:
			missed++
		case models.AttemptGraded:
			if a.Score == nil {
				break
			}
			graded++
			sum += scoring.Percentage(*a.Score, eval.TotalPoints)
			if a.Passed != nil && *a.Passed {
				passed++
			}
		}
		if a.IsLate {
			late++
		}
	}

	mean := 0.0
	if graded > 0 {
		mean = sum / float64(graded)
	}
	rows := [][]interface{}{
		{"Evaluation", eval.Title},
		{"Type", string(eval.Type)},
		{"Total Points", eval.TotalPoints},
		{"Passing Score (%)", eval.PassingScore},
		{"Attempts", len(attempts)},
		{"Graded", graded},
		{"Passed", passed},
		{"Missed", missed},
		{"Late", late},
		{"Mean Percentage", mean},
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
