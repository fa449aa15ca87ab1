package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet   = "Results"
	summarySheet   = "Summary"
	exportPageSize = 500
)

var resultHeaders = []string{
	"Session ID", "Student ID", "Status", "Started At", "Submitted At",
	"Reading Raw", "Reading Band", "Listening Raw", "Listening Band",
	"Writing Band", "Speaking Band", "Overall Band", "Grading State",
}

type exportService struct {
	repo   repositories.Repository
	tests  TestService
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, tests TestService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		tests:  tests,
		logger: logger,
	}
}

// ExportTestResults renders every session of a test as an xlsx workbook.
func (s *exportService) ExportTestResults(ctx context.Context, testID uint, actor models.Actor) ([]byte, error) {
	if err := ensureStaff(actor, testID, "test", "export_results"); err != nil {
		return nil, err
	}

	test, err := s.tests.Definition(ctx, testID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.allSessions(ctx, testID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Session().GetResultStats(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result stats: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := writeRow(f, resultsSheet, 1, toRow(resultHeaders)); err != nil {
		return nil, err
	}
	for i, session := range sessions {
		if err := writeRow(f, resultsSheet, i+2, resultRow(session)); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Test ID", test.ID},
		{"Title", test.Title},
		{"Total Sessions", stats.TotalSessions},
		{"Submitted", stats.SubmittedSessions},
		{"Fully Graded", stats.FullyGraded},
		{"Average Overall", stats.AverageOverall},
	}
	for i, row := range summary {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported test results",
		"test_id", testID,
		"sessions", len(sessions),
		"exported_by", actor.UserID)

	return buf.Bytes(), nil
}

func (s *exportService) allSessions(ctx context.Context, testID uint) ([]*models.ExamSession, error) {
	var all []*models.ExamSession
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.Session().GetByTest(ctx, nil, testID, repositories.SessionFilters{
			Limit:     exportPageSize,
			Offset:    offset,
			SortBy:    "created_at",
			SortOrder: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get test sessions: %w", err)
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			return all, nil
		}
	}
}

func resultRow(session *models.ExamSession) []interface{} {
	scores := session.Scores()
	submittedAt := ""
	if session.SubmittedAt != nil {
		submittedAt = session.SubmittedAt.Format("2006-01-02 15:04:05")
	}

	return []interface{}{
		session.ID,
		session.StudentID,
		string(session.Status),
		session.StartedAt.Format("2006-01-02 15:04:05"),
		submittedAt,
		rawCell(session.ReadingResult.Data()),
		bandCell(scores.Reading),
		rawCell(session.ListeningResult.Data()),
		bandCell(scores.Listening),
		bandCell(scores.Writing),
		bandCell(scores.Speaking),
		bandCell(scoring.OverallBand(scores)),
		string(scoring.State(scores)),
	}
}

func rawCell(result *models.ModuleResult) interface{} {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", result.RawCorrect, result.RawTotal)
}

func bandCell(b *models.Band) interface{} {
	if b == nil {
		return ""
	}
	return float64(*b)
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
