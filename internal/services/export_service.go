package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

// ExportService renders compliance reports for completed assessments.
type ExportService interface {
	// ExportAssessmentReport writes one assessment's answers, safeguards and
	// security telemetry to an Excel workbook.
	ExportAssessmentReport(ctx context.Context, assessmentID, userID string) ([]byte, error)
	// ExportCompletionSummary writes one row per assessment matching the
	// filters, for periodic compliance audits.
	ExportCompletionSummary(ctx context.Context, companyID string, filters repositories.AssessmentFilters) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

const timeFormat = "2006-01-02 15:04:05"

func (s *exportService) ExportAssessmentReport(ctx context.Context, assessmentID, userID string) ([]byte, error) {
	s.logger.Info("Exporting assessment report", "assessment_id", assessmentID, "user_id", userID)

	assessment, err := s.repo.Assessment().GetByIDWithDetails(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	f := excelize.NewFile()

	if err := s.writeSummarySheet(f, assessment); err != nil {
		return nil, err
	}
	if err := s.writeAnswersSheet(f, assessment); err != nil {
		return nil, err
	}
	if err := s.writeSecuritySheet(f, assessment.SecurityEvents); err != nil {
		return nil, err
	}

	// Drop the default sheet so Summary opens first.
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, assessment *models.HazardAssessment) error {
	sheetName := "Summary"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	rows := [][]interface{}{
		{"Assessment ID", assessment.ID},
		{"Template", assessment.Template.Name},
		{"Shipment ID", assessment.ShipmentID},
		{"Completed By", stringValue(assessment.CompletedBy)},
		{"Status", string(assessment.Status)},
		{"Result", resultString(assessment.Result)},
		{"Started At", timePtrString(assessment.StartedAt)},
		{"Ended At", timePtrString(assessment.EndedAt)},
		{"Completion Seconds", intPtrValue(assessment.CompletionSeconds)},
		{"Start Position", positionString(assessment.StartLatitude, assessment.StartLongitude)},
		{"End Position", positionString(assessment.EndLatitude, assessment.EndLongitude)},
		{"Override Reason", stringValue(assessment.OverrideReason)},
		{"Override Reviewed By", stringValue(assessment.OverrideReviewedBy)},
		{"Security Events", len(assessment.SecurityEvents)},
	}
	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+1)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func (s *exportService) writeAnswersSheet(f *excelize.File, assessment *models.HazardAssessment) error {
	sheetName := "Answers"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{
		"Section", "Question", "Answer", "Failure", "Comment",
		"Photo URL", "Override", "Override Reason", "Answered At", "Latitude", "Longitude",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	type questionInfo struct {
		text    string
		section string
	}
	questions := make(map[string]questionInfo)
	for _, section := range assessment.Template.Sections {
		for _, q := range section.Questions {
			questions[q.ID] = questionInfo{text: q.Text, section: section.Title}
		}
	}

	for rowIndex, answer := range assessment.Answers {
		info := questions[answer.QuestionID]
		row := []interface{}{
			info.section,
			info.text,
			answer.Value,
			answer.IsFailure(),
			stringValue(answer.Comment),
			stringValue(answer.PhotoURL),
			answer.IsOverride,
			stringValue(answer.OverrideReason),
			answer.AnsweredAt.Format(timeFormat),
			floatPtrValue(answer.Latitude),
			floatPtrValue(answer.Longitude),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func (s *exportService) writeSecuritySheet(f *excelize.File, securityEvents []models.SecurityEvent) error {
	sheetName := "Security Events"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Kind", "Detail", "Question ID", "Occurred At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, event := range securityEvents {
		row := []interface{}{
			string(event.Kind),
			event.Detail,
			stringValue(event.QuestionID),
			event.OccurredAt.Format(timeFormat),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func (s *exportService) ExportCompletionSummary(ctx context.Context, companyID string, filters repositories.AssessmentFilters) ([]byte, error) {
	s.logger.Info("Exporting completion summary", "company_id", companyID)

	assessments, _, err := s.repo.Assessment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Assessments"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Assessment ID", "Shipment ID", "Template ID", "Completed By",
		"Status", "Result", "Started At", "Ended At", "Completion Seconds",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, assessment := range assessments {
		row := []interface{}{
			assessment.ID,
			assessment.ShipmentID,
			assessment.TemplateID,
			stringValue(assessment.CompletedBy),
			string(assessment.Status),
			resultString(assessment.Result),
			timePtrString(assessment.StartedAt),
			timePtrString(assessment.EndedAt),
			intPtrValue(assessment.CompletionSeconds),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== FORMAT HELPERS =====

func resultString(result *models.OverallResult) string {
	if result == nil {
		return ""
	}
	return string(*result)
}

func positionString(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return ""
	}
	return fmt.Sprintf("%.6f, %.6f", *lat, *lng)
}

func timePtrString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}

func intPtrValue(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func floatPtrValue(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
