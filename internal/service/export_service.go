package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
	"github.com/noah-isme/classroom-schedule-api/pkg/export"
)

// ExportFormat names a supported timetable export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered timetable document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

type scheduleFinder interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Timetable(ctx context.Context, id string) ([]models.TimetableDay, error)
}

// ExportService renders a schedule's weekly timetable as CSV or PDF.
type ExportService struct {
	schedules scheduleFinder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs an export service.
func NewExportService(schedules scheduleFinder, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Timetable renders the schedule's slots, grouped by day and ordered by start
// time, in the requested format.
func (s *ExportService) Timetable(ctx context.Context, scheduleID string, format ExportFormat) (*ExportResult, error) {
	days, err := s.schedules.Timetable(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	dataset := timetableDataset(days)
	title := fmt.Sprintf("Weekly timetable %s", scheduleID)

	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv timetable")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("timetable-%s.csv", scheduleID),
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf timetable")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("timetable-%s.pdf", scheduleID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func timetableDataset(days []models.TimetableDay) export.Dataset {
	dataset := export.Dataset{Headers: []string{"Day", "Start", "End", "Duration (min)"}}
	for _, day := range days {
		for _, slot := range day.Slots {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Day":            string(day.Day),
				"Start":          slot.StartMinute.String(),
				"End":            slot.EndMinute.String(),
				"Duration (min)": fmt.Sprintf("%d", slot.Duration()),
			})
		}
	}
	return dataset
}
