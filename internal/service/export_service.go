package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders week schedules and calendars into downloadable files.
type ExportService struct {
	timetable *TimetableService
	calendar  *CalendarService
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetable *TimetableService, calendar *CalendarService, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{timetable: timetable, calendar: calendar, csv: csv, pdf: pdf, logger: logger}
}

// WeekSchedulePDF renders the week of the given date for a room as a PDF table.
func (s *ExportService) WeekSchedulePDF(room models.Room, when time.Time) ([]byte, string, error) {
	week, _, err := s.timetable.WeekSchedule(room, when)
	if err != nil {
		return nil, "", err
	}

	maxRows := 0
	for _, day := range week {
		if len(day) > maxRows {
			maxRows = len(day)
		}
	}

	dataset := export.Dataset{Headers: append([]string{""}, models.SchoolWeekdays[:]...)}
	for row := 0; row < maxRows; row++ {
		line := map[string]string{"": fmt.Sprintf("%d", row+1)}
		for day, weekday := range models.SchoolWeekdays {
			blocks := week[day+1]
			if row < len(blocks) {
				line[weekday] = blockLabel(blocks[row])
			}
		}
		dataset.Rows = append(dataset.Rows, line)
	}

	title := fmt.Sprintf("Week Schedule %s (%s)", room.Class, models.StartOfWeek(when).Format("2006-01-02"))
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, "", fmt.Errorf("render week schedule pdf: %w", err)
	}
	filename := fmt.Sprintf("schedule-%s-%s.pdf", strings.ToLower(room.Class), models.StartOfWeek(when).Format("2006-01-02"))
	return payload, filename, nil
}

// CalendarCSV renders the academic calendar for a room as CSV.
func (s *ExportService) CalendarCSV(room models.Room) ([]byte, string, error) {
	calendar := s.calendar.AcademicInfo(s.calendar.Events(room))

	dataset := export.Dataset{Headers: []string{"id", "type", "title", "start", "end", "description"}}
	for _, entry := range calendar.Events {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":          fmt.Sprintf("%d", entry.ID),
			"type":        entry.Type,
			"title":       entry.Title,
			"start":       entry.Start,
			"end":         entry.End,
			"description": entry.Description,
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", fmt.Errorf("render calendar csv: %w", err)
	}
	filename := fmt.Sprintf("calendar-%s.csv", strings.ToLower(room.Class))
	return payload, filename, nil
}

func blockLabel(block models.TimeScheduleBlock) string {
	label := block.Title
	if block.Location != "" {
		label += " @ " + block.Location
	}
	if len(block.SlotIDs) > 0 {
		label += " [" + strings.Join(block.SlotIDs, ",") + "]"
	}
	return label
}
