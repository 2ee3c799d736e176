package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/export"
)

type capturePDF struct {
	dataset export.Dataset
	title   string
}

func (r *capturePDF) Render(data export.Dataset, title string) ([]byte, error) {
	r.dataset = data
	r.title = title
	return []byte("rendered"), nil
}

type captureCSV struct {
	dataset export.Dataset
}

func (r *captureCSV) Render(data export.Dataset) ([]byte, error) {
	r.dataset = data
	return []byte("rendered"), nil
}

func TestWeekSchedulePDFBuildsHeaderKeyedRows(t *testing.T) {
	timetableSvc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)
	pdf := &capturePDF{}
	svc := NewExportService(timetableSvc, nil, nil, nil, pdf)

	payload, filename, err := svc.WeekSchedulePDF(testRoom, monday2026)
	require.NoError(t, err)
	require.Equal(t, []byte("rendered"), payload)
	require.Equal(t, "schedule-c2r1-2026-04-06.pdf", filename)
	require.Equal(t, "Week Schedule C2R1 (2026-04-06)", pdf.title)

	dataset := pdf.dataset
	require.Equal(t, []string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, dataset.Headers)
	// Monday has the most blocks: homeroom, three lessons and lunch.
	require.Len(t, dataset.Rows, 5)

	require.Equal(t, "1", dataset.Rows[0][""])
	require.Equal(t, "SHR [s1]", dataset.Rows[0]["Monday"])
	require.Equal(t, "Mathematics @ Room 201 [s2,s3]", dataset.Rows[1]["Monday"])
	require.Equal(t, "English @ Room 201 [s7,s8]", dataset.Rows[4]["Monday"])

	// Tuesday has two blocks; the later rows leave its column blank.
	require.Equal(t, "Physics @ Room 201 [s2,s3]", dataset.Rows[1]["Tuesday"])
	require.Empty(t, dataset.Rows[4]["Tuesday"])
}

func TestCalendarCSVRendersThroughExporter(t *testing.T) {
	calendarSvc := NewCalendarService(calendarFixture(), models.TagMatchStrict, false, nil)
	svc := NewExportService(nil, calendarSvc, nil, nil, nil)

	payload, filename, err := svc.CalendarCSV(testRoom)
	require.NoError(t, err)
	require.Equal(t, "calendar-c2r1.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "id,type,title,start,end,description", lines[0])
	require.Equal(t, "0,event,Culture Festival,2024-03-01,2024-03-04,Whole-school festival.", lines[1])
}

func TestCalendarCSVColumnsFollowHeaders(t *testing.T) {
	calendarSvc := NewCalendarService(calendarFixture(), models.TagMatchStrict, false, nil)
	csv := &captureCSV{}
	svc := NewExportService(nil, calendarSvc, nil, csv, nil)

	_, _, err := svc.CalendarCSV(testRoom)
	require.NoError(t, err)

	require.Equal(t, []string{"id", "type", "title", "start", "end", "description"}, csv.dataset.Headers)
	require.Len(t, csv.dataset.Rows, 2)
	require.Equal(t, "Year 2 Exams", csv.dataset.Rows[1]["title"])
	require.Equal(t, "2024-05-21", csv.dataset.Rows[1]["end"])
}
