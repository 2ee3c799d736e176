package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type datasetStub struct {
	days      map[string]map[string][]models.LessonEntry
	specials  map[string][]models.LessonEntry
	overrides []models.OverrideEvent
	slots     []models.Slot
	rooms     map[string]models.Room
}

func (s *datasetStub) DayLessons(room models.Room, weekday string) ([]models.LessonEntry, bool) {
	week, ok := s.days[room.Class]
	if !ok {
		return nil, false
	}
	lessons, ok := week[weekday]
	return lessons, ok
}

func (s *datasetStub) Special(name string) ([]models.LessonEntry, bool) {
	lessons, ok := s.specials[name]
	return lessons, ok
}

func (s *datasetStub) Overrides() []models.OverrideEvent { return s.overrides }
func (s *datasetStub) Slots() []models.Slot              { return s.slots }

func (s *datasetStub) FindClass(class string) (models.Room, bool) {
	room, ok := s.rooms[class]
	return room, ok
}

var testRoom = models.Room{Year: 2, Department: "Computer Engineering", Class: "C2R1"}

// mondayLessons is the base Monday pattern used across tests: three
// two-period lessons at timeslots 1, 3 and 5.
func mondayLessons() []models.LessonEntry {
	return []models.LessonEntry{
		{ID: "math", Subject: "Mathematics", Duration: 2, Timeslot: 1, Where: "Room 201"},
		{ID: "prog", Subject: "Programming", Duration: 2, Timeslot: 3, Where: "Lab A"},
		{ID: "eng", Subject: "English", Duration: 2, Timeslot: 5, Where: "Room 201"},
	}
}

func newDatasetStub() *datasetStub {
	return &datasetStub{
		days: map[string]map[string][]models.LessonEntry{
			"C2R1": {
				"Monday":    mondayLessons(),
				"Tuesday":   {{ID: "phys", Subject: "Physics", Duration: 2, Timeslot: 1, Where: "Room 201"}},
				"Wednesday": {{ID: "net", Subject: "Networks", Duration: 2, Timeslot: 1, Where: "Lab A"}},
				"Thursday":  {{ID: "jpn", Subject: "Japanese", Duration: 2, Timeslot: 1, Where: "Room 201"}},
				"Friday":    {{ID: "chem", Subject: "Chemistry", Duration: 2, Timeslot: 1, Where: "Room 201"}},
			},
		},
		specials: map[string][]models.LessonEntry{
			"Exam Day A": {
				{ID: "exam", Subject: "Mathematics Exam", Duration: 2, Timeslot: 1, Where: "Exam Hall"},
			},
		},
		rooms: map[string]models.Room{"C2R1": testRoom},
	}
}

// monday2026 is a Monday with no overrides anywhere near it.
var monday2026 = time.Date(2026, time.April, 6, 0, 0, 0, 0, time.UTC)

func TestConvertDayInjectsHomeroomAndLunch(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Empty(t, applied)

	blocks := svc.ConvertDay(lessons, applied)
	require.Len(t, blocks, 5)

	require.Equal(t, "shr", blocks[0].ID)
	require.Equal(t, []string{"s1"}, blocks[0].SlotIDs)

	require.Equal(t, []string{"s2", "s3"}, blocks[1].SlotIDs)
	require.Equal(t, []string{"s4", "s5"}, blocks[2].SlotIDs)

	require.Equal(t, "lunch", blocks[3].ID)
	require.True(t, blocks[3].IsLunch)
	require.Equal(t, []string{"s6"}, blocks[3].SlotIDs)

	// Post-lunch lessons shift by two slots.
	require.Equal(t, []string{"s7", "s8"}, blocks[4].SlotIDs)
}

func TestConvertDayLunchBeforeFirstAfternoonLesson(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	lessons := []models.LessonEntry{
		{ID: "a", Subject: "A", Duration: 1, Timeslot: 2},
		{ID: "b", Subject: "B", Duration: 1, Timeslot: 5},
	}
	blocks := svc.ConvertDay(lessons, nil)
	require.Len(t, blocks, 4)
	require.Equal(t, []string{"s3"}, blocks[1].SlotIDs)
	require.Equal(t, "lunch", blocks[2].ID)
	require.Equal(t, []string{"s6"}, blocks[2].SlotIDs)
	require.Equal(t, []string{"s7"}, blocks[3].SlotIDs)
}

func TestConvertDayFlagsEndsEarlyOnGaps(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	lessons := []models.LessonEntry{
		{ID: "a", Subject: "A", Duration: 1, Timeslot: 1},
		{ID: "b", Subject: "B", Duration: 1, Timeslot: 3},
	}
	blocks := svc.ConvertDay(lessons, nil)
	require.Len(t, blocks, 3)
	require.True(t, blocks[1].EndsEarly)
	require.False(t, blocks[2].EndsEarly)
	require.False(t, blocks[0].EndsEarly, "homeroom is never flagged")
}

func TestConvertDayMarksLongLessonsOverlappingBreaks(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	lessons := []models.LessonEntry{
		{ID: "lab", Subject: "Lab", Duration: 3, Timeslot: 1},
	}
	blocks := svc.ConvertDay(lessons, nil)
	require.Len(t, blocks, 2)
	require.True(t, blocks[1].OverlapsBreak)
}

func TestConvertDaySuppressionAfterOverride(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	lessons := []models.LessonEntry{
		{ID: "exam", Subject: "Exam", Duration: 2, Timeslot: 1},
	}
	applied := []models.AppliedAction{{Kind: models.ActionReplace, Schedule: "Exam Day A"}}

	blocks := svc.ConvertDay(lessons, applied)
	require.Len(t, blocks, 1)
	require.Equal(t, "exam", blocks[0].ID)

	// Literal shr/lunch entries re-enable injection.
	withMarkers := append(lessons,
		models.LessonEntry{ID: "shr", Timeslot: 1},
		models.LessonEntry{ID: "lunch", Timeslot: 5},
	)
	blocks = svc.ConvertDay(withMarkers, applied)
	require.Equal(t, "shr", blocks[0].ID)
	require.Equal(t, "lunch", blocks[2].ID)
}

func TestResolveDayOverridePrecedence(t *testing.T) {
	stub := newDatasetStub()
	audience := models.TagSetList{{"year2", "Computer Engineering", "class-C2R1", "class-C2R2"}}
	stub.specials["Exam Day B"] = []models.LessonEntry{
		{ID: "exam-b", Subject: "Physics Exam", Duration: 2, Timeslot: 1, Where: "Exam Hall"},
	}
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Duration: 0, Title: "Midterms", Type: models.OverrideTypeExam,
			Actions: []models.Action{{For: audience, With: "Exam Day A", Kind: models.ActionReplace}},
		},
		{
			ID: 1, Date: monday2026, Duration: 0, Title: "Rescheduled", Type: models.OverrideTypeExam,
			Actions: []models.Action{{For: audience, With: "Exam Day B", Kind: models.ActionReplace}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	require.Len(t, lessons, 1)
	require.Equal(t, "exam-b", lessons[0].ID)
}

func TestResolveDayAddAppends(t *testing.T) {
	stub := newDatasetStub()
	audience := models.TagSetList{{models.TagAllClasses}}
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Assembly", Type: models.OverrideTypeEvent,
			Actions: []models.Action{{For: audience, With: "Exam Day A", Kind: models.ActionAdd}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Len(t, lessons, len(mondayLessons())+1)
	require.Equal(t, "exam", lessons[len(lessons)-1].ID)
}

func TestResolveDayIgnoresNonMatchingAudience(t *testing.T) {
	stub := newDatasetStub()
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Other Year", Type: models.OverrideTypeExam,
			Actions: []models.Action{{
				For:  models.TagSetList{{"year1", "Computer Engineering", "class-C1R1", "class-C1R2"}},
				With: "Exam Day A", Kind: models.ActionReplace,
			}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Empty(t, applied)
	require.Equal(t, mondayLessons(), lessons)
}

func TestResolveDayMultiDayCoverage(t *testing.T) {
	stub := newDatasetStub()
	audience := models.TagSetList{{models.TagAllClasses}}
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Duration: 2, Title: "Exam Block", Type: models.OverrideTypeExam,
			Actions: []models.Action{{For: audience, With: "Exam Day A", Kind: models.ActionReplace}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	// Covered on the last day of the range.
	_, applied, err := svc.ResolveDay(testRoom, monday2026.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, applied, 1)

	// Out of range the day after.
	_, applied, err = svc.ResolveDay(testRoom, monday2026.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Empty(t, applied)
}

func TestResolveDayUnknownScheduleRef(t *testing.T) {
	stub := newDatasetStub()
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Broken", Type: models.OverrideTypeOther,
			Actions: []models.Action{{
				For:  models.TagSetList{{models.TagAllClasses}},
				With: "No Such Schedule", Kind: models.ActionReplace,
			}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Equal(t, "Error", applied[0].Schedule)
	require.Empty(t, lessons)
}

func TestResolveDayWeekdayReference(t *testing.T) {
	stub := newDatasetStub()
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Tuesday Pattern", Type: models.OverrideTypeClass,
			Actions: []models.Action{{
				For:  models.TagSetList{{models.TagAllClasses}},
				With: "class-Tuesday", Kind: models.ActionReplace,
			}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	lessons, applied, err := svc.ResolveDay(testRoom, monday2026)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Equal(t, "Normal", applied[0].Schedule)
	require.Equal(t, "phys", lessons[0].ID)
}

func TestResolveDayRoomNotScheduled(t *testing.T) {
	stub := newDatasetStub()
	delete(stub.days["C2R1"], "Monday")
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	_, _, err := svc.ResolveDay(testRoom, monday2026)
	require.ErrorIs(t, err, appErrors.ErrRoomNotScheduled)
}

func TestWeekScheduleCoversMondayThroughFriday(t *testing.T) {
	stub := newDatasetStub()
	audience := models.TagSetList{{models.TagAllClasses}}
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Monday Only", Type: models.OverrideTypeExam,
			Actions: []models.Action{{For: audience, With: "Exam Day A", Kind: models.ActionReplace}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	// Resolving from mid-week still anchors to the containing Monday.
	wednesday := monday2026.AddDate(0, 0, 2)
	week, actions, err := svc.WeekSchedule(testRoom, wednesday)
	require.NoError(t, err)
	require.Len(t, week, 5)

	require.Len(t, actions[1], 1, "Monday carries the override")
	require.Empty(t, actions[2])
	require.Equal(t, "exam", week[1][0].ID)
	require.Equal(t, "shr", week[2][0].ID)
}

func TestWeekScheduleUnscheduledDayIsEmpty(t *testing.T) {
	stub := newDatasetStub()
	delete(stub.days["C2R1"], "Friday")
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	week, _, err := svc.WeekSchedule(testRoom, monday2026)
	require.NoError(t, err)
	require.Empty(t, week[5])
	require.NotEmpty(t, week[1])
}

func TestFixedWeekScheduleIgnoresOverrides(t *testing.T) {
	stub := newDatasetStub()
	stub.overrides = []models.OverrideEvent{
		{
			ID: 0, Date: monday2026, Title: "Exams", Type: models.OverrideTypeExam,
			Actions: []models.Action{{
				For:  models.TagSetList{{models.TagAllClasses}},
				With: "Exam Day A", Kind: models.ActionReplace,
			}},
		},
	}
	svc := NewTimetableService(stub, models.TagMatchStrict, nil)

	first, actions, err := svc.FixedWeekSchedule(testRoom)
	require.NoError(t, err)
	for day := 1; day <= 5; day++ {
		require.Empty(t, actions[day])
	}
	require.Equal(t, "shr", first[1][0].ID)

	second, _, err := svc.FixedWeekSchedule(testRoom)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFindClass(t *testing.T) {
	svc := NewTimetableService(newDatasetStub(), models.TagMatchStrict, nil)

	room, err := svc.FindClass("C2R1")
	require.NoError(t, err)
	require.Equal(t, testRoom, room)

	_, err = svc.FindClass("C9R9")
	require.Error(t, err)
}
