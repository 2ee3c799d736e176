package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type timetableDataset interface {
	DayLessons(room models.Room, weekday string) ([]models.LessonEntry, bool)
	Special(name string) ([]models.LessonEntry, bool)
	Overrides() []models.OverrideEvent
	Slots() []models.Slot
	FindClass(class string) (models.Room, bool)
}

const (
	homeroomID = "shr"
	lunchID    = "lunch"

	// lunchBoundary is the last pre-lunch period. The lunch block is inserted
	// before the first lesson whose timeslot exceeds it, and consumes one slot
	// number, shifting everything after it up by one.
	lunchBoundary = 4

	// weekdayRefPrefix marks an action schedule reference that substitutes
	// another weekday of the room's own base timetable.
	weekdayRefPrefix = "class-"

	scheduleNormal = "Normal"
	scheduleError  = "Error"
)

// fixedWeekEpoch predates every dataset override, so the week containing it
// renders the unmodified base pattern.
var fixedWeekEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimetableService resolves a room's schedule by layering date-scoped
// override events onto the static base timetable. All operations are pure
// reads over the dataset and are safe for concurrent use.
type TimetableService struct {
	data      timetableDataset
	matchMode models.TagMatchMode
	logger    *zap.Logger
}

// NewTimetableService constructs the service.
func NewTimetableService(data timetableDataset, matchMode models.TagMatchMode, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{data: data, matchMode: matchMode, logger: logger}
}

// Slots returns the period definitions.
func (s *TimetableService) Slots() []models.Slot {
	return s.data.Slots()
}

// FindClass resolves a class name against the dataset.
func (s *TimetableService) FindClass(class string) (models.Room, error) {
	room, ok := s.data.FindClass(class)
	if !ok {
		return models.Room{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown class %q", class))
	}
	return room, nil
}

// ResolveDay assembles the raw lesson list for one room and date: the base
// timetable cell with every covering override action applied in document
// order. Later "replace" actions win; "add" actions accumulate. The returned
// log records every matched action, including unresolvable ones.
func (s *TimetableService) ResolveDay(room models.Room, when time.Time) ([]models.LessonEntry, []models.AppliedAction, error) {
	lessons, ok := s.data.DayLessons(room, when.Weekday().String())
	if !ok {
		return nil, nil, appErrors.ErrRoomNotScheduled
	}

	var applied []models.AppliedAction
	roomTags := room.Tags()
	for _, event := range s.data.Overrides() {
		if !event.Covers(when) {
			continue
		}
		for _, action := range event.Actions {
			if !models.MatchesAny(action.For, roomTags, s.matchMode) {
				continue
			}
			resolved, name := s.resolveScheduleRef(room, action.With)
			applied = append(applied, models.AppliedAction{Kind: action.Kind, Schedule: name})
			switch action.Kind {
			case models.ActionReplace:
				lessons = resolved
			case models.ActionAdd:
				lessons = append(lessons, resolved...)
			default:
				// unrecognised kinds are no-ops
			}
		}
	}

	return lessons, applied, nil
}

// resolveScheduleRef turns an action's "with" reference into lessons: either
// another weekday of the room's own base week, or a named special schedule.
// Unresolvable references yield an empty schedule tagged "Error" so the rest
// of the day's resolution can proceed.
func (s *TimetableService) resolveScheduleRef(room models.Room, ref string) ([]models.LessonEntry, string) {
	if weekday := strings.TrimPrefix(ref, weekdayRefPrefix); weekday != ref && models.IsSchoolWeekday(weekday) {
		if lessons, ok := s.data.DayLessons(room, weekday); ok {
			return lessons, scheduleNormal
		}
		return nil, scheduleError
	}
	if lessons, ok := s.data.Special(ref); ok {
		return lessons, ref
	}
	s.logger.Warn("override references unknown special schedule", zap.String("with", ref))
	return nil, scheduleError
}

// ConvertDay produces the ordered display blocks for one day's raw lessons.
// Homeroom and lunch are injected automatically unless an override shaped the
// day, in which case the override schedule is assumed to define its own
// structure; literal "shr"/"lunch" entries in the lessons re-enable them.
func (s *TimetableService) ConvertDay(lessons []models.LessonEntry, applied []models.AppliedAction) []models.TimeScheduleBlock {
	hasHomeroom := len(applied) == 0
	hasLunch := len(applied) == 0
	for _, lesson := range lessons {
		if lesson.ID == homeroomID {
			hasHomeroom = true
		}
		if lesson.ID == lunchID {
			hasLunch = true
		}
	}

	day := make([]models.LessonEntry, len(lessons))
	copy(day, lessons)
	sort.SliceStable(day, func(i, j int) bool { return day[i].Timeslot < day[j].Timeslot })

	blocks := make([]models.TimeScheduleBlock, 0, len(day)+2)
	if hasHomeroom {
		blocks = append(blocks, models.TimeScheduleBlock{ID: homeroomID, Title: "SHR", SlotIDs: []string{"s1"}})
	}

	passedLunch := false
	lastEnd := 1
	lastLesson := -1
	for _, lesson := range day {
		if hasLunch && lesson.Timeslot > lunchBoundary && !passedLunch {
			passedLunch = true
			blocks = append(blocks, models.TimeScheduleBlock{
				ID:      lunchID,
				Title:   "Lunch",
				SlotIDs: []string{fmt.Sprintf("s%d", lunchBoundary+2)},
				IsLunch: true,
			})
		}
		if lesson.ID == homeroomID || lesson.ID == lunchID {
			continue
		}

		shift := 1
		if passedLunch {
			shift = 2
		}
		slotIDs := make([]string, 0, lesson.Duration)
		for period := lesson.Timeslot; period < lesson.Timeslot+lesson.Duration; period++ {
			slotIDs = append(slotIDs, fmt.Sprintf("s%d", period+shift))
		}

		// A hole between the previous lesson's end and this one means the
		// schedule ends early for that block.
		if lesson.Timeslot > lastEnd && lastLesson >= 0 {
			blocks[lastLesson].EndsEarly = true
		}

		blocks = append(blocks, models.TimeScheduleBlock{
			ID:            lesson.ID,
			Title:         lesson.Subject,
			SlotIDs:       slotIDs,
			Location:      lesson.Where,
			OverlapsBreak: lesson.Duration >= 3,
		})
		lastLesson = len(blocks) - 1
		lastEnd = lesson.Timeslot + lesson.Duration
	}

	return blocks
}

// WeekSchedule resolves and converts the five weekdays of the Monday-starting
// week containing the given date, keyed by 1-based weekday index. Days the
// room is not scheduled for render as empty block lists.
func (s *TimetableService) WeekSchedule(room models.Room, when time.Time) (map[int][]models.TimeScheduleBlock, map[int][]models.AppliedAction, error) {
	start := models.StartOfWeek(when)
	week := make(map[int][]models.TimeScheduleBlock, len(models.SchoolWeekdays))
	actions := make(map[int][]models.AppliedAction, len(models.SchoolWeekdays))
	for offset := 0; offset < len(models.SchoolWeekdays); offset++ {
		day := start.AddDate(0, 0, offset)
		lessons, applied, err := s.ResolveDay(room, day)
		if err != nil {
			if errors.Is(err, appErrors.ErrRoomNotScheduled) {
				week[offset+1] = []models.TimeScheduleBlock{}
				continue
			}
			return nil, nil, err
		}
		week[offset+1] = s.ConvertDay(lessons, applied)
		actions[offset+1] = applied
	}
	return week, actions, nil
}

// FixedWeekSchedule renders the room's unmodified base weekly pattern by
// resolving the epoch week, which no dataset override covers.
func (s *TimetableService) FixedWeekSchedule(room models.Room) (map[int][]models.TimeScheduleBlock, map[int][]models.AppliedAction, error) {
	return s.WeekSchedule(room, fixedWeekEpoch)
}
