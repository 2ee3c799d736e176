package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
)

const (
	timetableFile = "timetables.json"
	specialFile   = "special.json"
	overrideFile  = "override.json"
	slotsFile     = "slots.json"
	academicFile  = "academic.json"
)

// timetableDocument mirrors the on-disk base timetable:
// year key → department → class → weekday → lessons.
type timetableDocument map[string]map[string]map[string]map[string][]models.LessonEntry

type overrideDocument struct {
	Date        string          `json:"date"`
	Duration    int             `json:"duration"`
	Title       string          `json:"event"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Actions     []models.Action `json:"actions"`
}

type academicDocument struct {
	AcademicYear models.AcademicYear `json:"academicYear"`
}

// DatasetRepository serves the static scheduling documents. Everything is
// loaded and validated once at construction and is immutable afterwards;
// accessors returning lesson lists hand out copies so callers can never
// corrupt the shared state. Safe for unlimited concurrent reads.
type DatasetRepository struct {
	timetables timetableDocument
	specials   map[string][]models.LessonEntry
	overrides  []models.OverrideEvent
	slots      []models.Slot
	academic   models.AcademicYear
	classIndex map[string]models.Room
	logger     *zap.Logger
}

// NewDatasetRepository loads the five documents from dir, failing fast on any
// malformed input.
func NewDatasetRepository(dir string, logger *zap.Logger) (*DatasetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := &DatasetRepository{logger: logger}

	if err := decodeFile(filepath.Join(dir, timetableFile), &repo.timetables); err != nil {
		return nil, err
	}
	if err := repo.buildClassIndex(); err != nil {
		return nil, err
	}

	var specials []models.SpecialSchedule
	if err := decodeFile(filepath.Join(dir, specialFile), &specials); err != nil {
		return nil, err
	}
	repo.specials = make(map[string][]models.LessonEntry, len(specials))
	for _, special := range specials {
		if special.Name == "" {
			return nil, fmt.Errorf("%s: special schedule without a name", specialFile)
		}
		repo.specials[special.Name] = special.Schedule
	}

	var docs []overrideDocument
	if err := decodeFile(filepath.Join(dir, overrideFile), &docs); err != nil {
		return nil, err
	}
	repo.overrides = make([]models.OverrideEvent, 0, len(docs))
	for idx, doc := range docs {
		event, err := buildOverrideEvent(idx, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: event %d: %w", overrideFile, idx, err)
		}
		repo.overrides = append(repo.overrides, event)
	}

	if err := decodeFile(filepath.Join(dir, slotsFile), &repo.slots); err != nil {
		return nil, err
	}

	var academic academicDocument
	if err := decodeFile(filepath.Join(dir, academicFile), &academic); err != nil {
		return nil, err
	}
	repo.academic = academic.AcademicYear

	logger.Info("timetable dataset loaded",
		zap.Int("classes", len(repo.classIndex)),
		zap.Int("specials", len(repo.specials)),
		zap.Int("overrides", len(repo.overrides)),
		zap.Int("slots", len(repo.slots)),
	)

	return repo, nil
}

func decodeFile(path string, dest interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset document: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func buildOverrideEvent(id int, doc overrideDocument) (models.OverrideEvent, error) {
	date, err := time.Parse("2006-01-02", doc.Date)
	if err != nil {
		return models.OverrideEvent{}, fmt.Errorf("invalid date %q: %w", doc.Date, err)
	}
	if doc.Duration < 0 {
		return models.OverrideEvent{}, fmt.Errorf("negative duration %d", doc.Duration)
	}
	if doc.Title == "" {
		return models.OverrideEvent{}, fmt.Errorf("missing event title")
	}

	kind := models.OverrideType(doc.Type)
	switch kind {
	case "":
		kind = models.OverrideTypeOther
	case models.OverrideTypeClass, models.OverrideTypeHoliday, models.OverrideTypeExam,
		models.OverrideTypeEvent, models.OverrideTypeOther, models.OverrideTypeBreak:
	default:
		return models.OverrideEvent{}, fmt.Errorf("unknown event type %q", doc.Type)
	}

	for i, action := range doc.Actions {
		if len(action.For) == 0 {
			return models.OverrideEvent{}, fmt.Errorf("action %d: empty audience", i)
		}
		if action.With == "" {
			return models.OverrideEvent{}, fmt.Errorf("action %d: missing schedule reference", i)
		}
	}

	return models.OverrideEvent{
		ID:          id,
		Date:        date,
		Duration:    doc.Duration,
		Title:       doc.Title,
		Description: doc.Description,
		Type:        kind,
		Actions:     doc.Actions,
	}, nil
}

func (r *DatasetRepository) buildClassIndex() error {
	r.classIndex = make(map[string]models.Room)
	for yearKey, departments := range r.timetables {
		year, err := parseYearKey(yearKey)
		if err != nil {
			return fmt.Errorf("%s: %w", timetableFile, err)
		}
		for department, classes := range departments {
			for class, week := range classes {
				for weekday, lessons := range week {
					if !models.IsSchoolWeekday(weekday) {
						return fmt.Errorf("%s: %s/%s/%s: unknown weekday %q", timetableFile, yearKey, department, class, weekday)
					}
					for i, lesson := range lessons {
						if lesson.Timeslot < 1 || lesson.Duration < 1 {
							return fmt.Errorf("%s: %s/%s/%s/%s: lesson %d has invalid timeslot/duration", timetableFile, yearKey, department, class, weekday, i)
						}
					}
				}
				if _, exists := r.classIndex[class]; exists {
					return fmt.Errorf("%s: class %q appears under more than one year/department", timetableFile, class)
				}
				r.classIndex[class] = models.Room{Year: year, Department: department, Class: class}
			}
		}
	}
	return nil
}

func parseYearKey(key string) (int, error) {
	if !strings.HasPrefix(key, "year") {
		return 0, fmt.Errorf("invalid year key %q", key)
	}
	year, err := strconv.Atoi(strings.TrimPrefix(key, "year"))
	if err != nil || year < 1 {
		return 0, fmt.Errorf("invalid year key %q", key)
	}
	return year, nil
}

// DayLessons returns a copy of the base timetable cell for the room and
// weekday, reporting whether the cell exists.
func (r *DatasetRepository) DayLessons(room models.Room, weekday string) ([]models.LessonEntry, bool) {
	week, ok := r.roomWeek(room)
	if !ok {
		return nil, false
	}
	lessons, ok := week[weekday]
	if !ok {
		return nil, false
	}
	return copyLessons(lessons), true
}

func (r *DatasetRepository) roomWeek(room models.Room) (map[string][]models.LessonEntry, bool) {
	departments, ok := r.timetables[fmt.Sprintf("year%d", room.Year)]
	if !ok {
		return nil, false
	}
	classes, ok := departments[room.Department]
	if !ok {
		return nil, false
	}
	week, ok := classes[room.Class]
	return week, ok
}

// Special returns a copy of the named special schedule.
func (r *DatasetRepository) Special(name string) ([]models.LessonEntry, bool) {
	schedule, ok := r.specials[name]
	if !ok {
		return nil, false
	}
	return copyLessons(schedule), true
}

// Overrides returns the override events in document order. The returned slice
// and its events must be treated as read-only.
func (r *DatasetRepository) Overrides() []models.OverrideEvent {
	return r.overrides
}

// Slots returns the period definitions.
func (r *DatasetRepository) Slots() []models.Slot {
	out := make([]models.Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// AcademicYear returns the academic-year bounds.
func (r *DatasetRepository) AcademicYear() models.AcademicYear {
	return r.academic
}

// FindClass resolves a class name to its room, using the timetable keys as
// the source of truth.
func (r *DatasetRepository) FindClass(class string) (models.Room, bool) {
	room, ok := r.classIndex[class]
	return room, ok
}

// Years lists the years present in the base timetable, ascending.
func (r *DatasetRepository) Years() []int {
	seen := map[int]struct{}{}
	for _, room := range r.classIndex {
		seen[room.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Classes lists class names, optionally filtered by year and department,
// sorted for stable output.
func (r *DatasetRepository) Classes(year *int, department string) []string {
	classes := make([]string, 0, len(r.classIndex))
	for class, room := range r.classIndex {
		if year != nil && room.Year != *year {
			continue
		}
		if department != "" && room.Department != department {
			continue
		}
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

func copyLessons(lessons []models.LessonEntry) []models.LessonEntry {
	out := make([]models.LessonEntry, len(lessons))
	copy(out, lessons)
	return out
}
