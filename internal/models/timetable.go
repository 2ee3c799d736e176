package models

import (
	"fmt"
	"time"
)

// SchoolWeekdays lists the teaching days, Monday first. Weekday indexes in
// week schedules are 1-based positions into this list.
var SchoolWeekdays = [5]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// IsSchoolWeekday reports whether the given name is a teaching-day name.
func IsSchoolWeekday(name string) bool {
	for _, day := range SchoolWeekdays {
		if day == name {
			return true
		}
	}
	return false
}

// StartOfWeek returns the Monday of the week containing the given date.
func StartOfWeek(when time.Time) time.Time {
	offset := (int(when.Weekday()) + 6) % 7
	return when.AddDate(0, 0, -offset)
}

// Room identifies a scheduling unit as a (year, department, class) triple.
// Constructed per request; never persisted.
type Room struct {
	Year       int    `json:"year"`
	Department string `json:"department"`
	Class      string `json:"class"`
}

// Tags returns the room's matchable fingerprint.
func (r Room) Tags() TagSet {
	return TagSet{fmt.Sprintf("year%d", r.Year), r.Department, "class-" + r.Class}
}

// LessonEntry is a raw cell of the base timetable or a special schedule.
type LessonEntry struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Duration int    `json:"duration"`
	Timeslot int    `json:"timeslot"`
	Where    string `json:"where"`
}

// TimeScheduleBlock is a display-ready period entry for one day. Derived per
// request; never persisted.
type TimeScheduleBlock struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	SlotIDs       []string `json:"slotIds"`
	Location      string   `json:"location,omitempty"`
	EndsEarly     bool     `json:"endsEarly"`
	OverlapsBreak bool     `json:"overlapsBreak"`
	IsBreak       bool     `json:"isBreak"`
	IsLunch       bool     `json:"isLunch"`
}

// OverrideType categorises an override event for calendar display.
type OverrideType string

const (
	OverrideTypeClass   OverrideType = "class"
	OverrideTypeHoliday OverrideType = "holiday"
	OverrideTypeExam    OverrideType = "exam"
	OverrideTypeEvent   OverrideType = "event"
	OverrideTypeOther   OverrideType = "other"
	OverrideTypeBreak   OverrideType = "break"
)

// ActionKind says how an override action alters the day's lesson list.
type ActionKind string

const (
	ActionReplace ActionKind = "replace"
	ActionAdd     ActionKind = "add"
)

// Action is an audience-filtered instruction carried by an override event.
// With names either a weekday ("class-Monday") or a special schedule.
type Action struct {
	For  TagSetList `json:"for"`
	With string     `json:"with"`
	Kind ActionKind `json:"action"`
}

// OverrideEvent is a date-ranged calendar entry that may carry
// schedule-altering actions. IDs are assigned by document order at load time;
// events are immutable for the lifetime of the process.
type OverrideEvent struct {
	ID          int
	Date        time.Time
	Duration    int
	Title       string
	Description string
	Type        OverrideType
	Actions     []Action
}

// Covers reports whether the event's inclusive date range contains the given
// day. Duration is counted in days.
func (e OverrideEvent) Covers(when time.Time) bool {
	end := e.Date.AddDate(0, 0, e.Duration)
	return !when.Before(e.Date) && !when.After(end)
}

// SpecialSchedule is a named, reusable alternate day template.
type SpecialSchedule struct {
	Name     string        `json:"class name"`
	Schedule []LessonEntry `json:"schedule"`
}

// Slot is a period definition from the slot document.
type Slot struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AcademicYear holds the academic-year boundary dates as ISO date strings.
type AcademicYear struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AppliedAction logs one override action applied while resolving a day.
// Schedule is the resolved special name, "Normal" for weekday substitutions,
// or "Error" for unresolvable references.
type AppliedAction struct {
	Kind     ActionKind `json:"kind"`
	Schedule string     `json:"schedule"`
}

// CalendarEvent is an override event rendered for calendar consumption.
type CalendarEvent struct {
	ID          int
	Type        OverrideType
	Title       string
	Date        time.Time
	Duration    int
	Description string
}

// CalendarEntry is the serialised calendar representation of an event. The
// end date is start plus duration days, matching the event range convention.
type CalendarEntry struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

// Convert renders the event with ISO start/end dates.
func (e CalendarEvent) Convert() CalendarEntry {
	return CalendarEntry{
		ID:          e.ID,
		Type:        string(e.Type),
		Title:       e.Title,
		Start:       e.Date.Format("2006-01-02"),
		End:         e.Date.AddDate(0, 0, e.Duration).Format("2006-01-02"),
		Description: e.Description,
	}
}

// Calendar packages converted events with the academic-year bounds.
type Calendar struct {
	Events []CalendarEntry `json:"events"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
}
