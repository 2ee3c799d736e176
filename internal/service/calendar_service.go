package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
)

type calendarDataset interface {
	Overrides() []models.OverrideEvent
	AcademicYear() models.AcademicYear
}

// CalendarService renders override events as academic-calendar entries.
type CalendarService struct {
	data       calendarDataset
	matchMode  models.TagMatchMode
	roomFilter bool
	logger     *zap.Logger
}

// NewCalendarService constructs the service. roomFilter enables the
// room-scoped event filter; disabled it reproduces the legacy behaviour of
// returning every event regardless of audience.
func NewCalendarService(data calendarDataset, matchMode models.TagMatchMode, roomFilter bool, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{data: data, matchMode: matchMode, roomFilter: roomFilter, logger: logger}
}

// EventsAll returns every override event as a calendar event.
func (s *CalendarService) EventsAll() []models.CalendarEvent {
	overrides := s.data.Overrides()
	events := make([]models.CalendarEvent, 0, len(overrides))
	for _, override := range overrides {
		events = append(events, calendarEvent(override))
	}
	return events
}

// Events returns the events relevant to the given room. With the room filter
// disabled all events are returned. With it enabled, events without actions
// are school-wide and always included; events with actions are included when
// any action's audience matches the room.
func (s *CalendarService) Events(room models.Room) []models.CalendarEvent {
	if !s.roomFilter {
		return s.EventsAll()
	}

	roomTags := room.Tags()
	var events []models.CalendarEvent
	for _, override := range s.data.Overrides() {
		if len(override.Actions) > 0 && !anyActionMatches(override.Actions, roomTags, s.matchMode) {
			continue
		}
		events = append(events, calendarEvent(override))
	}
	return events
}

// Convert renders events with ISO start/end spans.
func (s *CalendarService) Convert(events []models.CalendarEvent) []models.CalendarEntry {
	entries := make([]models.CalendarEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, event.Convert())
	}
	return entries
}

// AcademicInfo packages converted events with the academic-year bounds.
func (s *CalendarService) AcademicInfo(events []models.CalendarEvent) models.Calendar {
	year := s.data.AcademicYear()
	return models.Calendar{
		Events: s.Convert(events),
		Start:  year.Start,
		End:    year.End,
	}
}

func anyActionMatches(actions []models.Action, roomTags models.TagSet, mode models.TagMatchMode) bool {
	for _, action := range actions {
		if models.MatchesAny(action.For, roomTags, mode) {
			return true
		}
	}
	return false
}

func calendarEvent(override models.OverrideEvent) models.CalendarEvent {
	return models.CalendarEvent{
		ID:          override.ID,
		Type:        override.Type,
		Title:       override.Title,
		Date:        override.Date,
		Duration:    override.Duration,
		Description: override.Description,
	}
}
