package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/service"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

const dateLayout = "2006-01-02"

// ScheduleHandler wires HTTP endpoints to the timetable services.
type ScheduleHandler struct {
	timetable    *service.TimetableService
	export       *service.ExportService
	people       *service.PeopleService
	cache        *service.CacheService
	defaultClass string
	logger       *zap.Logger
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(timetable *service.TimetableService, export *service.ExportService, people *service.PeopleService, cache *service.CacheService, defaultClass string, logger *zap.Logger) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{timetable: timetable, export: export, people: people, cache: cache, defaultClass: defaultClass, logger: logger}
}

// Slots godoc
// @Summary List timeslot definitions
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/slots [get]
func (h *ScheduleHandler) Slots(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.timetable.Slots(), nil)
}

// Timetable godoc
// @Summary Fixed week timetable
// @Description Return the timetable for a reference week with every override applied
// @Tags Schedule
// @Produce json
// @Param class query string false "Class name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/timetable [get]
func (h *ScheduleHandler) Timetable(c *gin.Context) {
	room, err := h.resolveRoom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	cacheKey := fmt.Sprintf("schedule:%s:fixed", room.Class)
	var cached map[int][]models.TimeScheduleBlock
	if hit, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); hit {
		middleware.SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, cached, nil, middleware.ExtractMeta(c))
		return
	}

	week, _, err := h.timetable.FixedWeekSchedule(room)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.cache.Set(c.Request.Context(), cacheKey, week, 0); err != nil {
		h.logger.Warn("failed to cache fixed week schedule", zap.Error(err))
	}
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, week, nil, middleware.ExtractMeta(c))
}

// TimetableDated godoc
// @Summary Week timetable for a date
// @Description Return the timetable of the week containing the given date
// @Tags Schedule
// @Produce json
// @Param class query string false "Class name"
// @Param when query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/timetable/dated [get]
func (h *ScheduleHandler) TimetableDated(c *gin.Context) {
	room, err := h.resolveRoom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	when, err := parseDateParam(c.Query("when"))
	if err != nil {
		response.Error(c, err)
		return
	}

	weekStart := models.StartOfWeek(when).Format(dateLayout)
	cacheKey := fmt.Sprintf("schedule:%s:%s", room.Class, weekStart)
	var cached map[int][]models.TimeScheduleBlock
	if hit, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); hit {
		middleware.SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, cached, nil, middleware.ExtractMeta(c))
		return
	}

	week, _, err := h.timetable.WeekSchedule(room, when)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.cache.Set(c.Request.Context(), cacheKey, week, 0); err != nil {
		h.logger.Warn("failed to cache week schedule", zap.Error(err))
	}
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, week, nil, middleware.ExtractMeta(c))
}

// ExportTimetable godoc
// @Summary Export week timetable as PDF
// @Tags Schedule
// @Produce application/pdf
// @Param class query string false "Class name"
// @Param when query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/timetable/export [get]
func (h *ScheduleHandler) ExportTimetable(c *gin.Context) {
	room, err := h.resolveRoom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	when := time.Now()
	if raw := c.Query("when"); raw != "" {
		when, err = parseDateParam(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
	}

	payload, filename, err := h.export.WeekSchedulePDF(room, when)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// resolveRoom determines the target class from the query parameter, the
// caller's profile, or the configured default, in that order.
func (h *ScheduleHandler) resolveRoom(c *gin.Context) (models.Room, error) {
	class := c.Query("class")
	if class == "" {
		if claims := claimsFromContext(c); claims != nil {
			person, err := h.people.Get(c.Request.Context(), claims.UserID)
			if err == nil && person.Class != nil && *person.Class != "" {
				class = *person.Class
			}
		}
	}
	if class == "" {
		class = h.defaultClass
	}
	return h.timetable.FindClass(class)
}

func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "when parameter is required")
	}
	when, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "when must be formatted YYYY-MM-DD")
	}
	return when, nil
}
