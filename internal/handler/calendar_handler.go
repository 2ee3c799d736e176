package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/service"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

// CalendarHandler wires HTTP endpoints to the calendar services.
type CalendarHandler struct {
	calendar  *service.CalendarService
	timetable *service.TimetableService
	export    *service.ExportService
	people    *service.PeopleService
	cache     *service.CacheService

	defaultClass string
	logger       *zap.Logger
}

// NewCalendarHandler creates a new handler.
func NewCalendarHandler(calendar *service.CalendarService, timetable *service.TimetableService, export *service.ExportService, people *service.PeopleService, cache *service.CacheService, defaultClass string, logger *zap.Logger) *CalendarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarHandler{calendar: calendar, timetable: timetable, export: export, people: people, cache: cache, defaultClass: defaultClass, logger: logger}
}

// Academic godoc
// @Summary School-wide academic calendar
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/academic [get]
func (h *CalendarHandler) Academic(c *gin.Context) {
	cacheKey := "calendar:academic"
	var cached models.Calendar
	if hit, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); hit {
		middleware.SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, cached, nil, middleware.ExtractMeta(c))
		return
	}

	calendar := h.calendar.AcademicInfo(h.calendar.EventsAll())
	if err := h.cache.Set(c.Request.Context(), cacheKey, calendar, 0); err != nil {
		h.logger.Warn("failed to cache academic calendar", zap.Error(err))
	}
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, calendar, nil, middleware.ExtractMeta(c))
}

// Personal godoc
// @Summary Calendar scoped to a class
// @Tags Calendar
// @Produce json
// @Param class query string false "Class name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar/personal [get]
func (h *CalendarHandler) Personal(c *gin.Context) {
	room, err := h.resolveRoom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	cacheKey := fmt.Sprintf("calendar:%s", room.Class)
	var cached models.Calendar
	if hit, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); hit {
		middleware.SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, cached, nil, middleware.ExtractMeta(c))
		return
	}

	calendar := h.calendar.AcademicInfo(h.calendar.Events(room))
	if err := h.cache.Set(c.Request.Context(), cacheKey, calendar, 0); err != nil {
		h.logger.Warn("failed to cache personal calendar", zap.Error(err))
	}
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, calendar, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export calendar as CSV
// @Tags Calendar
// @Produce text/csv
// @Param class query string false "Class name"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /calendar/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	room, err := h.resolveRoom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, filename, err := h.export.CalendarCSV(room)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

func (h *CalendarHandler) resolveRoom(c *gin.Context) (models.Room, error) {
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
