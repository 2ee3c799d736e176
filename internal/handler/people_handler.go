package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/service"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

// PeopleHandler wires HTTP endpoints to the people service.
type PeopleHandler struct {
	service *service.PeopleService
}

// NewPeopleHandler creates a new handler.
func NewPeopleHandler(svc *service.PeopleService) *PeopleHandler {
	return &PeopleHandler{service: svc}
}

// List godoc
// @Summary List directory entries
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param year query int false "School year"
// @Param department query string false "Department"
// @Param class query string false "Class name"
// @Param q query string false "Search over name and personnel id"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /people [get]
func (h *PeopleHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Department: c.Query("department"),
		Class:      c.Query("class"),
		Search:     c.Query("q"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
			return
		}
		filter.Year = &year
	}

	people, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, people, pagination)
}

// ListByTags godoc
// @Summary List people targeted by an audience tag set
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param tags query string true "Comma-separated room tags"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /people/by-tags [get]
func (h *PeopleHandler) ListByTags(c *gin.Context) {
	raw := c.Query("tags")
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tags query parameter is required"))
		return
	}
	var target models.TagSet
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			target = append(target, tag)
		}
	}

	people, err := h.service.ListByTags(c.Request.Context(), target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, people, nil)
}

// Get godoc
// @Summary Get a directory entry
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/{id} [get]
func (h *PeopleHandler) Get(c *gin.Context) {
	person, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person, nil)
}

// Grades godoc
// @Summary List school years
// @Tags People
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /people/grades [get]
func (h *PeopleHandler) Grades(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Grades(), nil)
}

// Classes godoc
// @Summary List class names
// @Tags People
// @Produce json
// @Param year query int false "School year"
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /people/classes [get]
func (h *PeopleHandler) Classes(c *gin.Context) {
	var year *int
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
			return
		}
		year = &parsed
	}

	response.JSON(c, http.StatusOK, h.service.Classes(year, c.Query("department")), nil)
}

// Update godoc
// @Summary Edit a directory entry
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body service.UpdatePersonRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/{id} [patch]
func (h *PeopleHandler) Update(c *gin.Context) {
	var req service.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid person payload"))
		return
	}

	person, err := h.service.Update(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person, nil)
}
