package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type peopleUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListTagged(ctx context.Context) ([]models.User, error)
}

type peopleDataset interface {
	Years() []int
	Classes(year *int, department string) []string
}

// PeopleService exposes the school directory and personnel editing.
type PeopleService struct {
	repo      peopleUserRepository
	data      peopleDataset
	matchMode models.TagMatchMode
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeopleService constructs the service.
func NewPeopleService(repo peopleUserRepository, data peopleDataset, matchMode models.TagMatchMode, validate *validator.Validate, logger *zap.Logger) *PeopleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeopleService{repo: repo, data: data, matchMode: matchMode, validator: validate, logger: logger}
}

// GradeInfo labels a school year for directory dropdowns.
type GradeInfo struct {
	Year  int    `json:"year"`
	Label string `json:"label"`
}

// UpdatePersonRequest describes the personnel edit payload.
type UpdatePersonRequest struct {
	Name *string          `json:"name"`
	Role *models.UserRole `json:"role"`
	Tags *models.TagSet   `json:"tags"`
}

// List returns directory entries matching the filter with pagination.
func (s *PeopleService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list people")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// ListByTags returns the users whose audience tag set targets the given tags.
func (s *PeopleService) ListByTags(ctx context.Context, target models.TagSet) ([]models.User, error) {
	users, err := s.repo.ListTagged(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list people by tags")
	}
	matched := make([]models.User, 0, len(users))
	for _, user := range users {
		if user.TagList().Matches(target, s.matchMode) {
			matched = append(matched, user)
		}
	}
	return matched, nil
}

// Get returns a single directory entry.
func (s *PeopleService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return user, nil
}

// Grades returns the ordinal-labelled school years present in the dataset.
func (s *PeopleService) Grades() []GradeInfo {
	years := s.data.Years()
	grades := make([]GradeInfo, 0, len(years))
	for _, year := range years {
		grades = append(grades, GradeInfo{Year: year, Label: ordinalLabel(year)})
	}
	return grades
}

// Classes returns the class names known for an optional year and department.
func (s *PeopleService) Classes(year *int, department string) []string {
	return s.data.Classes(year, department)
}

// Update edits a person's name, role or audience tags. Admin only.
func (s *PeopleService) Update(ctx context.Context, id string, actor *models.JWTClaims, req UpdatePersonRequest) (*models.User, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if req.Role != nil {
		switch *req.Role {
		case models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}

	if req.Name != nil {
		user.Name = req.Name
	}
	if req.Role != nil {
		user.Role = req.Role
	}
	if req.Tags != nil {
		encoded, err := models.EncodeTags(*req.Tags)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tags")
		}
		user.Tags = &encoded
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update person")
	}
	return user, nil
}

func ordinalLabel(year int) string {
	suffix := "th"
	switch year % 10 {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	if rem := year % 100; rem >= 11 && rem <= 13 {
		suffix = "th"
	}
	return fmt.Sprintf("%d%s Year", year, suffix)
}
