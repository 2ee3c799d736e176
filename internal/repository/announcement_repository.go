package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-hub-api/internal/models"
)

// AnnouncementRepository provides database access for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates a new instance of AnnouncementRepository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

const announcementSelect = `SELECT a.id, a.title, a.description, a.content, a.thumbnail, a.author_id,
	u.name AS author_name, u.image AS author_image,
	a.priority, a.published_at, a.created_at, a.updated_at
	FROM announcements a
	JOIN users u ON u.id = a.author_id`

// List returns announcements ordered by priority then recency, filtered by an
// optional case-insensitive search over title and description.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	baseWhere := ""
	var args []interface{}
	if filter.Query != "" {
		baseWhere = " WHERE (LOWER(a.title) LIKE $1 OR LOWER(a.description) LIKE $1)"
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("%s%s ORDER BY a.priority DESC, a.published_at DESC LIMIT %d OFFSET %d",
		announcementSelect, baseWhere, pageSize, offset)
	var items []models.Announcement
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM announcements a" + baseWhere
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}

	return items, total, nil
}

// FindByID returns a single announcement with author details.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := announcementSelect + " WHERE a.id = $1 LIMIT 1"
	var item models.Announcement
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return &item, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	query := `INSERT INTO announcements (id, title, description, content, thumbnail, author_id, priority, published_at, created_at, updated_at)
		VALUES (:id, :title, :description, :content, :thumbnail, :author_id, :priority, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update rewrites the editable fields of an announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, a *models.Announcement) error {
	query := `UPDATE announcements SET title = :title, description = :description, content = :content,
		thumbnail = :thumbnail, priority = :priority, updated_at = :updated_at WHERE id = :id`
	a.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
