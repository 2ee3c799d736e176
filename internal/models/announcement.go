package models

import "time"

// Announcement represents a persisted announcement row. Author name and image
// are joined from the users table for display.
type Announcement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Content     *string   `db:"content" json:"content,omitempty"`
	Thumbnail   *string   `db:"thumbnail" json:"thumbnail,omitempty"`
	AuthorID    string    `db:"author_id" json:"author_id"`
	AuthorName  *string   `db:"author_name" json:"author_name,omitempty"`
	AuthorImage *string   `db:"author_image" json:"author_image,omitempty"`
	Priority    int       `db:"priority" json:"priority"`
	PublishedAt time.Time `db:"published_at" json:"date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter narrows announcement listings.
type AnnouncementFilter struct {
	Query    string
	Page     int
	PageSize int
}
