package models

import (
	"encoding/json"
	"time"
)

// UserRole represents the available roles.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table. Accounts are
// provisioned through the OAuth upsert flow; password hashes exist only for
// local operator logins.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	PersonnelID  *string   `db:"personnel_id" json:"personnel_id,omitempty"`
	Name         *string   `db:"name" json:"name,omitempty"`
	Image        *string   `db:"image" json:"image,omitempty"`
	Role         *UserRole `db:"role" json:"role,omitempty"`
	Year         *int      `db:"year" json:"year,omitempty"`
	Department   *string   `db:"department" json:"department,omitempty"`
	Class        *string   `db:"class" json:"class,omitempty"`
	Tags         *string   `db:"tags" json:"tags,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TagList decodes the JSON-encoded tags column into a tag set. A missing or
// malformed column yields an empty set.
func (u User) TagList() TagSet {
	if u.Tags == nil {
		return nil
	}
	var tags TagSet
	if err := json.Unmarshal([]byte(*u.Tags), &tags); err != nil {
		return nil
	}
	return tags
}

// EncodeTags serialises a tag set for the tags column.
func EncodeTags(tags TagSet) (string, error) {
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// OAuthAccount links a user to an external identity provider account.
type OAuthAccount struct {
	ID                string  `db:"id" json:"id"`
	UserID            string  `db:"user_id" json:"user_id"`
	Provider          string  `db:"provider" json:"provider"`
	ProviderAccountID string  `db:"provider_account_id" json:"provider_account_id"`
	AccessToken       *string `db:"access_token" json:"-"`
	RefreshToken      *string `db:"refresh_token" json:"-"`
	ExpiresAt         *int64  `db:"expires_at" json:"expires_at,omitempty"`
	Scope             *string `db:"scope" json:"scope,omitempty"`
}

// UserFilter captures filtering criteria for the people directory.
type UserFilter struct {
	Year       *int
	Department string
	Class      string
	Search     string
	Page       int
	PageSize   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
