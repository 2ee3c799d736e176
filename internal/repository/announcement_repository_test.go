package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-hub-api/internal/models"
)

func newAnnouncementRepoMock(t *testing.T) (*AnnouncementRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAnnouncementRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func announcementRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "content", "thumbnail", "author_id",
		"author_name", "author_image", "priority", "published_at", "created_at", "updated_at",
	})
}

func TestAnnouncementRepositoryList(t *testing.T) {
	repo, mock := newAnnouncementRepoMock(t)

	now := time.Now()
	rows := announcementRows().
		AddRow("a1", "Sports Day", "Schedule attached", nil, nil, "u1", "Alice", nil, 5, now, now, now).
		AddRow("a2", "Library Hours", "Extended hours", nil, nil, "u2", "Bob", nil, 1, now, now, now)
	mock.ExpectQuery(`SELECT a\.id, .+ FROM announcements a\s+JOIN users u ON u\.id = a\.author_id ORDER BY a\.priority DESC, a\.published_at DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM announcements a`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, total)
	require.Equal(t, "Alice", *items[0].AuthorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListWithSearch(t *testing.T) {
	repo, mock := newAnnouncementRepoMock(t)

	mock.ExpectQuery(`SELECT a\.id, .+ WHERE \(LOWER\(a\.title\) LIKE \$1 OR LOWER\(a\.description\) LIKE \$1\) ORDER BY a\.priority DESC, a\.published_at DESC LIMIT 10 OFFSET 10`).
		WithArgs("%sports%").
		WillReturnRows(announcementRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM announcements a WHERE \(LOWER\(a\.title\) LIKE \$1 OR LOWER\(a\.description\) LIKE \$1\)`).
		WithArgs("%sports%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{Query: "Sports", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryFindByID(t *testing.T) {
	repo, mock := newAnnouncementRepoMock(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT a\.id, .+ WHERE a\.id = \$1 LIMIT 1`).
		WithArgs("a1").
		WillReturnRows(announcementRows().AddRow("a1", "Sports Day", "desc", nil, nil, "u1", "Alice", nil, 5, now, now, now))

	item, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, "Sports Day", item.Title)

	mock.ExpectQuery(`SELECT a\.id, .+ WHERE a\.id = \$1 LIMIT 1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreateUpdateDelete(t *testing.T) {
	repo, mock := newAnnouncementRepoMock(t)

	now := time.Now().UTC()
	item := &models.Announcement{
		ID:          "a1",
		Title:       "Sports Day",
		Description: "desc",
		AuthorID:    "u1",
		Priority:    5,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO announcements`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), item))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE announcements SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	before := item.UpdatedAt
	require.NoError(t, repo.Update(context.Background(), item))
	require.False(t, item.UpdatedAt.Before(before))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM announcements WHERE id = $1`)).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "a1"))

	require.NoError(t, mock.ExpectationsWereMet())
}
