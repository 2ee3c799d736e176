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

func newUserRepoMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "personnel_id", "name", "image", "role",
		"year", "department", "class", "tags", "created_at", "updated_at",
	})
}

func TestUserRepositoryFindByID(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	rows := userRows().AddRow(
		"u1", "a@example.com", nil, "P-100", "Alice", nil, "STUDENT",
		2, "Computer Engineering", "C2R1", `["year2"]`, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, personnel_id, name, image, role, year, department, class, tags, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`)).
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", user.Email)
	require.Equal(t, "C2R1", *user.Class)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNoRows(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, personnel_id, name, image, role, year, department, class, tags, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByProviderAccount(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	rows := userRows().AddRow(
		"u1", "a@example.com", nil, nil, "Alice", nil, nil,
		nil, nil, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT u\.id, .+ FROM users u\s+JOIN oauth_accounts a ON a\.user_id = u\.id`).
		WithArgs("google", "acct-1").
		WillReturnRows(rows)

	user, err := repo.FindByProviderAccount(context.Background(), "google", "acct-1")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &models.User{
		ID:        "u1",
		Email:     "a@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateProfileTouchesUpdatedAt(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = ?, image = ?, role = ?, tags = ?, updated_at = ? WHERE id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: "u1", Email: "a@example.com"}
	before := user.UpdatedAt
	err := repo.UpdateProfile(context.Background(), user)
	require.NoError(t, err)
	require.True(t, user.UpdatedAt.After(before))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListWithFilters(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	year := 2
	filter := models.UserFilter{
		Year:       &year,
		Department: "Computer Engineering",
		Search:     "Alice",
		Page:       2,
		PageSize:   10,
	}

	rows := userRows().AddRow(
		"u1", "a@example.com", nil, "P-100", "Alice", nil, "STUDENT",
		2, "Computer Engineering", "C2R1", nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT id, .+ FROM users WHERE 1=1 AND year = \$1 AND department = \$2 AND \(LOWER\(name\) LIKE \$3 OR LOWER\(personnel_id\) LIKE \$3\) ORDER BY name ASC LIMIT 10 OFFSET 10`).
		WithArgs(2, "Computer Engineering", "%alice%").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1 AND year = \$1`).
		WithArgs(2, "Computer Engineering", "%alice%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	users, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 11, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListDefaultsPageSize(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`SELECT id, .+ FROM users WHERE 1=1 ORDER BY name ASC LIMIT 50 OFFSET 0`).
		WillReturnRows(userRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	users, total, err := repo.List(context.Background(), models.UserFilter{PageSize: 500})
	require.NoError(t, err)
	require.Empty(t, users)
	require.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListTagged(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	rows := userRows().AddRow(
		"u1", "a@example.com", nil, nil, "Alice", nil, nil,
		nil, nil, nil, `["year2"]`, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT id, .+ FROM users WHERE tags IS NOT NULL ORDER BY name ASC`).
		WillReturnRows(rows)

	users, err := repo.ListTagged(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].TagList().Contains("year2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryOAuthAccounts(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "provider", "provider_account_id", "access_token", "refresh_token", "expires_at", "scope"}).
		AddRow("a1", "u1", "google", "acct-1", nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope`)).
		WithArgs("google", "acct-1").
		WillReturnRows(rows)

	account, err := repo.FindOAuthAccount(context.Background(), "google", "acct-1")
	require.NoError(t, err)
	require.Equal(t, "u1", account.UserID)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oauth_accounts`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.CreateOAuthAccount(context.Background(), &models.OAuthAccount{
		ID: "a2", UserID: "u1", Provider: "google", ProviderAccountID: "acct-2",
	}))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oauth_accounts SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateOAuthTokens(context.Background(), account))

	require.NoError(t, mock.ExpectationsWereMet())
}
