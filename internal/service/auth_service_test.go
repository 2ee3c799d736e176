package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByID       map[string]*models.User
	usersByEmail    map[string]*models.User
	usersByProvider map[string]*models.User
	accounts        map[string]*models.OAuthAccount

	created        []*models.User
	linked         []*models.OAuthAccount
	profileUpdates int
	tokenUpdates   int
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByID:       map[string]*models.User{},
		usersByEmail:    map[string]*models.User{},
		usersByProvider: map[string]*models.User{},
		accounts:        map[string]*models.OAuthAccount{},
	}
}

func providerKey(provider, accountID string) string { return provider + "/" + accountID }

func (m *mockAuthRepo) addUser(user *models.User) {
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.User, error) {
	if user, ok := m.usersByProvider[providerKey(provider, providerAccountID)]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.created = append(m.created, user)
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.profileUpdates++
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) FindOAuthAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	if account, ok := m.accounts[providerKey(provider, providerAccountID)]; ok {
		return account, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) CreateOAuthAccount(ctx context.Context, account *models.OAuthAccount) error {
	m.linked = append(m.linked, account)
	m.accounts[providerKey(account.Provider, account.ProviderAccountID)] = account
	if user, ok := m.usersByID[account.UserID]; ok {
		m.usersByProvider[providerKey(account.Provider, account.ProviderAccountID)] = user
	}
	return nil
}

func (m *mockAuthRepo) UpdateOAuthTokens(ctx context.Context, account *models.OAuthAccount) error {
	m.tokenUpdates++
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{TokenSecret: "test-secret", TokenExpiry: time.Hour, Issuer: "school-hub-api"}
}

func strPtr(s string) *string { return &s }

func TestUpsertOAuthUserCreatesAndLinks(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	res, err := svc.UpsertOAuthUser(context.Background(), models.OAuthUpsertRequest{
		Provider:          "google",
		ProviderAccountID: "acct-1",
		Email:             "Student@Example.com",
		Name:              strPtr("Student One"),
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.Len(t, repo.linked, 1)
	require.Equal(t, "student@example.com", res.Email)
	require.Equal(t, repo.created[0].ID, res.ID)
}

func TestUpsertOAuthUserLinksExistingByEmail(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "student@example.com"})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	res, err := svc.UpsertOAuthUser(context.Background(), models.OAuthUpsertRequest{
		Provider:          "google",
		ProviderAccountID: "acct-1",
		Email:             "student@example.com",
	})
	require.NoError(t, err)
	require.Empty(t, repo.created)
	require.Len(t, repo.linked, 1)
	require.Equal(t, "u1", res.ID)
}

func TestUpsertOAuthUserRefreshesProfile(t *testing.T) {
	repo := newMockAuthRepo()
	user := &models.User{ID: "u1", Email: "student@example.com", Name: strPtr("Old Name")}
	repo.addUser(user)
	repo.usersByProvider[providerKey("google", "acct-1")] = user
	repo.accounts[providerKey("google", "acct-1")] = &models.OAuthAccount{ID: "a1", UserID: "u1", Provider: "google", ProviderAccountID: "acct-1"}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.UpsertOAuthUser(context.Background(), models.OAuthUpsertRequest{
		Provider:          "google",
		ProviderAccountID: "acct-1",
		Email:             "student@example.com",
		Name:              strPtr("New Name"),
		Tokens:            &models.OAuthTokens{AccessToken: strPtr("tok")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, repo.profileUpdates)
	require.Equal(t, "New Name", *user.Name)
	require.Equal(t, 1, repo.tokenUpdates)
}

func TestUpsertOAuthUserConflictOnForeignLink(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "student@example.com"})
	repo.addUser(&models.User{ID: "u2", Email: "other@example.com"})
	repo.accounts[providerKey("google", "acct-1")] = &models.OAuthAccount{ID: "a1", UserID: "u2", Provider: "google", ProviderAccountID: "acct-1"}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.UpsertOAuthUser(context.Background(), models.OAuthUpsertRequest{
		Provider:          "google",
		ProviderAccountID: "acct-1",
		Email:             "student@example.com",
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestUpsertOAuthUserRejectsInvalidPayload(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, testAuthConfig())

	_, err := svc.UpsertOAuthUser(context.Background(), models.OAuthUpsertRequest{Provider: "google"})
	require.Error(t, err)
}

func TestLoginSuccessIssuesValidToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	role := models.RoleTeacher
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "u1",
		Email:        "teacher@example.com",
		PasswordHash: strPtr(string(hash)),
		Name:         strPtr("A Teacher"),
		Role:         &role,
	})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, int64(3600), res.ExpiresIn)
	require.Equal(t, models.RoleTeacher, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginFailures(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "teacher@example.com", PasswordHash: strPtr(string(hash))})
	repo.addUser(&models.User{ID: "u2", Email: "oauth-only@example.com"})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "nope"})
		require.Error(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
		require.Error(t, err)
	})

	t.Run("oauth-only account has no password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "oauth-only@example.com", Password: "secret123"})
		require.Error(t, err)
	})
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := NewAuthService(newMockAuthRepo(), nil, nil, AuthConfig{TokenSecret: "different", TokenExpiry: time.Hour})
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "a@b.c", PasswordHash: strPtr(string(hash))})
	issuer := NewAuthService(repo, nil, nil, testAuthConfig())
	res, err := issuer.Login(context.Background(), models.LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)

	_, err = other.ValidateToken(res.AccessToken)
	require.Error(t, err)
}

func TestPermissions(t *testing.T) {
	role := models.RoleStudent
	tags := `["year2","Computer Engineering","class-C2R1"]`
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "s@example.com", Role: &role, Tags: &tags})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	info, err := svc.Permissions(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, info.Role)
	require.True(t, info.Tags.Contains("class-C2R1"))

	_, err = svc.Permissions(context.Background(), "ghost")
	require.Error(t, err)
}
