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

const userColumns = `id, email, password_hash, personnel_id, name, image, role, year, department, class, tags, created_at, updated_at`

// UserRepository provides database access for users and their linked OAuth
// accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByPersonnelID returns a user by personnel identifier.
func (r *UserRepository) FindByPersonnelID(ctx context.Context, personnelID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE personnel_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, personnelID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by personnel id: %w", err)
	}
	return &user, nil
}

// FindByProviderAccount returns the user linked to a provider account.
func (r *UserRepository) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.User, error) {
	query := `SELECT u.id, u.email, u.password_hash, u.personnel_id, u.name, u.image, u.role, u.year, u.department, u.class, u.tags, u.created_at, u.updated_at
		FROM users u
		JOIN oauth_accounts a ON a.user_id = u.id
		WHERE a.provider = $1 AND a.provider_account_id = $2
		LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, provider, providerAccountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by provider account: %w", err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :password_hash, :personnel_id, :name, :image, :role, :year, :department, :class, :tags, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile updates the mutable profile columns.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = :name, image = :image, role = :role, tags = :tags, updated_at = :updated_at WHERE id = :id`
	user.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// List returns users matching the directory filter with a total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(personnel_id) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT "+userColumns+" %s ORDER BY name ASC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// ListTagged returns all users that carry an audience tag set.
func (r *UserRepository) ListTagged(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tags IS NOT NULL ORDER BY name ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list tagged users: %w", err)
	}
	return users, nil
}

// FindOAuthAccount returns an OAuth account link if it exists.
func (r *UserRepository) FindOAuthAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	query := `SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope
		FROM oauth_accounts WHERE provider = $1 AND provider_account_id = $2 LIMIT 1`
	var account models.OAuthAccount
	if err := r.db.GetContext(ctx, &account, query, provider, providerAccountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find oauth account: %w", err)
	}
	return &account, nil
}

// CreateOAuthAccount links a provider account to a user.
func (r *UserRepository) CreateOAuthAccount(ctx context.Context, account *models.OAuthAccount) error {
	query := `INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope)
		VALUES (:id, :user_id, :provider, :provider_account_id, :access_token, :refresh_token, :expires_at, :scope)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create oauth account: %w", err)
	}
	return nil
}

// UpdateOAuthTokens refreshes the stored token material for a link.
func (r *UserRepository) UpdateOAuthTokens(ctx context.Context, account *models.OAuthAccount) error {
	query := `UPDATE oauth_accounts SET access_token = :access_token, refresh_token = :refresh_token, expires_at = :expires_at, scope = :scope WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("update oauth tokens: %w", err)
	}
	return nil
}
