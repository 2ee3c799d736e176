package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	FindOAuthAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error)
	CreateOAuthAccount(ctx context.Context, account *models.OAuthAccount) error
	UpdateOAuthTokens(ctx context.Context, account *models.OAuthAccount) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService provides account upsert, local login and token validation.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// UpsertOAuthUser reconciles a sign-in callback from the identity provider.
// The user is located by provider link first, then by email; a new account is
// created when neither exists. Profile fields are refreshed from the provider
// on every sign-in.
func (s *AuthService) UpsertOAuthUser(ctx context.Context, req models.OAuthUpsertRequest) (*models.OAuthUpsertResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upsert payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.FindByProviderAccount(ctx, req.Provider, req.ProviderAccountID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up provider account")
	}

	if user == nil {
		user, err = s.findByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			// Account exists but is not linked to this provider yet.
			existing, err := s.repo.FindOAuthAccount(ctx, req.Provider, req.ProviderAccountID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up oauth account")
			}
			if existing != nil && existing.UserID != user.ID {
				return nil, appErrors.Clone(appErrors.ErrConflict, "provider account is linked to a different user")
			}
			if existing == nil {
				if err := s.linkAccount(ctx, user.ID, req); err != nil {
					return nil, err
				}
			}
		}
	}

	if user == nil {
		now := time.Now().UTC()
		user = &models.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      req.Name,
			Image:     req.Image,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
		}
		if err := s.linkAccount(ctx, user.ID, req); err != nil {
			return nil, err
		}
		s.logger.Info("provisioned user from oauth sign-in", zap.String("user_id", user.ID), zap.String("provider", req.Provider))
	} else {
		changed := false
		if req.Name != nil && (user.Name == nil || *user.Name != *req.Name) {
			user.Name = req.Name
			changed = true
		}
		if req.Image != nil && (user.Image == nil || *user.Image != *req.Image) {
			user.Image = req.Image
			changed = true
		}
		if changed {
			if err := s.repo.UpdateProfile(ctx, user); err != nil {
				s.logger.Warn("failed to refresh profile from provider", zap.Error(err))
			}
		}
		if req.Tokens != nil {
			if err := s.refreshTokens(ctx, req); err != nil {
				s.logger.Warn("failed to refresh provider tokens", zap.Error(err))
			}
		}
	}

	return &models.OAuthUpsertResponse{ID: user.ID, Email: user.Email}, nil
}

// Login authenticates a local operator account and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.PasswordHash == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	accessToken, _, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	info := models.UserInfo{ID: user.ID, Email: user.Email, Role: userRole(user)}
	if user.Name != nil {
		info.Name = *user.Name
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        info,
	}, nil
}

// Permissions returns the resolved role and tag set for the given user.
func (s *AuthService) Permissions(ctx context.Context, userID string) (*models.PermissionInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &models.PermissionInfo{
		UserID: user.ID,
		Role:   userRole(user),
		Tags:   user.TagList(),
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user by email")
	}
	return user, nil
}

func (s *AuthService) linkAccount(ctx context.Context, userID string, req models.OAuthUpsertRequest) error {
	account := &models.OAuthAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		Provider:          req.Provider,
		ProviderAccountID: req.ProviderAccountID,
	}
	applyTokens(account, req.Tokens)
	if err := s.repo.CreateOAuthAccount(ctx, account); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link provider account")
	}
	return nil
}

func (s *AuthService) refreshTokens(ctx context.Context, req models.OAuthUpsertRequest) error {
	account, err := s.repo.FindOAuthAccount(ctx, req.Provider, req.ProviderAccountID)
	if err != nil {
		return err
	}
	applyTokens(account, req.Tokens)
	return s.repo.UpdateOAuthTokens(ctx, account)
}

func applyTokens(account *models.OAuthAccount, tokens *models.OAuthTokens) {
	if tokens == nil {
		return
	}
	account.AccessToken = tokens.AccessToken
	account.RefreshToken = tokens.RefreshToken
	account.ExpiresAt = tokens.ExpiresAt
	account.Scope = tokens.Scope
}

func userRole(user *models.User) models.UserRole {
	if user.Role != nil {
		return *user.Role
	}
	return models.RoleStudent
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   userRole(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
