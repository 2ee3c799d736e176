package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OAuthTokens carries the provider token material forwarded by the identity
// provider's sign-in callback. Tokens are stored as received.
type OAuthTokens struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	ExpiresAt    *int64  `json:"expires_at"`
	Scope        *string `json:"scope"`
}

// OAuthUpsertRequest is the payload of the internal account upsert endpoint.
type OAuthUpsertRequest struct {
	Provider          string       `json:"provider" validate:"required"`
	ProviderAccountID string       `json:"provider_account_id" validate:"required"`
	Email             string       `json:"email" validate:"required,email"`
	Name              *string      `json:"name"`
	Image             *string      `json:"image"`
	Tokens            *OAuthTokens `json:"tokens"`
}

// OAuthUpsertResponse confirms the upserted identity.
type OAuthUpsertResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginRequest holds credentials for a local operator login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

// PermissionInfo exposes the resolved role and audience tags for a user.
type PermissionInfo struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Tags   TagSet   `json:"tags"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
