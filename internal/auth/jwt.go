package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/CloudGames/pkg/middleware"
)

// Role names accepted by the API.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Roles holds the role claim, which issuers send either as a single string or
// as an array.
type Roles []string

func (r *Roles) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*r = nil
		} else {
			*r = Roles{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("role claim must be a string or an array of strings: %w", err)
	}
	*r = many
	return nil
}

// Claims represents the JWT claims for an access token.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Roles  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the token settings shared with the issuer.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// JWTManager validates HS256 access tokens and, for tooling and tests,
// issues them.
type JWTManager struct {
	secret   []byte
	issuer   string
	audience string
}

var _ middleware.TokenValidator = (*JWTManager)(nil)

// NewJWTManager creates a new JWT manager.
func NewJWTManager(cfg Config) *JWTManager {
	return &JWTManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// GenerateAccessToken creates a signed access token for userID with roles.
func (m *JWTManager) GenerateAccessToken(userID, email string, expiry time.Duration, roles ...string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("access token has no subject")
	}
	return claims, nil
}

// Validate implements middleware.TokenValidator.
func (m *JWTManager) Validate(_ context.Context, token string) (*middleware.Claims, error) {
	c, err := m.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		UserID: c.UserID,
		Email:  c.Email,
		Roles:  c.Role,
	}, nil
}
