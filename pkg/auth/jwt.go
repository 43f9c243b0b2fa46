// Package auth handles JWT validation and the per-request user identity.
// Every token carries a tenant id; requests without one never reach a
// handler.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims are the JWT claims the suite issues and accepts.
type Claims struct {
	UserID   string   `json:"sub"`
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Validator validates HS256-signed suite tokens.
type Validator struct {
	secretKey []byte
	issuer    string
}

// NewValidator creates a validator for the given shared secret. The issuer
// check is skipped when issuer is empty.
func NewValidator(secret, issuer string) *Validator {
	return &Validator{
		secretKey: []byte(secret),
		issuer:    issuer,
	}
}

// ValidateToken parses and validates a token, accepting an optional
// "Bearer " prefix, and returns its claims.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	tokenString = strings.TrimSpace(tokenString)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidClaims)
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing tenant id", ErrInvalidClaims)
	}

	return claims, nil
}

// Generator issues HS256-signed suite tokens. Used by the CLI and tests;
// production deployments usually have an external issuer.
type Generator struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewGenerator creates a token generator.
func NewGenerator(secret, issuer string, ttl time.Duration) *Generator {
	return &Generator{
		secretKey: []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
	}
}

// GenerateToken issues a token for a user within a tenant.
func (g *Generator) GenerateToken(userID, tenantID string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secretKey)
}
