package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "unit-test-secret"
	testIssuer = "dooz-pm-suite"
)

func TestValidateToken_RoundTrip(t *testing.T) {
	generator := NewGenerator(testSecret, testIssuer, time.Hour)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "tenant-1", []string{"admin"})
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestValidateToken_BearerPrefix(t *testing.T) {
	generator := NewGenerator(testSecret, testIssuer, time.Hour)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateToken_Missing(t *testing.T) {
	validator := NewValidator(testSecret, testIssuer)

	_, err := validator.ValidateToken("  ")

	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateToken_Expired(t *testing.T) {
	generator := NewGenerator(testSecret, testIssuer, -time.Minute)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	generator := NewGenerator("other-secret", testIssuer, time.Hour)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	generator := NewGenerator(testSecret, "someone-else", time.Hour)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_MissingTenant(t *testing.T) {
	generator := NewGenerator(testSecret, testIssuer, time.Hour)
	validator := NewValidator(testSecret, testIssuer)

	token, err := generator.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestUserContext_RoundTrip(t *testing.T) {
	user := &UserContext{UserID: "user-1", TenantID: "tenant-1"}
	ctx := SetUserInContext(context.Background(), user)

	got, err := GetUserFromContext(ctx)

	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
