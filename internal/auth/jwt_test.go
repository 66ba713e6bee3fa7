package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/domain"
)

const testSecret = "test-jwt-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("agent@test.com", domain.RoleEmployee, testSecret, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "agent@test.com", session.Email)
	assert.Equal(t, domain.RoleEmployee, session.Role)
	assert.False(t, session.IsAdmin())
}

func TestValidateToken_AdminRole(t *testing.T) {
	token, err := GenerateToken("boss@test.com", domain.RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	session, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin())
}

func TestValidateToken_Errors(t *testing.T) {
	validToken, err := GenerateToken("agent@test.com", domain.RoleEmployee, testSecret, 24*time.Hour)
	require.NoError(t, err)

	expiredToken, err := GenerateToken("agent@test.com", domain.RoleEmployee, testSecret, -1*time.Hour)
	require.NoError(t, err)

	badRoleToken, err := GenerateToken("agent@test.com", domain.Role("superuser"), testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{
			name:      "expired token",
			token:     expiredToken,
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenExpired,
		},
		{
			name:      "wrong secret",
			token:     validToken,
			secret:    "wrong-secret",
			wantErrIs: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:   "malformed token",
			token:  "not.a.valid.jwt",
			secret: testSecret,
		},
		{
			name:   "unknown role rejected",
			token:  badRoleToken,
			secret: testSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := ValidateToken(tt.token, tt.secret)
			require.Error(t, err)
			assert.Nil(t, session)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
		})
	}
}
