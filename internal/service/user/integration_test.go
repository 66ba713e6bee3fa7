package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/service/user"
	"github.com/sigesp/prestamos-api/internal/testutil"
)

const testJWTSecret = "test-jwt-secret"

var (
	adminSession = auth.Session{Email: "admin@office.test", Role: domain.RoleAdmin}
	agentSession = auth.Session{Email: "agent@office.test", Role: domain.RoleEmployee}
)

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := user.NewService(repository.NewUserRepository(db), testJWTSecret, 12*time.Hour)
	ctx := context.Background()

	testutil.SeedUser(t, db, "agent@office.test", domain.RoleEmployee)

	result, err := svc.Login(ctx, "agent@office.test", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, "agent@office.test", result.User.Email)
	assert.Empty(t, result.User.PasswordHash)

	// The token carries the role resolved at login.
	session, err := auth.ValidateToken(result.Token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, session.Role)

	// Wrong password and unknown user fail identically.
	_, err = svc.Login(ctx, "agent@office.test", "wrong-password")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@office.test", "password123")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := user.NewService(repository.NewUserRepository(db), testJWTSecret, 12*time.Hour)
	ctx := context.Background()

	req := user.CreateRequest{
		Email:    "new@office.test",
		Name:     "New Agent",
		Role:     domain.RoleEmployee,
		Password: "password123",
	}

	_, err := svc.Create(ctx, agentSession, req)
	require.ErrorIs(t, err, domain.ErrForbidden)

	created, err := svc.Create(ctx, adminSession, req)
	require.NoError(t, err)
	assert.Equal(t, "new@office.test", created.Email)
	assert.Empty(t, created.PasswordHash)

	// Email is unique.
	_, err = svc.Create(ctx, adminSession, req)
	require.ErrorIs(t, err, domain.ErrUserExists)

	// New account can log in right away.
	result, err := svc.Login(ctx, "new@office.test", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestCreateUser_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := user.NewService(repository.NewUserRepository(db), testJWTSecret, 12*time.Hour)
	ctx := context.Background()

	_, err := svc.Create(ctx, adminSession, user.CreateRequest{
		Email: "x@office.test", Name: "X", Role: domain.Role("root"), Password: "password123",
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Create(ctx, adminSession, user.CreateRequest{
		Email: "x@office.test", Name: "X", Role: domain.RoleEmployee, Password: "short",
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestDeleteUser_SelfDeleteBlocked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := user.NewService(repository.NewUserRepository(db), testJWTSecret, 12*time.Hour)
	ctx := context.Background()

	testutil.SeedUser(t, db, "admin@office.test", domain.RoleAdmin)
	testutil.SeedUser(t, db, "agent@office.test", domain.RoleEmployee)

	err := svc.Delete(ctx, adminSession, "admin@office.test")
	require.ErrorIs(t, err, domain.ErrSelfDelete)

	err = svc.Delete(ctx, agentSession, "admin@office.test")
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, adminSession, "agent@office.test"))
}

func TestAgentLimits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := user.NewService(repository.NewUserRepository(db), testJWTSecret, 12*time.Hour)
	ctx := context.Background()

	testutil.SeedUser(t, db, "agent@office.test", domain.RoleEmployee)

	limit := domain.AgentLimit{
		AgentEmail:   "agent@office.test",
		Currency:     domain.CurrencyARS,
		MonthlyLimit: decimal.RequireFromString("10000"),
	}

	err := svc.SetLimit(ctx, agentSession, limit)
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.SetLimit(ctx, adminSession, limit))

	// Setting again overwrites.
	limit.MonthlyLimit = decimal.RequireFromString("15000")
	require.NoError(t, svc.SetLimit(ctx, adminSession, limit))

	// Agents read their own limits; other agents' limits are admin-only.
	limits, err := svc.ListLimits(ctx, agentSession, "agent@office.test")
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.True(t, limits[0].MonthlyLimit.Equal(decimal.RequireFromString("15000")))

	_, err = svc.ListLimits(ctx, agentSession, "someone-else@office.test")
	require.ErrorIs(t, err, domain.ErrForbidden)

	// A limit for an unknown agent is rejected.
	err = svc.SetLimit(ctx, adminSession, domain.AgentLimit{
		AgentEmail:   "ghost@office.test",
		Currency:     domain.CurrencyARS,
		MonthlyLimit: decimal.RequireFromString("100"),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
