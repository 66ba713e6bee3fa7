package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/service/client"
	"github.com/sigesp/prestamos-api/internal/testutil"
)

var (
	adminSession = auth.Session{Email: "admin@office.test", Role: domain.RoleAdmin}
	agentSession = auth.Session{Email: "agent@office.test", Role: domain.RoleEmployee}
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	created, err := svc.Create(ctx, client.CreateRequest{
		NationalID: "20333444",
		FullName:   "Carla Ortiz",
		Phone:      "11-5555-0000",
		Employer:   "Panaderia San Juan",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClientStatusActive, created.Status)

	got, err := svc.Get(ctx, "20333444")
	require.NoError(t, err)
	assert.Equal(t, "Carla Ortiz", got.FullName)
	assert.Equal(t, "Panaderia San Juan", got.Employer)
	assert.True(t, got.Eligible())

	// National ID is unique.
	_, err = svc.Create(ctx, client.CreateRequest{
		NationalID: "20333444",
		FullName:   "Someone Else",
	})
	require.ErrorIs(t, err, domain.ErrClientExists)
}

func TestCreate_RequiresIDAndName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	_, err := svc.Create(ctx, client.CreateRequest{FullName: "No ID"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Create(ctx, client.CreateRequest{NationalID: "123", FullName: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestList_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	testutil.SeedClient(t, db, "20333445", "Maria Gomez")
	testutil.SeedClient(t, db, "20333446", "Mario Gimenez")
	testutil.SeedClient(t, db, "99888777", "Pedro Diaz")

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := svc.List(ctx, "mari")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byID, err := svc.List(ctx, "99888")
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Pedro Diaz", byID[0].FullName)
}

func TestEligibilityTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	testutil.SeedClient(t, db, "20333447", "Hector Sosa")

	// Any agent can block.
	require.NoError(t, svc.MarkNotEligible(ctx, agentSession, "20333447"))
	c, err := svc.Get(ctx, "20333447")
	require.NoError(t, err)
	assert.False(t, c.Eligible())

	// Only an administrator can restore.
	err = svc.RestoreEligibility(ctx, agentSession, "20333447")
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.RestoreEligibility(ctx, adminSession, "20333447"))
	c, err = svc.Get(ctx, "20333447")
	require.NoError(t, err)
	assert.True(t, c.Eligible())
}

func TestUpdate_KeepsStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	testutil.SeedClient(t, db, "20333448", "Laura Funes")
	require.NoError(t, svc.MarkNotEligible(ctx, agentSession, "20333448"))

	updated, err := svc.Update(ctx, "20333448", client.CreateRequest{
		FullName: "Laura Funes de Castro",
		Phone:    "11-4444-2222",
	})
	require.NoError(t, err)
	assert.Equal(t, "Laura Funes de Castro", updated.FullName)
	// A detail edit never lifts the eligibility block.
	assert.Equal(t, domain.ClientStatusNotEligible, updated.Status)
}

func TestDelete_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := client.NewService(repository.NewClientRepository(db))
	ctx := context.Background()

	testutil.SeedClient(t, db, "20333449", "Ruben Ojeda")

	err := svc.Delete(ctx, agentSession, "20333449")
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, adminSession, "20333449"))
	_, err = svc.Get(ctx, "20333449")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
