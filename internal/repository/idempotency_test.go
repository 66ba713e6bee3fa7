package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/testutil"
)

func TestIdempotencyCleanExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()

	expired := &repository.IdempotencyCacheEntry{
		Key:          "key-expired",
		AgentEmail:   "agent@office.test",
		RequestHash:  "hash-1",
		StatusCode:   201,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    now.Add(-48 * time.Hour),
		ExpiresAt:    now.Add(-24 * time.Hour),
	}
	live := &repository.IdempotencyCacheEntry{
		Key:          "key-live",
		AgentEmail:   "agent@office.test",
		RequestHash:  "hash-2",
		StatusCode:   201,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Set(ctx, expired))
	require.NoError(t, repo.Set(ctx, live))

	removed, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// The live entry still replays; the expired one is gone for good.
	got, err := repo.Get(ctx, "key-live", "agent@office.test")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-2", got.RequestHash)

	gone, err := repo.Get(ctx, "key-expired", "agent@office.test")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Nothing left to sweep.
	removed, err = repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
