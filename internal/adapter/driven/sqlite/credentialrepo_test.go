package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

func makeCredential(id int64, priority int) model.Credential {
	return model.Credential{
		ID:        id,
		Priority:  priority,
		RawStatus: model.RawStatusNormal,
		GroupID:   "default",
		SyncedAt:  time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestCredentialRepo_ReplaceAllAndListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remaining := 42.5

	full := model.Credential{
		ID:                7,
		Priority:          2,
		Disabled:          true,
		FailureCount:      3,
		IsCurrent:         true,
		RawStatus:         model.RawStatusInvalid,
		ExpiresAt:         &expiresAt,
		AuthMethod:        "oauth",
		Email:             "alice@example.com",
		SubscriptionTitle: "Pro",
		Remaining:         &remaining,
		GroupID:           "default",
		SyncedAt:          time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.ReplaceAll(ctx, []model.Credential{full, makeCredential(8, 1)}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Priority ordering: id 8 (priority 1) before id 7 (priority 2).
	assert.Equal(t, int64(8), all[0].ID)

	got := all[1]
	assert.True(t, got.Disabled)
	assert.True(t, got.IsCurrent)
	assert.Equal(t, 3, got.FailureCount)
	assert.Equal(t, model.RawStatusInvalid, got.RawStatus)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expiresAt))
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Pro", got.SubscriptionTitle)
	require.NotNil(t, got.Remaining)
	assert.InDelta(t, 42.5, *got.Remaining, 0.001)
	assert.True(t, got.SyncedAt.Equal(full.SyncedAt))
}

func TestCredentialRepo_ReplaceAllDropsStaleRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, []model.Credential{
		makeCredential(1, 0),
		makeCredential(2, 0),
		makeCredential(3, 0),
	}))
	require.NoError(t, repo.ReplaceAll(ctx, []model.Credential{makeCredential(2, 0)}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].ID)
}

func TestCredentialRepo_ReplaceAllEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, []model.Credential{makeCredential(1, 0)}))
	require.NoError(t, repo.ReplaceAll(ctx, nil))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCredentialRepo_Get(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, []model.Credential{makeCredential(5, 1)}))

	got, err := repo.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.ID)
	assert.Nil(t, got.ExpiresAt)
	assert.Nil(t, got.Remaining)
}

func TestCredentialRepo_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	got, err := repo.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}
