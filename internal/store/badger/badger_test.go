package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// setupTestDB opens a Badger store in a temporary directory, closed on cleanup.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), logger.Nop())
	require.NoError(t, err, "Failed to open test badger store")

	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close test badger store")
	})
	return store
}

func TestStore_InsertAndListBookmarks(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := []domain.Bookmark{
		{ID: "b1", Title: "Old", URL: "https://old.example.com", UserID: "google:1", CreatedAt: base},
		{ID: "b2", Title: "New", URL: "https://new.example.com", UserID: "google:1", CreatedAt: base.Add(time.Hour)},
		{ID: "b3", Title: "Other", URL: "https://other.example.com", UserID: "google:2", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, b := range rows {
		require.NoError(t, store.InsertBookmark(ctx, b))
	}

	got, err := store.ListBookmarks(ctx, "google:1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID, "newest first")
	assert.Equal(t, "b1", got[1].ID)
	assert.Equal(t, "https://new.example.com", got[0].URL)

	other, err := store.ListBookmarks(ctx, "google:2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "b3", other[0].ID)

	none, err := store.ListBookmarks(ctx, "google:3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_DeleteBookmark(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.InsertBookmark(ctx, domain.Bookmark{ID: "b1", UserID: "u1", CreatedAt: time.Now()}))

	require.NoError(t, store.DeleteBookmark(ctx, "u2", "b1"), "rows of other users match nothing")
	kept, err := store.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, kept, 1, "rows of other users must not be deletable")

	require.NoError(t, store.DeleteBookmark(ctx, "u1", "b1"))

	got, err := store.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, store.DeleteBookmark(ctx, "u1", "b1"), "deleting a missing row is a no-op")
}

func TestStore_Sessions(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	none, err := store.GetSession(ctx, "client-a")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.PutSession(ctx, "client-a", domain.Session{UserID: "google:1", Email: "ada@example.com"}, time.Hour))

	got, err := store.GetSession(ctx, "client-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "google:1", got.UserID)
	assert.Equal(t, "ada@example.com", got.Email)

	require.NoError(t, store.DeleteSession(ctx, "client-a"))
	gone, err := store.GetSession(ctx, "client-a")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStore_TakeState(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.PutState(ctx, "s1", "client-a", time.Minute))

	clientID, err := store.TakeState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "client-a", clientID)

	_, err = store.TakeState(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "states are single use")
}

func TestStore_PingAndCompact(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.Compact(ctx))
}
