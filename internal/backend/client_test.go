package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

type fakeAuth struct {
	session  *domain.Session
	err      error
	signedIn []string
	signOuts int
}

func (f *fakeAuth) Session(context.Context, string) (*domain.Session, error) {
	return f.session, f.err
}

func (f *fakeAuth) Subscribe(string, func(*domain.Session)) func() { return func() {} }

func (f *fakeAuth) SignIn(_ context.Context, clientID, provider string) (string, error) {
	f.signedIn = append(f.signedIn, clientID+"/"+provider)
	return "https://accounts.example.com/auth", nil
}

func (f *fakeAuth) SignOut(context.Context, string) error {
	f.signOuts++
	return nil
}

type fakeTable struct {
	rows      []domain.Bookmark
	inserted  []domain.Bookmark
	deleted   []string
	insertErr error
	deleteErr error
}

func (f *fakeTable) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	for _, b := range f.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeTable) InsertBookmark(_ context.Context, b domain.Bookmark) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, b)
	return nil
}

func (f *fakeTable) DeleteBookmark(_ context.Context, userID, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID+"/"+id)
	return nil
}

func newTestClient(session *domain.Session) (*Client, *fakeAuth, *fakeTable) {
	auth := &fakeAuth{session: session}
	table := &fakeTable{}
	c := NewClient("client-a", auth, table)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)) }
	c.newID = func() string { return "id-1" }
	return c, auth, table
}

func TestClient_InsertBookmark(t *testing.T) {
	c, _, table := newTestClient(&domain.Session{UserID: "google:u"})

	err := c.InsertBookmark(context.Background(), domain.NewBookmark{Title: "Docs", URL: "https://example.com", UserID: "google:u"})
	require.NoError(t, err)

	require.Len(t, table.inserted, 1)
	got := table.inserted[0]
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "Docs", got.Title)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "google:u", got.UserID)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
}

func TestClient_InsertBookmarkRejections(t *testing.T) {
	tests := []struct {
		name    string
		session *domain.Session
		row     domain.NewBookmark
		wantErr error
	}{
		{
			name:    "no session",
			row:     domain.NewBookmark{Title: "Docs", URL: "https://example.com", UserID: "google:u"},
			wantErr: ErrNoSession,
		},
		{
			name:    "row for another user",
			session: &domain.Session{UserID: "google:u"},
			row:     domain.NewBookmark{Title: "Docs", URL: "https://example.com", UserID: "google:v"},
			wantErr: ErrForbidden,
		},
		{
			name:    "missing url",
			session: &domain.Session{UserID: "google:u"},
			row:     domain.NewBookmark{Title: "Docs", UserID: "google:u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, table := newTestClient(tt.session)

			err := c.InsertBookmark(context.Background(), tt.row)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, table.inserted)
		})
	}
}

func TestClient_ListBookmarks(t *testing.T) {
	c, _, table := newTestClient(&domain.Session{UserID: "google:u"})
	table.rows = []domain.Bookmark{
		{ID: "1", UserID: "google:u"},
		{ID: "2", UserID: "google:v"},
	}

	rows, err := c.ListBookmarks(context.Background(), "google:u")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)

	_, err = c.ListBookmarks(context.Background(), "google:v")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClient_DeleteBookmark(t *testing.T) {
	c, auth, table := newTestClient(&domain.Session{UserID: "google:u"})

	require.NoError(t, c.DeleteBookmark(context.Background(), "42"))
	assert.Equal(t, []string{"google:u/42"}, table.deleted)

	table.deleteErr = errors.New("store down")
	err := c.DeleteBookmark(context.Background(), "43")
	assert.ErrorContains(t, err, "delete from bookmarks: store down")

	auth.session = nil
	err = c.DeleteBookmark(context.Background(), "42")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_SessionErrorsPropagate(t *testing.T) {
	c, auth, _ := newTestClient(nil)
	auth.err = errors.New("store down")

	_, err := c.ListBookmarks(context.Background(), "google:u")
	assert.EqualError(t, err, "store down")
}

func TestClient_SignInAndOut(t *testing.T) {
	c, auth, _ := newTestClient(nil)

	url, err := c.SignInWithOAuth(context.Background(), "google")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example.com/auth", url)
	assert.Equal(t, []string{"client-a/google"}, auth.signedIn)

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, 1, auth.signOuts)
}
