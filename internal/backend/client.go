// Package backend is the bookmark page's view of its backend: session lookup
// and change notifications, OAuth sign-in/out, and row-level access to the
// bookmarks table. A Client is bound to one browser (client id) and enforces
// that a session only ever reads and writes its own rows.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// TableBookmarks names the only table the page talks to.
const TableBookmarks = "bookmarks"

var (
	ErrNoSession = domain.ErrNoSession
	ErrForbidden = errors.New("row belongs to another user")
)

// Table is the bookmarks table.
type Table interface {
	ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
	InsertBookmark(ctx context.Context, bookmark domain.Bookmark) error
	DeleteBookmark(ctx context.Context, userID, id string) error
}

// Auth is the session side of the backend, keyed by client id.
type Auth interface {
	Session(ctx context.Context, clientID string) (*domain.Session, error)
	Subscribe(clientID string, fn func(*domain.Session)) (unsubscribe func())
	SignIn(ctx context.Context, clientID, provider string) (redirectURL string, err error)
	SignOut(ctx context.Context, clientID string) error
}

type Client struct {
	clientID string
	auth     Auth
	table    Table
	now      func() time.Time
	newID    func() string
}

func NewClient(clientID string, auth Auth, table Table) *Client {
	return &Client{
		clientID: clientID,
		auth:     auth,
		table:    table,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	return c.auth.Session(ctx, c.clientID)
}

func (c *Client) OnSessionChange(fn func(*domain.Session)) func() {
	return c.auth.Subscribe(c.clientID, fn)
}

func (c *Client) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	return c.auth.SignIn(ctx, c.clientID, provider)
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.auth.SignOut(ctx, c.clientID)
}

// ListBookmarks selects every row of userID ordered by creation time, newest first.
func (c *Client) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	if _, err := c.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := c.table.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", TableBookmarks, err)
	}
	return rows, nil
}

// InsertBookmark adds a row. The backend assigns its id and creation time.
func (c *Client) InsertBookmark(ctx context.Context, row domain.NewBookmark) error {
	if !row.Complete() {
		return fmt.Errorf("insert into %s: title, url and user_id are required", TableBookmarks)
	}
	if _, err := c.requireUser(ctx, row.UserID); err != nil {
		return err
	}

	bookmark := row.Materialize(c.newID(), c.now().UTC())
	if err := c.table.InsertBookmark(ctx, bookmark); err != nil {
		return fmt.Errorf("insert into %s: %w", TableBookmarks, err)
	}
	return nil
}

// DeleteBookmark deletes the row with id if the session owns it.
func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}
	if err := c.table.DeleteBookmark(ctx, session.UserID, id); err != nil {
		return fmt.Errorf("delete from %s: %w", TableBookmarks, err)
	}
	return nil
}

func (c *Client) requireSession(ctx context.Context) (*domain.Session, error) {
	session, err := c.auth.Session(ctx, c.clientID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	return session, nil
}

func (c *Client) requireUser(ctx context.Context, userID string) (*domain.Session, error) {
	session, err := c.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}
