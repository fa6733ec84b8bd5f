package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

type fakeBackend struct {
	mu sync.Mutex

	session    *domain.Session
	sessionErr error
	rows       map[string][]domain.Bookmark

	listErr    error
	insertErr  error
	deleteErr  error
	signOutErr error

	inserts  []domain.NewBookmark
	deletes  []string
	lists    int
	signIns  []string
	signOuts int

	subscriber   func(*domain.Session)
	unsubscribed bool

	// beforeList runs after the rows are read, before they are returned.
	beforeList func(call int)
	nextID     int
}

func newFakeBackend(session *domain.Session) *fakeBackend {
	return &fakeBackend{session: session, rows: make(map[string][]domain.Bookmark)}
}

func (f *fakeBackend) GetSession(context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, f.sessionErr
	}
	s := *f.session
	return &s, f.sessionErr
}

func (f *fakeBackend) OnSessionChange(fn func(*domain.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriber = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
	}
}

// emit delivers a session change the way the auth broker does.
func (f *fakeBackend) emit(session *domain.Session) {
	f.mu.Lock()
	f.session = session
	fn := f.subscriber
	f.mu.Unlock()
	if fn != nil {
		fn(session)
	}
}

func (f *fakeBackend) SignInWithOAuth(_ context.Context, provider string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, provider)
	return "https://accounts.example.com/o/oauth2/auth?state=s", nil
}

func (f *fakeBackend) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.session = nil
	return nil
}

func (f *fakeBackend) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	rows := slices.Clone(f.rows[userID])
	err := f.listErr
	hook := f.beforeList
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	domain.SortNewestFirst(rows)
	return rows, nil
}

func (f *fakeBackend) InsertBookmark(_ context.Context, row domain.NewBookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, row)
	f.nextID++
	f.rows[row.UserID] = append(f.rows[row.UserID], row.Materialize(
		fmt.Sprintf("b%d", f.nextID),
		time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	))
	return nil
}

func (f *fakeBackend) DeleteBookmark(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, id)
	if f.session != nil {
		uid := f.session.UserID
		f.rows[uid] = slices.DeleteFunc(f.rows[uid], func(b domain.Bookmark) bool { return b.ID == id })
	}
	return nil
}

func (f *fakeBackend) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs the timers that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
