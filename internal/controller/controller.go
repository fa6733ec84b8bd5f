// Package controller holds the state of one bookmark page and the actions
// that change it. Every browser gets its own Controller; the HTTP layer
// renders Snapshot and forwards user actions.
package controller

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// NotificationTTL is how long a notification stays up unless replaced.
const NotificationTTL = 3 * time.Second

type State string

const (
	StateLoading   State = "loading"
	StateLoggedOut State = "logged-out"
	StateLoggedIn  State = "logged-in"
)

// Backend is what a page needs from the outside world, scoped to one browser.
type Backend interface {
	GetSession(ctx context.Context) (*domain.Session, error)
	OnSessionChange(fn func(*domain.Session)) (unsubscribe func())
	SignInWithOAuth(ctx context.Context, provider string) (redirectURL string, err error)
	SignOut(ctx context.Context) error
	ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
	InsertBookmark(ctx context.Context, row domain.NewBookmark) error
	DeleteBookmark(ctx context.Context, id string) error
}

// View is a copy of the page state, safe to render.
type View struct {
	State     State
	Session   *domain.Session
	Title     string
	URL       string
	Bookmarks []domain.Bookmark
	Notice    *domain.Notification
}

type Controller struct {
	backend Backend
	logger  logger.Logger
	clock   Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	initOnce sync.Once
	ready    chan struct{}

	mu          sync.Mutex
	loaded      bool
	session     *domain.Session
	title       string
	url         string
	bookmarks   []domain.Bookmark
	notice      *domain.Notification
	noticeSeq   uint64
	noticeTimer Timer
	fetchSeq    uint64
	unsubscribe func()
	watchers    map[uint64]chan struct{}
	nextWatcher uint64
	closed      bool
}

func New(backend Backend, log logger.Logger, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:  backend,
		logger:   log,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan struct{}),
		watchers: make(map[uint64]chan struct{}),
	}
}

// Init subscribes to session changes, loads the current session and, when
// there is one, its bookmarks. Only the first call does anything.
func (c *Controller) Init() {
	c.initOnce.Do(func() {
		defer close(c.ready)

		unsubscribe := c.backend.OnSessionChange(c.handleSessionChange)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			unsubscribe()
			return
		}
		c.unsubscribe = unsubscribe
		c.mu.Unlock()

		session, err := c.backend.GetSession(c.ctx)
		if err != nil {
			c.logger.Warn("failed to load session", logger.Error(err))
		}

		c.mu.Lock()
		if !c.loaded {
			// a session event may have beaten us here, it is newer
			c.session = session
			c.loaded = true
		}
		session = c.session
		c.mu.Unlock()
		c.changed()

		if session != nil {
			c.Fetch(c.ctx, session.UserID)
		}
	})
}

// Ready is closed once Init has resolved the initial session.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// SignIn starts the OAuth flow and returns where to send the browser.
func (c *Controller) SignIn(ctx context.Context) (string, error) {
	ctx, done := c.bind(ctx)
	defer done()
	return c.backend.SignInWithOAuth(ctx, auth.ProviderGoogle)
}

// SignOut ends the session. Local state is cleared whatever the backend says.
func (c *Controller) SignOut(ctx context.Context) {
	ctx, done := c.bind(ctx)
	defer done()

	if err := c.backend.SignOut(ctx); err != nil {
		c.logger.Warn("sign out failed", logger.Error(err))
	}

	c.mu.Lock()
	c.session = nil
	c.bookmarks = nil
	c.fetchSeq++
	c.mu.Unlock()

	c.notify(domain.Success(domain.MsgLoggedOut))
}

// SetForm stores the add form inputs.
func (c *Controller) SetForm(title, url string) {
	c.mu.Lock()
	c.title, c.url = title, url
	c.mu.Unlock()
	c.changed()
}

// Add inserts the bookmark held in the form. It does nothing unless title,
// url and a session are all present.
func (c *Controller) Add(ctx context.Context) {
	c.mu.Lock()
	title, url, session := c.title, c.url, c.session
	c.mu.Unlock()

	if title == "" || url == "" || session == nil {
		return
	}

	ctx, done := c.bind(ctx)
	defer done()

	row := domain.NewBookmark{Title: title, URL: url, UserID: session.UserID}
	if err := c.backend.InsertBookmark(ctx, row); err != nil {
		c.logger.Warn("failed to add bookmark", logger.String("user_id", session.UserID), logger.Error(err))
		c.dropSessionOn(err, session)
		c.notify(domain.Failure(domain.MsgAddFailed))
		return
	}

	c.mu.Lock()
	c.title, c.url = "", ""
	c.mu.Unlock()
	c.notify(domain.Success(domain.MsgBookmarkAdded))

	c.Fetch(ctx, session.UserID)
}

// Delete removes a bookmark by id and refreshes the list while signed in.
func (c *Controller) Delete(ctx context.Context, id string) {
	ctx, done := c.bind(ctx)
	defer done()

	c.mu.Lock()
	seen := c.session
	c.mu.Unlock()

	if err := c.backend.DeleteBookmark(ctx, id); err != nil {
		c.logger.Warn("failed to delete bookmark", logger.String("id", id), logger.Error(err))
		c.dropSessionOn(err, seen)
		c.notify(domain.Failure(domain.MsgDeleteFailed))
		return
	}
	c.notify(domain.Success(domain.MsgBookmarkDeleted))

	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		c.Fetch(ctx, session.UserID)
	}
}

// Fetch loads the bookmarks of userID. Failures leave the list untouched.
// A result is dropped if a newer fetch started meanwhile or the session
// no longer belongs to userID.
func (c *Controller) Fetch(ctx context.Context, userID string) {
	ctx, done := c.bind(ctx)
	defer done()

	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	seen := c.session
	c.mu.Unlock()

	rows, err := c.backend.ListBookmarks(ctx, userID)
	if err != nil {
		c.logger.Debug("bookmark fetch failed", logger.String("user_id", userID), logger.Error(err))
		c.dropSessionOn(err, seen)
		return
	}

	c.mu.Lock()
	if seq != c.fetchSeq || c.session == nil || c.session.UserID != userID {
		c.mu.Unlock()
		c.logger.Debug("discarding stale bookmark fetch", logger.String("user_id", userID))
		return
	}
	c.bookmarks = rows
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:     StateLoggedIn,
		Title:     c.title,
		URL:       c.url,
		Bookmarks: slices.Clone(c.bookmarks),
	}
	switch {
	case !c.loaded:
		v.State = StateLoading
	case c.session == nil:
		v.State = StateLoggedOut
	}
	if c.session != nil {
		s := *c.session
		v.Session = &s
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}
	return v
}

// Watch returns a channel signaled after every state change. Signals are
// coalesced. The channel is closed when the controller closes.
func (c *Controller) Watch() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	c.nextWatcher++
	id := c.nextWatcher
	c.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
		})
	}
}

// Watching returns the number of live watchers.
func (c *Controller) Watching() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.watchers)
}

// Close cancels in-flight work, drops the subscription and pending timer,
// and closes every watcher.
func (c *Controller) Close() {
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.wg.Wait()
}

func (c *Controller) handleSessionChange(session *domain.Session) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session = session
	c.loaded = true
	if session == nil {
		c.bookmarks = nil
		c.fetchSeq++
	}
	c.mu.Unlock()
	c.changed()

	if session != nil {
		c.spawn(func() { c.Fetch(c.ctx, session.UserID) })
	}
}

// dropSessionOn signs the page out when the backend no longer knows the
// session it was called with. A session that changed meanwhile is kept.
func (c *Controller) dropSessionOn(err error, seen *domain.Session) {
	if seen == nil || !errors.Is(err, domain.ErrNoSession) {
		return
	}

	c.mu.Lock()
	if c.closed || c.session != seen {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.bookmarks = nil
	c.fetchSeq++
	c.mu.Unlock()

	c.logger.Info("session ended by backend", logger.String("user_id", seen.UserID))
	c.changed()
}

func (c *Controller) notify(n domain.Notification) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.noticeSeq++
	seq := c.noticeSeq
	c.notice = &n
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
	}
	c.noticeTimer = c.clock.AfterFunc(NotificationTTL, func() { c.dismiss(seq) })
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) dismiss(seq uint64) {
	c.mu.Lock()
	if seq != c.noticeSeq || c.notice == nil {
		c.mu.Unlock()
		return
	}
	c.notice = nil
	c.noticeTimer = nil
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) changed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// bind derives a context that is also canceled when the controller closes.
func (c *Controller) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) spawn(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}
