package controller

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// BackendFactory builds the backend of one browser.
type BackendFactory func(clientID string) Backend

// Registry owns one Controller per client id and drops the ones that went idle.
type Registry struct {
	mu      sync.Mutex
	views   map[string]*entry
	factory BackendFactory
	logger  logger.Logger
	clock   Clock
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

func NewRegistry(factory BackendFactory, log logger.Logger, clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{
		views:   make(map[string]*entry),
		factory: factory,
		logger:  log,
		clock:   clock,
	}
}

// Get returns the controller of clientID, creating and initializing it on
// first use.
func (r *Registry) Get(clientID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if e, ok := r.views[clientID]; ok {
		e.lastSeen = now
		return e.ctrl
	}

	ctrl := New(r.factory(clientID), r.logger.With(logger.String("client_id", clientID)), r.clock)
	r.views[clientID] = &entry{ctrl: ctrl, lastSeen: now}
	go ctrl.Init()

	r.logger.Debug("view created", logger.String("client_id", clientID))
	return ctrl
}

func (r *Registry) Lookup(clientID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[clientID]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// Touch marks clientID as active.
func (r *Registry) Touch(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.views[clientID]; ok {
		e.lastSeen = r.clock.Now()
	}
}

// Reap closes controllers unused for at least idle that nobody is watching.
// It returns how many were dropped.
func (r *Registry) Reap(idle time.Duration) int {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []*Controller
	for id, e := range r.views {
		if now.Sub(e.lastSeen) < idle || e.ctrl.Watching() > 0 {
			continue
		}
		stale = append(stale, e.ctrl)
		delete(r.views, id)
	}
	r.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Close()
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close closes every controller.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range views {
		e.ctrl.Close()
	}
}
