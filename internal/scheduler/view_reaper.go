package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	// DefaultViewIdleTTL is how long a view may sit unused before it is dropped
	DefaultViewIdleTTL = 30 * time.Minute
	// DefaultReapInterval is how often idle views are looked for
	DefaultReapInterval = time.Minute
)

// Views is the part of the controller registry the reaper needs.
type Views interface {
	Reap(idle time.Duration) int
	Len() int
}

// ViewReaper closes the controllers of browsers that went away.
type ViewReaper struct {
	views    Views
	logger   logger.Logger
	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewViewReaper(views Views, log logger.Logger, interval, idle time.Duration) *ViewReaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if idle <= 0 {
		idle = DefaultViewIdleTTL
	}
	return &ViewReaper{
		views:    views,
		logger:   log,
		interval: interval,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection.
func (r *ViewReaper) Start(ctx context.Context) error {
	every(ctx, r.interval, r.stopCh, func(context.Context) { r.Collect() })
	return nil
}

func (r *ViewReaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Collect drops idle views and returns how many went.
func (r *ViewReaper) Collect() int {
	reaped := r.views.Reap(r.idle)
	if reaped > 0 {
		r.logger.Info("idle views collected",
			logger.Int("reaped", reaped),
			logger.Int("remaining", r.views.Len()),
			logger.Duration("idle_ttl", r.idle))
	} else {
		r.logger.Debug("no idle views to collect")
	}
	return reaped
}
