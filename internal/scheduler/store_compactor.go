package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// DefaultCompactInterval is how often the embedded store reclaims space
const DefaultCompactInterval = 10 * time.Minute

type Compactor interface {
	Compact(ctx context.Context) error
}

// StoreCompactor periodically reclaims disk space of the embedded store.
type StoreCompactor struct {
	store    Compactor
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewStoreCompactor(store Compactor, log logger.Logger, interval time.Duration) *StoreCompactor {
	if interval <= 0 {
		interval = DefaultCompactInterval
	}
	return &StoreCompactor{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (c *StoreCompactor) Start(ctx context.Context) error {
	every(ctx, c.interval, c.stopCh, c.Run)
	return nil
}

func (c *StoreCompactor) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Run compacts once. Errors are logged, the next tick tries again.
func (c *StoreCompactor) Run(ctx context.Context) {
	start := time.Now()
	if err := c.store.Compact(ctx); err != nil {
		c.logger.Error("store compaction failed", logger.Error(err))
		return
	}
	c.logger.Debug("store compaction done", logger.Duration("took", time.Since(start)))
}
