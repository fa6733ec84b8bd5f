package auth

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Broker delivers session-change events per client. A nil session means signed out.
type Broker interface {
	Publish(ctx context.Context, clientID string, session *domain.Session) error
	Subscribe(clientID string, fn func(*domain.Session)) (unsubscribe func())
}

// LocalBroker is an in-process Broker. Handlers run synchronously in the
// publisher's goroutine, outside of the broker lock.
type LocalBroker struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]func(*domain.Session)
}

var _ Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs: make(map[string]map[uint64]func(*domain.Session)),
	}
}

func (b *LocalBroker) Publish(_ context.Context, clientID string, session *domain.Session) error {
	b.mu.RLock()
	handlers := make([]func(*domain.Session), 0, len(b.subs[clientID]))
	for _, fn := range b.subs[clientID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		// each subscriber gets its own copy
		var s *domain.Session
		if session != nil {
			cp := *session
			s = &cp
		}
		fn(s)
	}
	return nil
}

func (b *LocalBroker) Subscribe(clientID string, fn func(*domain.Session)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	if b.subs[clientID] == nil {
		b.subs[clientID] = make(map[uint64]func(*domain.Session))
	}
	b.subs[clientID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[clientID], id)
			if len(b.subs[clientID]) == 0 {
				delete(b.subs, clientID)
			}
		})
	}
}

// Subscribers returns the number of handlers registered for a client.
func (b *LocalBroker) Subscribers(clientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[clientID])
}
