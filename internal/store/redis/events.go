package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type sessionEvent struct {
	Session *domain.Session `json:"session"`
}

// SessionEvents is an auth.Broker that fans session changes out over Redis
// pub/sub, so every instance behind a load balancer sees every sign-in.
// Messages received by Run are handed to a local broker for delivery.
type SessionEvents struct {
	client *redis.Client
	local  *auth.LocalBroker
	logger logger.Logger
	ready  chan struct{}
}

var _ auth.Broker = (*SessionEvents)(nil)

func NewSessionEvents(client *redis.Client, log logger.Logger) *SessionEvents {
	return &SessionEvents{
		client: client,
		local:  auth.NewLocalBroker(),
		logger: log,
		ready:  make(chan struct{}),
	}
}

func (e *SessionEvents) Publish(ctx context.Context, clientID string, session *domain.Session) error {
	payload, err := json.Marshal(sessionEvent{Session: session})
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}
	if err := e.client.Publish(ctx, SessionChannel(clientID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}

func (e *SessionEvents) Subscribe(clientID string, fn func(*domain.Session)) func() {
	return e.local.Subscribe(clientID, fn)
}

// Ready is closed once Run holds its subscription.
func (e *SessionEvents) Ready() <-chan struct{} {
	return e.ready
}

// Run listens for session events until ctx is done.
func (e *SessionEvents) Run(ctx context.Context) error {
	pubsub := e.client.PSubscribe(ctx, ChannelPrefixSession+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	close(e.ready)
	e.logger.Info("listening for session events on redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e.dispatch(ctx, msg)
		}
	}
}

func (e *SessionEvents) dispatch(ctx context.Context, msg *redis.Message) {
	clientID, ok := ClientFromChannel(msg.Channel)
	if !ok {
		return
	}

	var event sessionEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		e.logger.Warn("dropping malformed session event",
			logger.String("channel", msg.Channel),
			logger.Error(err))
		return
	}

	_ = e.local.Publish(ctx, clientID, event.Session)
}
