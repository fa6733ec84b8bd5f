package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	DefaultStateTTL   = 10 * time.Minute
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrInvalidState    = errors.New("invalid or expired oauth state")
)

// SessionStore persists signed-in sessions per client.
// GetSession returns (nil, nil) when the client has no session.
type SessionStore interface {
	GetSession(ctx context.Context, clientID string) (*domain.Session, error)
	PutSession(ctx context.Context, clientID string, session domain.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, clientID string) error
}

// StateStore keeps pending OAuth states. TakeState is single use and returns
// domain.ErrNotFound for unknown or expired states.
type StateStore interface {
	PutState(ctx context.Context, state, clientID string, ttl time.Duration) error
	TakeState(ctx context.Context, state string) (clientID string, err error)
}

type Store interface {
	SessionStore
	StateStore
}

type Options struct {
	SessionTTL time.Duration
	StateTTL   time.Duration
	Now        func() time.Time // for testing, defaults to time.Now
	NewState   func() string    // for testing, defaults to a random UUID
}

// Service signs clients in and out and answers "who is this client".
type Service struct {
	store      Store
	broker     Broker
	providers  map[string]Provider
	sessionTTL time.Duration
	stateTTL   time.Duration
	now        func() time.Time
	newState   func() string
	logger     logger.Logger
}

func NewService(store Store, broker Broker, log logger.Logger, opts Options, providers ...Provider) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = DefaultStateTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewState == nil {
		opts.NewState = uuid.NewString
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Service{
		store:      store,
		broker:     broker,
		providers:  byName,
		sessionTTL: opts.SessionTTL,
		stateTTL:   opts.StateTTL,
		now:        opts.Now,
		newState:   opts.NewState,
		logger:     log,
	}
}

// SignIn starts the authorization code flow and returns the provider consent URL.
func (s *Service) SignIn(ctx context.Context, clientID, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	state := s.newState()
	if err := s.store.PutState(ctx, state, clientID, s.stateTTL); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}

	s.logger.Debug("oauth sign-in started",
		logger.String("provider", provider),
		logger.String("client_id", clientID))

	return p.AuthCodeURL(state), nil
}

// Callback completes the flow for clientID, stores the session and announces it.
func (s *Service) Callback(ctx context.Context, clientID, provider, state, code string) (*domain.Session, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	owner, err := s.store.TakeState(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to read oauth state: %w", err)
	}
	if owner != clientID {
		return nil, ErrInvalidState
	}

	identity, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := domain.Session{
		UserID:    provider + ":" + identity.Subject,
		Email:     identity.Email,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.store.PutSession(ctx, clientID, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("user signed in",
		logger.String("provider", provider),
		logger.String("user_id", session.UserID))

	s.publish(ctx, clientID, &session)
	return &session, nil
}

// SignOut drops the client's session. Subscribers are told even if the delete failed.
func (s *Service) SignOut(ctx context.Context, clientID string) error {
	err := s.store.DeleteSession(ctx, clientID)
	s.publish(ctx, clientID, nil)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Session returns the client's live session, or nil. An expired session is
// dropped and announced like a sign-out.
func (s *Service) Session(ctx context.Context, clientID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, clientID); err != nil {
			s.logger.Debug("failed to drop expired session", logger.Error(err))
		}
		s.logger.Info("session expired",
			logger.String("client_id", clientID),
			logger.String("user_id", session.UserID))
		s.publish(ctx, clientID, nil)
		return nil, nil
	}
	return session, nil
}

func (s *Service) Subscribe(clientID string, fn func(*domain.Session)) func() {
	return s.broker.Subscribe(clientID, fn)
}

func (s *Service) publish(ctx context.Context, clientID string, session *domain.Session) {
	if err := s.broker.Publish(ctx, clientID, session); err != nil {
		s.logger.Warn("failed to publish session change",
			logger.String("client_id", clientID),
			logger.Error(err))
	}
}
