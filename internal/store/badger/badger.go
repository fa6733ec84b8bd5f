package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// gcDiscardRatio is the share of stale data a value log file needs before
// Compact rewrites it.
const gcDiscardRatio = 0.5

// Store is the embedded alternative to the Redis store: same bookmark table,
// sessions and OAuth states, kept in a BadgerDB directory.
type Store struct {
	db     *badger.DB
	logger logger.Logger
}

// Open opens (or creates) the database at path.
func Open(path string, log logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogger{logger: log.Named("badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		log.Error("failed to open badger", logger.String("path", path), logger.Error(err))
		return nil, fmt.Errorf("failed to open badger db at %s: %w", path, err)
	}
	log.Info("badger opened", logger.String("path", path))

	return &Store{db: db, logger: log}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger: %w", err)
	}
	return nil
}

// Ping reports whether the database is still open.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

// Compact runs value log GC until there is nothing left to rewrite.
func (s *Store) Compact(ctx context.Context) error {
	rewrites := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return fmt.Errorf("badger value log gc failed: %w", err)
		}
		rewrites++
	}
	if rewrites > 0 {
		s.logger.Info("badger value log compacted", logger.Int("rewrites", rewrites))
	}
	return nil
}

func bookmarkKey(id string) []byte {
	return []byte("bookmark:" + id)
}

func userPrefix(userID string) []byte {
	return []byte("user:" + userID + ":bookmark:")
}

func userBookmarkKey(userID, id string) []byte {
	return append(userPrefix(userID), id...)
}

func sessionKey(clientID string) []byte {
	return []byte("session:" + clientID)
}

func stateKey(state string) []byte {
	return []byte("oauthstate:" + state)
}

// InsertBookmark stores a row and indexes it under its owner.
func (s *Store) InsertBookmark(_ context.Context, bookmark domain.Bookmark) error {
	data, err := json.Marshal(bookmark)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(bookmarkKey(bookmark.ID), data); err != nil {
			return err
		}
		return txn.Set(userBookmarkKey(bookmark.UserID, bookmark.ID), nil)
	})
	if err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	return nil
}

// ListBookmarks returns every row owned by userID, newest first.
func (s *Store) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	bookmarks := []domain.Bookmark{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := userPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])

			item, err := txn.Get(bookmarkKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			var bookmark domain.Bookmark
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &bookmark)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal bookmark %s: %w", id, err)
			}
			bookmarks = append(bookmarks, bookmark)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks for user %s: %w", userID, err)
	}

	domain.SortNewestFirst(bookmarks)
	return bookmarks, nil
}

// DeleteBookmark removes a row owned by userID. Missing rows and rows of
// other users match nothing and are not an error.
func (s *Store) DeleteBookmark(_ context.Context, userID, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bookmarkKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var bookmark domain.Bookmark
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &bookmark)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal bookmark: %w", err)
		}
		if bookmark.UserID != userID {
			return nil
		}

		if err := txn.Delete(bookmarkKey(id)); err != nil {
			return err
		}
		return txn.Delete(userBookmarkKey(userID, id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// GetSession returns the client's session, or nil when there is none.
func (s *Store) GetSession(_ context.Context, clientID string) (*domain.Session, error) {
	var session *domain.Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(clientID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			session = &domain.Session{}
			return json.Unmarshal(val, session)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// PutSession stores the client's session with a TTL.
func (s *Store) PutSession(_ context.Context, clientID string, session domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(withTTL(badger.NewEntry(sessionKey(clientID), data), ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(_ context.Context, clientID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(clientID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PutState remembers which client started an OAuth flow.
func (s *Store) PutState(_ context.Context, state, clientID string, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(withTTL(badger.NewEntry(stateKey(state), []byte(clientID)), ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// TakeState consumes an OAuth state inside a single transaction.
func (s *Store) TakeState(_ context.Context, state string) (string, error) {
	var clientID string

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(state))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		clientID = string(val)
		return txn.Delete(stateKey(state))
	})

	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to take oauth state: %w", err)
	}
	return clientID, nil
}

func withTTL(e *badger.Entry, ttl time.Duration) *badger.Entry {
	if ttl > 0 {
		return e.WithTTL(ttl)
	}
	return e
}

// badgerLogger adapts logger.Logger to Badger's logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warnf(f, v...) }

// Badger reports every compaction and flush at info; keep those at debug.
func (l *badgerLogger) Infof(f string, v ...interface{})  { l.logger.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{}) { l.logger.Debugf(f, v...) }
