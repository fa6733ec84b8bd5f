package domain

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or has expired.
	ErrNotFound = errors.New("not found")

	// ErrNoSession is returned when a call needs a session and the client has none,
	// including one that expired or was evicted.
	ErrNoSession = errors.New("no active session")
)
