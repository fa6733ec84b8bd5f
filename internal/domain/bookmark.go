package domain

import (
	"sort"
	"time"
)

// Bookmark is a row of the bookmarks table.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque unique identifier assigned by the backend on insert.
	ID string `json:"id"`

	// ─────────────────────────────
	// Payload
	// ─────────────────────────────

	// Title is free text entered by the user.
	// Example: "Docs"
	Title string `json:"title"`

	// URL is the target, stored exactly as entered.
	// Example: https://example.com
	URL string `json:"url"`

	// ─────────────────────────────
	// Ownership & ordering
	// ─────────────────────────────

	// UserID is the owning user. Set from the active session on insert.
	UserID string `json:"user_id"`

	// CreatedAt is assigned by the backend; lists are ordered by it, newest first.
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark is the insert payload for the bookmarks table.
type NewBookmark struct {
	Title  string
	URL    string
	UserID string
}

// Complete reports whether every field of the payload is set.
func (n NewBookmark) Complete() bool {
	return n.Title != "" && n.URL != "" && n.UserID != ""
}

// Materialize turns the payload into a row with the given identity.
func (n NewBookmark) Materialize(id string, createdAt time.Time) Bookmark {
	return Bookmark{
		ID:        id,
		Title:     n.Title,
		URL:       n.URL,
		UserID:    n.UserID,
		CreatedAt: createdAt,
	}
}

// SortNewestFirst orders bookmarks by CreatedAt descending, ties broken by ID
// so the order is stable across stores.
func SortNewestFirst(bookmarks []Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		a, b := bookmarks[i], bookmarks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
