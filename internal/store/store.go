// Package store persists per-visitor state that outlives a session: the
// "already subscribed to alerts" flag and a short recent-search history.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// MaxRecent bounds the recent-search history per visitor.
const MaxRecent = 5

// ErrNoVisitor is returned for an empty visitor id.
var ErrNoVisitor = errors.New("store: visitor id is required")

// RecentSearch is one remembered search, for UI convenience only.
type RecentSearch struct {
	Query    string    `json:"query"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

// Store is the durable visitor state. Implementations are safe for
// concurrent use.
type Store interface {
	Subscribed(ctx context.Context, visitorID string) (bool, error)
	SetSubscribed(ctx context.Context, visitorID string, at time.Time) error
	ClearSubscribed(ctx context.Context, visitorID string) error
	// RecentSearches returns at most MaxRecent entries, newest first.
	RecentSearches(ctx context.Context, visitorID string) ([]RecentSearch, error)
	// PushRecentSearch records s, replacing an older entry with the same
	// query text. Entries with a blank query are ignored.
	PushRecentSearch(ctx context.Context, visitorID string, s RecentSearch) error
	Close() error
}

// normalize trims s and returns its dedup key; ok is false when s has no query.
func normalize(s RecentSearch) (RecentSearch, string, bool) {
	s.Query = engine.CollapseSpace(s.Query)
	s.Location = strings.TrimSpace(s.Location)
	if s.Query == "" {
		return s, "", false
	}
	if s.At.IsZero() {
		s.At = time.Now()
	}
	s.At = s.At.UTC()
	return s, engine.FoldKey(s.Query), true
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)
