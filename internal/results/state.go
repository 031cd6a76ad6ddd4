// Package results runs searches for one visitor and holds the accumulated
// result list, its pagination and its state.
package results

import (
	"time"

	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

// State is the controller's position in Idle → Loading → Success/Empty/Error.
type State int

const (
	Idle State = iota
	Loading
	Success
	Empty
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Empty:
		return "empty"
	case Error:
		return "error"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome describes one committed search.
type Outcome struct {
	Query       query.SearchQuery
	ResultCount int // total matches reported by the search service
	PageCount   int // postings on the committed page
	Appended    bool
	Elapsed     time.Duration
}

// Empty reports whether the search found nothing.
func (o Outcome) Empty() bool {
	return !o.Appended && o.PageCount == 0
}

// Observer is notified after every committed Success or Empty.
// It runs on the goroutine that committed the result, outside any lock.
type Observer interface {
	SearchCommitted(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) SearchCommitted(o Outcome) { f(o) }

// Snapshot is a copy of the controller's visible state.
type Snapshot struct {
	State       State             `json:"state"`
	Query       query.SearchQuery `json:"query"`
	Jobs        []jobs.Annotated  `json:"jobs"`
	TotalCount  int               `json:"totalCount"`
	HasMore     bool              `json:"hasMore"`
	Page        int               `json:"page"`
	LoadingMore bool              `json:"loadingMore"`
	Message     string            `json:"message,omitempty"`
	Err         error             `json:"-"`
}
