// Package savedjobs tracks a visitor's saved jobs and gates quick-apply.
package savedjobs

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

const (
	msgJobRequired  = "Job ID is required"
	msgSaveInFlight = "This job is already being updated"
)

// SavedAPI is the saved-jobs part of the backend.
type SavedAPI interface {
	SaveJob(ctx context.Context, token, jobID string) error
	UnsaveJob(ctx context.Context, token, jobID string) error
	ListSavedJobs(ctx context.Context, token string) ([]string, error)
}

// Set is the saved-job membership of one authenticated visitor.
// Toggles apply locally first and roll back if the backend refuses them.
type Set struct {
	api SavedAPI

	mu      sync.Mutex
	token   string
	ids     map[string]bool
	pending map[string]bool
}

// NewSet builds an empty, unauthenticated Set.
func NewSet(api SavedAPI) *Set {
	return &Set{api: api, ids: make(map[string]bool), pending: make(map[string]bool)}
}

// SetToken switches the identity the set belongs to. Changing identity
// clears membership; call Reconcile to load the new identity's jobs.
func (s *Set) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.token {
		return
	}
	s.token = token
	s.ids = make(map[string]bool)
	s.pending = make(map[string]bool)
}

// Toggle flips jobID's membership and reports whether it is now saved.
// On failure the flip is undone and the returned state is the previous one.
func (s *Set) Toggle(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return false, engine.Validation(engine.MsgLoginToSave)
	}
	if jobID == "" {
		s.mu.Unlock()
		return false, engine.Validation(msgJobRequired)
	}
	was := s.ids[jobID]
	if s.pending[jobID] {
		s.mu.Unlock()
		return was, engine.Validation(msgSaveInFlight)
	}
	s.setLocked(jobID, !was)
	s.pending[jobID] = true
	token := s.token
	s.mu.Unlock()

	var err error
	if was {
		err = s.api.UnsaveJob(ctx, token, jobID)
	} else {
		err = s.api.SaveJob(ctx, token, jobID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		// Identity changed mid-flight; the old membership is gone.
		return !was, err
	}
	delete(s.pending, jobID)
	if err != nil {
		s.setLocked(jobID, was)
		engine.IncrSaveRollback()
		slog.Debug("savedjobs: rolled back toggle", slog.String("job_id", jobID), slog.Any("error", err))
		return was, engine.Relabel(err, engine.MsgSaveFailed)
	}
	engine.IncrSave()
	return !was, nil
}

func (s *Set) setLocked(jobID string, saved bool) {
	if saved {
		s.ids[jobID] = true
	} else {
		delete(s.ids, jobID)
	}
}

// Reconcile replaces membership with the backend's list. Jobs with a toggle
// in flight keep their optimistic state.
func (s *Set) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return engine.Validation(engine.MsgLoginToSave)
	}

	ids, err := s.api.ListSavedJobs(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		return nil
	}
	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	for id := range s.pending {
		if s.ids[id] {
			next[id] = true
		} else {
			delete(next, id)
		}
	}
	s.ids = next
	return nil
}

// IsSaved reports whether jobID is currently saved.
func (s *Set) IsSaved(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[jobID]
}

// IDs returns the saved job ids in sorted order.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
