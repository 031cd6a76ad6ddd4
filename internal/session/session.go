// Package session composes the per-visitor components and manages their
// lifetime.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/anatolykoptev/go_jobboard/internal/alerts"
	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engagement"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/results"
	"github.com/anatolykoptev/go_jobboard/internal/savedjobs"
	"github.com/anatolykoptev/go_jobboard/internal/store"
)

const storeTimeout = 3 * time.Second

// Deps are the shared collaborators every session is built from.
type Deps struct {
	Searcher   apiclient.Searcher
	Saved      savedjobs.SavedAPI
	Apply      savedjobs.ApplyAPI
	Alerts     alerts.AlertAPI
	Analytics  *apiclient.Analytics // nil disables analytics
	Store      store.Store          // nil disables durable state
	Clock      engine.Clock
	Engagement engagement.Config
}

// Identity is who the visitor is authenticated as. The zero value is an
// anonymous visitor.
type Identity struct {
	Token  string
	UserID string
	Role   string
}

// Authenticated reports whether the identity carries a token.
func (id Identity) Authenticated() bool { return id.Token != "" }

// Session is one visitor's search session.
type Session struct {
	ID        string
	VisitorID string

	Results    *results.Controller
	Engagement *engagement.Engine
	Saved      *savedjobs.Set
	Applicant  *savedjobs.Applicant
	Alerts     *alerts.Subscriber

	deps Deps

	mu       sync.Mutex
	identity Identity
	lastUsed time.Time
	closed   bool

	recent *recentWriter // nil without a store
}

func newSession(id, visitorID string, deps Deps, subscribed bool, ident Identity) *Session {
	s := &Session{
		ID:        id,
		VisitorID: visitorID,
		deps:      deps,
		identity:  ident,
		lastUsed:  deps.Clock.Now(),
	}
	s.Results = results.NewController(deps.Searcher, deps.Clock)
	s.Engagement = engagement.New(deps.Engagement, deps.Clock, subscribed, ident.Authenticated())
	s.Saved = savedjobs.NewSet(deps.Saved)
	s.Applicant = savedjobs.NewApplicant(deps.Apply)
	s.Alerts = alerts.NewSubscriber(deps.Alerts, deps.Store, s.Engagement, deps.Clock, visitorID)

	s.Saved.SetToken(ident.Token)
	s.Applicant.SetToken(ident.Token)
	s.Alerts.SetToken(ident.Token)

	s.Results.AddObserver(s.Engagement)
	s.Results.AddObserver(results.ObserverFunc(s.trackAnalytics))
	if deps.Store != nil {
		s.recent = newRecentWriter(deps.Store, visitorID)
		s.Results.AddObserver(results.ObserverFunc(s.recordRecent))
	}
	return s
}

// SetIdentity switches the visitor's identity across every component.
func (s *Session) SetIdentity(ident Identity) {
	s.mu.Lock()
	s.identity = ident
	s.mu.Unlock()
	s.Saved.SetToken(ident.Token)
	s.Applicant.SetToken(ident.Token)
	s.Alerts.SetToken(ident.Token)
	s.Engagement.SetAuthenticated(ident.Authenticated())
	if !ident.Authenticated() {
		s.Results.SetCandidateSkills(nil)
	}
}

// Identity returns the current identity.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// LoadProfile fetches the candidate profile and uses its skills to
// annotate results with match scores.
func (s *Session) LoadProfile(ctx context.Context) (jobs.Profile, jobs.Completeness, error) {
	p, c, err := s.Applicant.LoadProfile(ctx)
	if err != nil {
		return p, c, err
	}
	s.Results.SetCandidateSkills(p.Skills)
	return p, c, nil
}

// Subscribe creates an alert for the search the open prompt was shown for,
// or for the current search when no prompt is open.
func (s *Session) Subscribe(ctx context.Context, email, frequency string) (alerts.Result, error) {
	q := s.Results.Snapshot().Query
	if p, ok := s.Engagement.Prompt(); ok {
		q = p.Query
	}
	return s.Alerts.Submit(ctx, email, frequency, alerts.ContextFrom(q))
}

// RecentSearches returns the visitor's remembered searches.
func (s *Session) RecentSearches(ctx context.Context) ([]store.RecentSearch, error) {
	if s.deps.Store == nil {
		return []store.RecentSearch{}, nil
	}
	if err := s.recent.flush(ctx); err != nil {
		return nil, err
	}
	return s.deps.Store.RecentSearches(ctx, s.VisitorID)
}

// recordRecent queues the committed search for the visitor's history.
// Load-more pages repeat a search already recorded.
func (s *Session) recordRecent(o results.Outcome) {
	if o.Appended {
		return
	}
	s.recent.push(store.RecentSearch{
		Query:    o.Query.Term,
		Location: o.Query.LocationText(),
		At:       s.deps.Clock.Now(),
	})
}

func (s *Session) trackAnalytics(o results.Outcome) {
	if s.deps.Analytics == nil {
		return
	}
	q := o.Query
	ev := apiclient.SearchEvent{
		Query:        q.Term,
		Location:     q.LocationText(),
		Skills:       q.Skills,
		SalaryMin:    q.Salary.Min,
		SalaryMax:    q.Salary.Max,
		Remote:       q.Remote,
		SortBy:       string(q.Sort),
		Page:         q.Page,
		ResultsCount: o.ResultCount,
		SearchTimeMs: o.Elapsed.Milliseconds(),
		UserType:     "anonymous",
	}
	for _, t := range q.JobTypes {
		ev.JobTypes = append(ev.JobTypes, string(t))
	}
	if ident := s.Identity(); ident.Authenticated() {
		ev.UserType = ident.Role
		if ev.UserType == "" {
			ev.UserType = "jobseeker"
		}
	}
	s.deps.Analytics.Track(ev)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.deps.Clock.Now()
	s.mu.Unlock()
}

// LastUsed returns when the session was last fetched from its Manager.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close cancels in-flight work, timers and listeners. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.Results.Close()
	s.Engagement.Close()
	if s.recent != nil {
		s.recent.close()
	}
}
