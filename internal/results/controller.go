package results

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("results: controller closed")

var errSuperseded = errors.New("superseded by a newer search")

// request is one issued search. Only the request whose seq equals the
// controller's current seq may commit.
type request struct {
	seq    uint64
	q      query.SearchQuery
	append bool
	cancel context.CancelFunc
}

// Controller executes searches and accumulates their pages.
// It is safe for concurrent use; searches run outside the lock.
type Controller struct {
	searcher apiclient.Searcher
	clock    engine.Clock

	mu        sync.Mutex
	state     State
	current   query.SearchQuery // latest query the visitor asked for
	committed query.SearchQuery // query that produced postings
	postings  []jobs.Posting
	annotated []jobs.Annotated
	total     int
	hasMore   bool
	page      int
	err       error
	failed    *request // last failed request, for Retry
	candidate []string
	seq       uint64
	inflight  *request
	observers []Observer
	closed    bool
}

// NewController builds a Controller in the Idle state.
func NewController(s apiclient.Searcher, clock engine.Clock) *Controller {
	if clock == nil {
		clock = engine.SystemClock()
	}
	return &Controller{searcher: s, clock: clock, current: query.Build(query.RawInput{})}
}

// AddObserver registers o for committed searches.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Search runs q from page 1 and replaces the result list on success.
// If a newer search starts before this one returns, this one reports a
// KindCanceled error and commits nothing.
func (c *Controller) Search(ctx context.Context, q query.SearchQuery) error {
	return c.run(ctx, q.WithPage(1), false)
}

// SetSort re-runs the current query with a new sort key.
func (c *Controller) SetSort(ctx context.Context, key query.SortKey) error {
	c.mu.Lock()
	q := c.current.WithSort(key)
	c.mu.Unlock()
	return c.run(ctx, q, false)
}

// SetFilters replaces the current query with q, keeping the sort key.
func (c *Controller) SetFilters(ctx context.Context, q query.SearchQuery) error {
	c.mu.Lock()
	q.Sort = c.current.Sort
	c.mu.Unlock()
	return c.run(ctx, q.WithPage(1), false)
}

// LoadMore fetches the next page and appends it. It does nothing when there
// is no next page, when a search is in flight, or when nothing is committed.
// The check and the registration of the request happen under one lock, so a
// search started concurrently is never cancelled by a load-more.
func (c *Controller) LoadMore(ctx context.Context) error {
	return c.run(ctx, query.SearchQuery{}, true)
}

func (c *Controller) canLoadMoreLocked() bool {
	if c.inflight != nil || !c.hasMore || len(c.postings) == 0 {
		return false
	}
	switch c.state {
	case Success:
		return true
	case Error:
		// Only a failed load-more leaves the committed list current.
		return c.failed != nil && c.failed.append
	}
	return false
}

// Retry re-issues the request that put the controller into Error.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	f := c.failed
	state := c.state
	c.mu.Unlock()
	if state != Error || f == nil {
		return nil
	}
	if f.append {
		return c.LoadMore(ctx)
	}
	return c.run(ctx, f.q, false)
}

// SetCandidateSkills replaces the candidate skill set and recomputes every
// match annotation of the committed list.
func (c *Controller) SetCandidateSkills(skills []string) {
	skills = query.NormalizeSkills(skills)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidate = skills
	c.annotated = jobs.Annotate(c.postings, c.candidate)
}

// Snapshot returns a copy of the visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:       c.state,
		Query:       c.current,
		Jobs:        slices.Clone(c.annotated),
		TotalCount:  c.total,
		HasMore:     c.hasMore,
		Page:        c.page,
		LoadingMore: c.inflight != nil && c.inflight.append,
		Err:         c.err,
	}
	if s.Jobs == nil {
		s.Jobs = []jobs.Annotated{}
	}
	if c.state == Error && c.err != nil {
		s.Message = engine.UserMessage(c.err)
	}
	return s
}

// Close cancels any in-flight search. Later calls fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.seq++
}

func (c *Controller) run(ctx context.Context, q query.SearchQuery, appending bool) error {
	req, reqCtx, err := c.begin(ctx, q, appending)
	if err != nil || req == nil {
		return err
	}
	defer req.cancel()
	engine.IncrSearchIssued()

	start := c.clock.Now()
	resp, err := c.searcher.Search(reqCtx, req.q)

	outcome, observers, commitErr := c.finish(req, resp, err)
	if commitErr != nil {
		return commitErr
	}
	outcome.Elapsed = c.clock.Now().Sub(start)
	engine.IncrSearchCommitted()
	for _, o := range observers {
		o.SearchCommitted(outcome)
	}
	return nil
}

// begin registers a new request, cancelling the one in flight.
// For a load-more, q is ignored: the next page of the committed query is
// requested, and a nil request is returned when there is nothing to load.
func (c *Controller) begin(ctx context.Context, q query.SearchQuery, appending bool) (*request, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrClosed
	}
	if appending {
		if !c.canLoadMoreLocked() {
			return nil, nil, nil
		}
		q = c.committed.WithPage(c.page + 1)
	}
	if c.inflight != nil {
		c.inflight.cancel()
	}
	c.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	req := &request{seq: c.seq, q: q, append: appending, cancel: cancel}
	c.inflight = req
	if !appending {
		c.current = q
	}
	c.state = Loading
	return req, reqCtx, nil
}

// finish commits the response of req if req is still the latest request.
func (c *Controller) finish(req *request, resp apiclient.SearchResponse, err error) (Outcome, []Observer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.seq != c.seq {
		engine.IncrSearchStale()
		slog.Debug("results: discarded stale response",
			slog.Uint64("seq", req.seq),
			slog.Uint64("latest", c.seq),
			slog.String("query", req.q.Term))
		return Outcome{}, nil, engine.Canceled(errSuperseded)
	}
	c.inflight = nil

	if err != nil {
		c.state = Error
		c.err = err
		c.failed = req
		engine.IncrSearchFailed()
		slog.Debug("results: search failed", slog.String("query", req.q.Term), slog.Any("error", err))
		return Outcome{}, nil, err
	}

	c.err = nil
	c.failed = nil
	c.committed = req.q
	c.page = req.q.Page
	c.total = resp.TotalCount
	c.hasMore = resp.HasMore
	if req.append {
		c.postings = appendUnique(c.postings, resp.Jobs)
	} else {
		c.postings = slices.Clone(resp.Jobs)
	}
	c.annotated = jobs.Annotate(c.postings, c.candidate)
	if len(c.postings) == 0 {
		c.state = Empty
	} else {
		c.state = Success
	}

	out := Outcome{
		Query:       req.q,
		ResultCount: resp.TotalCount,
		PageCount:   len(resp.Jobs),
		Appended:    req.append,
	}
	return out, slices.Clone(c.observers), nil
}

// appendUnique appends next to prev, skipping postings already listed.
// A page can repeat postings when the index shifts between requests.
func appendUnique(prev, next []jobs.Posting) []jobs.Posting {
	seen := make(map[string]bool, len(prev))
	for _, p := range prev {
		seen[p.ID] = true
	}
	out := slices.Clone(prev)
	for _, p := range next {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
