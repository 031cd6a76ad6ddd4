package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/jobs"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

type searchFunc func(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error)

func (f searchFunc) Search(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
	return f(ctx, q)
}

// pagedSearcher serves total postings named "<term>-<n>" in pages of size per.
func pagedSearcher(total, per int) searchFunc {
	return func(_ context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
		var resp apiclient.SearchResponse
		start := (q.Page - 1) * per
		for i := start; i < total && i < start+per; i++ {
			resp.Jobs = append(resp.Jobs, jobs.Posting{
				ID:     fmt.Sprintf("%s-%d", q.Term, i),
				Title:  q.Term,
				Skills: []string{"Driving", "Logistics"},
			})
		}
		resp.TotalCount = total
		resp.HasMore = start+per < total
		return resp, nil
	}
}

type reply struct {
	resp apiclient.SearchResponse
	err  error
}

type pendingCall struct {
	ctx   context.Context
	q     query.SearchQuery
	reply chan reply
}

// gatedSearcher parks every call until the test answers it.
type gatedSearcher struct {
	calls chan *pendingCall
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{calls: make(chan *pendingCall, 8)}
}

func (g *gatedSearcher) Search(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
	pc := &pendingCall{ctx: ctx, q: q, reply: make(chan reply, 1)}
	g.calls <- pc
	r := <-pc.reply
	return r.resp, r.err
}

func page(term string, n int) apiclient.SearchResponse {
	resp := apiclient.SearchResponse{TotalCount: n}
	for i := 0; i < n; i++ {
		resp.Jobs = append(resp.Jobs, jobs.Posting{ID: fmt.Sprintf("%s-%d", term, i)})
	}
	return resp
}

func ids(s Snapshot) []string {
	out := make([]string, len(s.Jobs))
	for i, j := range s.Jobs {
		out[i] = j.ID
	}
	return out
}

func TestInitialState(t *testing.T) {
	c := NewController(pagedSearcher(0, 20), nil)
	s := c.Snapshot()
	assert.Equal(t, Idle, s.State)
	assert.Empty(t, s.Jobs)
	assert.NotNil(t, s.Jobs)
	assert.NoError(t, c.LoadMore(context.Background()), "load more from idle is a no-op")
}

func TestSearchSuccessAndEmpty(t *testing.T) {
	ctx := context.Background()
	c := NewController(pagedSearcher(3, 20), nil)

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "Driver"})))
	s := c.Snapshot()
	assert.Equal(t, Success, s.State)
	assert.Equal(t, []string{"Driver-0", "Driver-1", "Driver-2"}, ids(s))
	assert.Equal(t, 3, s.TotalCount)
	assert.False(t, s.HasMore)
	assert.Equal(t, 1, s.Page)

	c = NewController(pagedSearcher(0, 20), nil)
	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "Astronaut"})))
	assert.Equal(t, Empty, c.Snapshot().State)
}

func TestLoadMoreAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	c := NewController(pagedSearcher(5, 2), nil)

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "x"})))
	require.True(t, c.Snapshot().HasMore)

	require.NoError(t, c.LoadMore(ctx))
	s := c.Snapshot()
	assert.Equal(t, []string{"x-0", "x-1", "x-2", "x-3"}, ids(s))
	assert.Equal(t, 2, s.Page)

	require.NoError(t, c.LoadMore(ctx))
	s = c.Snapshot()
	assert.Equal(t, []string{"x-0", "x-1", "x-2", "x-3", "x-4"}, ids(s))
	assert.False(t, s.HasMore)

	require.NoError(t, c.LoadMore(ctx))
	assert.Len(t, c.Snapshot().Jobs, 5, "no-op without hasMore")

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "y"})))
	s = c.Snapshot()
	assert.Equal(t, []string{"y-0", "y-1"}, ids(s), "a new query resets to a single page")
	assert.Equal(t, 1, s.Page)
}

func TestLoadMoreSkipsRepeatedPostings(t *testing.T) {
	ctx := context.Background()
	calls := 0
	c := NewController(searchFunc(func(_ context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
		calls++
		if q.Page == 1 {
			return apiclient.SearchResponse{Jobs: []jobs.Posting{{ID: "a"}, {ID: "b"}}, TotalCount: 3, HasMore: true}, nil
		}
		return apiclient.SearchResponse{Jobs: []jobs.Posting{{ID: "b"}, {ID: "c"}}, TotalCount: 3}, nil
	}), nil)
	require.NoError(t, c.Search(ctx, query.SearchQuery{}))
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.Snapshot()))
	assert.Equal(t, 2, calls)
}

func TestLoadMoreNoOpWhileInFlight(t *testing.T) {
	ctx := context.Background()
	g := newGatedSearcher()
	c := NewController(g, nil)

	done := make(chan error, 1)
	go func() { done <- c.Search(ctx, query.SearchQuery{}) }()
	first := <-g.calls
	first.reply <- reply{resp: apiclient.SearchResponse{Jobs: []jobs.Posting{{ID: "1"}}, TotalCount: 2, HasMore: true}}
	require.NoError(t, <-done)

	go func() { done <- c.LoadMore(ctx) }()
	more := <-g.calls
	assert.True(t, c.Snapshot().LoadingMore)
	assert.Equal(t, Loading, c.Snapshot().State)

	require.NoError(t, c.LoadMore(ctx), "second load more while one is in flight")
	assert.Len(t, g.calls, 0, "no extra request issued")

	more.reply <- reply{resp: apiclient.SearchResponse{Jobs: []jobs.Posting{{ID: "2"}}, TotalCount: 2}}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"1", "2"}, ids(c.Snapshot()))
}

func TestLoadMoreNeverCancelsNewerSearch(t *testing.T) {
	ctx := context.Background()
	g := newGatedSearcher()
	c := NewController(g, nil)

	done := make(chan error, 1)
	go func() { done <- c.Search(ctx, query.Build(query.RawInput{Term: "Q1"})) }()
	first := <-g.calls
	first.reply <- reply{resp: apiclient.SearchResponse{Jobs: page("Q1", 20).Jobs, TotalCount: 40, HasMore: true}}
	require.NoError(t, <-done)

	go func() { done <- c.Search(ctx, query.Build(query.RawInput{Term: "Q2"})) }()
	second := <-g.calls

	require.NoError(t, c.LoadMore(ctx))
	assert.Len(t, g.calls, 0, "load more issued nothing while Q2 is in flight")
	assert.NoError(t, second.ctx.Err(), "Q2 not cancelled")

	second.reply <- reply{resp: page("Q2", 3)}
	require.NoError(t, <-done)
	s := c.Snapshot()
	assert.Equal(t, "Q2", s.Query.Term)
	assert.Equal(t, []string{"Q2-0", "Q2-1", "Q2-2"}, ids(s))
}

func TestLoadMoreRacingSearch(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 300; i++ {
		c := NewController(pagedSearcher(40, 20), nil)
		require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "Q1"})))

		var wg sync.WaitGroup
		var searchErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.LoadMore(ctx)
		}()
		go func() {
			defer wg.Done()
			searchErr = c.Search(ctx, query.Build(query.RawInput{Term: "Q2"}))
		}()
		wg.Wait()

		require.NoError(t, searchErr, "iteration %d", i)
		s := c.Snapshot()
		require.Equal(t, "Q2", s.Query.Term)
		// A load-more that starts after Q2 commits appends Q2's second page.
		require.Contains(t, []int{20, 40}, len(s.Jobs), "iteration %d", i)
		for _, j := range s.Jobs {
			require.Equal(t, "Q2", j.Title, "iteration %d", i)
		}
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	g := newGatedSearcher()
	c := NewController(g, nil)

	var committed []string
	var mu sync.Mutex
	c.AddObserver(ObserverFunc(func(o Outcome) {
		mu.Lock()
		committed = append(committed, o.Query.Term)
		mu.Unlock()
	}))

	err1 := make(chan error, 1)
	err2 := make(chan error, 1)
	go func() { err1 <- c.Search(ctx, query.Build(query.RawInput{Term: "Q1"})) }()
	call1 := <-g.calls
	go func() { err2 <- c.Search(ctx, query.Build(query.RawInput{Term: "Q2"})) }()
	call2 := <-g.calls

	assert.ErrorIs(t, call1.ctx.Err(), context.Canceled, "older request is cancelled")
	assert.NoError(t, call2.ctx.Err())

	call2.reply <- reply{resp: page("Q2", 2)}
	require.NoError(t, <-err2)

	// Q1's response arrives late, as if the backend ignored cancellation.
	call1.reply <- reply{resp: page("Q1", 5)}
	e := <-err1
	require.Error(t, e)
	assert.True(t, engine.IsCanceled(e))

	s := c.Snapshot()
	assert.Equal(t, []string{"Q2-0", "Q2-1"}, ids(s))
	assert.Equal(t, "Q2", s.Query.Term)
	assert.Equal(t, []string{"Q2"}, committed)
}

func TestStaleResponseArrivingFirst(t *testing.T) {
	ctx := context.Background()
	g := newGatedSearcher()
	c := NewController(g, nil)

	err1 := make(chan error, 1)
	err2 := make(chan error, 1)
	go func() { err1 <- c.Search(ctx, query.Build(query.RawInput{Term: "Q1"})) }()
	call1 := <-g.calls
	go func() { err2 <- c.Search(ctx, query.Build(query.RawInput{Term: "Q2"})) }()
	call2 := <-g.calls

	call1.reply <- reply{resp: page("Q1", 5)}
	assert.True(t, engine.IsCanceled(<-err1))
	s := c.Snapshot()
	assert.Equal(t, Loading, s.State)
	assert.Empty(t, s.Jobs, "stale page never becomes visible")

	call2.reply <- reply{resp: page("Q2", 1)}
	require.NoError(t, <-err2)
	assert.Equal(t, []string{"Q2-0"}, ids(c.Snapshot()))
}

func TestErrorKeepsCommittedPage(t *testing.T) {
	ctx := context.Background()
	fail := false
	c := NewController(searchFunc(func(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
		if fail {
			return apiclient.SearchResponse{}, engine.Service(500, "")
		}
		return pagedSearcher(30, 20)(ctx, q)
	}), nil)

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "cook"})))
	before := ids(c.Snapshot())

	fail = true
	err := c.Search(ctx, query.Build(query.RawInput{Term: "chef"}))
	require.Error(t, err)
	s := c.Snapshot()
	assert.Equal(t, Error, s.State)
	assert.Equal(t, engine.MsgServiceTrouble, s.Message)
	assert.Equal(t, before, ids(s), "failed search must not touch the committed page")
	assert.NoError(t, c.LoadMore(ctx), "load more after a failed new query is a no-op")

	fail = false
	require.NoError(t, c.Retry(ctx))
	s = c.Snapshot()
	assert.Equal(t, Success, s.State)
	assert.Equal(t, "chef", s.Query.Term)
	assert.Equal(t, "chef-0", s.Jobs[0].ID)
}

func TestFailedLoadMoreCanBeRetried(t *testing.T) {
	ctx := context.Background()
	fail := false
	c := NewController(searchFunc(func(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
		if fail {
			return apiclient.SearchResponse{}, engine.Transport(errors.New("reset"))
		}
		return pagedSearcher(30, 20)(ctx, q)
	}), nil)

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "a"})))
	fail = true
	require.Error(t, c.LoadMore(ctx))
	s := c.Snapshot()
	assert.Equal(t, Error, s.State)
	assert.Len(t, s.Jobs, 20)
	assert.Equal(t, engine.MsgTransport, s.Message)

	fail = false
	require.NoError(t, c.LoadMore(ctx))
	s = c.Snapshot()
	assert.Equal(t, Success, s.State)
	assert.Len(t, s.Jobs, 30)
	assert.Equal(t, 2, s.Page)
}

func TestSetSortAndFilters(t *testing.T) {
	ctx := context.Background()
	var seen []query.SearchQuery
	c := NewController(searchFunc(func(ctx context.Context, q query.SearchQuery) (apiclient.SearchResponse, error) {
		seen = append(seen, q)
		return pagedSearcher(50, 20)(ctx, q)
	}), nil)

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "nurse"})))
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.SetSort(ctx, query.SortDate))

	last := seen[len(seen)-1]
	assert.Equal(t, query.SortDate, last.Sort)
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, "nurse", last.Term)
	assert.Len(t, c.Snapshot().Jobs, 20, "sort change replaces the list")

	require.NoError(t, c.SetFilters(ctx, query.Build(query.RawInput{Term: "nurse", Remote: true})))
	last = seen[len(seen)-1]
	assert.Equal(t, query.SortDate, last.Sort, "filters keep the sort key")
	assert.True(t, last.Remote)
}

func TestCandidateSkillsReannotate(t *testing.T) {
	ctx := context.Background()
	c := NewController(pagedSearcher(2, 20), nil)
	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "d"})))
	for _, j := range c.Snapshot().Jobs {
		assert.Nil(t, j.Match)
	}

	c.SetCandidateSkills([]string{"driving"})
	for _, j := range c.Snapshot().Jobs {
		require.NotNil(t, j.Match)
		assert.Equal(t, 50, j.Match.MatchPercentage)
	}

	c.SetCandidateSkills([]string{"Driving", "LOGISTICS"})
	assert.Equal(t, 100, c.Snapshot().Jobs[0].Match.MatchPercentage)

	c.SetCandidateSkills(nil)
	assert.Nil(t, c.Snapshot().Jobs[0].Match)
}

func TestObserversSeeCommittedOutcomes(t *testing.T) {
	ctx := context.Background()
	var outcomes []Outcome
	c := NewController(pagedSearcher(25, 20), nil)
	c.AddObserver(ObserverFunc(func(o Outcome) { outcomes = append(outcomes, o) }))

	require.NoError(t, c.Search(ctx, query.Build(query.RawInput{Term: "a"})))
	require.NoError(t, c.LoadMore(ctx))

	c2 := NewController(pagedSearcher(0, 20), nil)
	c2.AddObserver(ObserverFunc(func(o Outcome) { outcomes = append(outcomes, o) }))
	require.NoError(t, c2.Search(ctx, query.Build(query.RawInput{Term: "b"})))

	require.Len(t, outcomes, 3)
	assert.Equal(t, 25, outcomes[0].ResultCount)
	assert.False(t, outcomes[0].Empty())
	assert.True(t, outcomes[1].Appended)
	assert.Equal(t, 5, outcomes[1].PageCount)
	assert.True(t, outcomes[2].Empty())
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	g := newGatedSearcher()
	c := NewController(g, nil)

	done := make(chan error, 1)
	go func() { done <- c.Search(ctx, query.SearchQuery{}) }()
	call := <-g.calls
	c.Close()
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)
	call.reply <- reply{resp: page("x", 1)}
	assert.True(t, engine.IsCanceled(<-done))

	assert.ErrorIs(t, c.Search(ctx, query.SearchQuery{}), ErrClosed)
}
