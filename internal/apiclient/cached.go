package apiclient

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/query"
)

// Searcher runs a search query.
type Searcher interface {
	Search(ctx context.Context, q query.SearchQuery) (SearchResponse, error)
}

// CachedSearcher serves repeated queries from an owned engine.Cache.
// Only successful responses are cached.
type CachedSearcher struct {
	next  Searcher
	cache *engine.Cache
}

// NewCachedSearcher wraps next with cache. A nil cache disables caching.
func NewCachedSearcher(next Searcher, cache *engine.Cache) *CachedSearcher {
	return &CachedSearcher{next: next, cache: cache}
}

func (s *CachedSearcher) Search(ctx context.Context, q query.SearchQuery) (SearchResponse, error) {
	key := engine.CacheKey("search", q.Key())
	if resp, ok := engine.CacheLoadJSON[SearchResponse](ctx, s.cache, key); ok {
		slog.Debug("search: cache hit", slog.String("query", q.Term), slog.Int("page", q.Page))
		return resp, nil
	}
	resp, err := s.next.Search(ctx, q)
	if err != nil {
		return SearchResponse{}, err
	}
	engine.CacheStoreJSON(ctx, s.cache, key, resp)
	return resp, nil
}
