package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("subscribed flag", func(t *testing.T) {
		ok, err := s.Subscribed(ctx, "v1")
		require.NoError(t, err)
		assert.False(t, ok, "unknown visitor is not subscribed")

		require.NoError(t, s.SetSubscribed(ctx, "v1", base))
		require.NoError(t, s.SetSubscribed(ctx, "v1", base.Add(time.Hour)))
		ok, err = s.Subscribed(ctx, "v1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Subscribed(ctx, "v2")
		require.NoError(t, err)
		assert.False(t, ok, "flag is per visitor")

		require.NoError(t, s.ClearSubscribed(ctx, "v1"))
		ok, err = s.Subscribed(ctx, "v1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("recent searches bounded newest first", func(t *testing.T) {
		for i, q := range []string{"driver", "nurse", "chef", "teacher", "welder", "cashier"} {
			require.NoError(t, s.PushRecentSearch(ctx, "r1", RecentSearch{Query: q, At: base.Add(time.Duration(i) * time.Minute)}))
		}
		got, err := s.RecentSearches(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, got, MaxRecent)
		var queries []string
		for _, r := range got {
			queries = append(queries, r.Query)
		}
		assert.Equal(t, []string{"cashier", "welder", "teacher", "chef", "nurse"}, queries)
		assert.True(t, got[0].At.Equal(base.Add(5*time.Minute)))
	})

	t.Run("recent searches deduplicated by query", func(t *testing.T) {
		require.NoError(t, s.PushRecentSearch(ctx, "r2", RecentSearch{Query: "Driver", Location: "Kingston", At: base}))
		require.NoError(t, s.PushRecentSearch(ctx, "r2", RecentSearch{Query: "chef", At: base.Add(time.Minute)}))
		require.NoError(t, s.PushRecentSearch(ctx, "r2", RecentSearch{Query: "  driver ", Location: "Montego Bay", At: base.Add(2 * time.Minute)}))
		require.NoError(t, s.PushRecentSearch(ctx, "r2", RecentSearch{Query: "   ", At: base.Add(3 * time.Minute)}))

		got, err := s.RecentSearches(ctx, "r2")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "driver", got[0].Query)
		assert.Equal(t, "Montego Bay", got[0].Location)
		assert.True(t, got[0].At.Equal(base.Add(2*time.Minute)))
		assert.Equal(t, "chef", got[1].Query)
	})

	t.Run("empty visitor", func(t *testing.T) {
		_, err := s.Subscribed(ctx, "")
		assert.ErrorIs(t, err, ErrNoVisitor)
		assert.ErrorIs(t, s.PushRecentSearch(ctx, "", RecentSearch{Query: "x"}), ErrNoVisitor)
	})
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "visitors.db"))
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visitors.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSubscribed(context.Background(), "v", time.Now()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.Subscribed(context.Background(), "v")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := ConnectPostgres(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(context.Background(), `DELETE FROM visitors; DELETE FROM recent_searches`)
	require.NoError(t, err)
	storeContract(t, s)
}
