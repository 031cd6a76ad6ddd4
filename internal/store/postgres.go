package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres is the Store shared between replicas.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("store: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return p, nil
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (p *Postgres) Subscribed(ctx context.Context, visitorID string) (bool, error) {
	if visitorID == "" {
		return false, ErrNoVisitor
	}
	var v bool
	err := p.pool.QueryRow(ctx, `SELECT subscribed FROM visitors WHERE visitor_id = $1`, visitorID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: read subscribed: %w", err)
	}
	return v, nil
}

func (p *Postgres) SetSubscribed(ctx context.Context, visitorID string, at time.Time) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO visitors (visitor_id, subscribed, subscribed_at) VALUES ($1, TRUE, $2)
		ON CONFLICT (visitor_id) DO UPDATE SET subscribed = TRUE, subscribed_at = EXCLUDED.subscribed_at
	`, visitorID, at.UTC())
	if err != nil {
		return fmt.Errorf("store: set subscribed: %w", err)
	}
	return nil
}

func (p *Postgres) ClearSubscribed(ctx context.Context, visitorID string) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	_, err := p.pool.Exec(ctx,
		`UPDATE visitors SET subscribed = FALSE, subscribed_at = NULL WHERE visitor_id = $1`, visitorID)
	if err != nil {
		return fmt.Errorf("store: clear subscribed: %w", err)
	}
	return nil
}

func (p *Postgres) RecentSearches(ctx context.Context, visitorID string) ([]RecentSearch, error) {
	if visitorID == "" {
		return nil, ErrNoVisitor
	}
	rows, err := p.pool.Query(ctx, `
		SELECT query, location, searched_at FROM recent_searches
		WHERE visitor_id = $1 ORDER BY searched_at DESC LIMIT $2
	`, visitorID, MaxRecent)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer rows.Close()

	out := make([]RecentSearch, 0, MaxRecent)
	for rows.Next() {
		var r RecentSearch
		if err := rows.Scan(&r.Query, &r.Location, &r.At); err != nil {
			return nil, fmt.Errorf("store: scan recent: %w", err)
		}
		r.At = r.At.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) PushRecentSearch(ctx context.Context, visitorID string, rs RecentSearch) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	rs, key, ok := normalize(rs)
	if !ok {
		return nil
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO recent_searches (visitor_id, query_key, query, location, searched_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (visitor_id, query_key) DO UPDATE SET
			  query = EXCLUDED.query, location = EXCLUDED.location, searched_at = EXCLUDED.searched_at
		`, visitorID, key, rs.Query, rs.Location, rs.At); err != nil {
			return fmt.Errorf("store: push recent: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM recent_searches WHERE visitor_id = $1 AND query_key NOT IN (
			  SELECT query_key FROM recent_searches WHERE visitor_id = $1
			  ORDER BY searched_at DESC LIMIT $2)
		`, visitorID, MaxRecent); err != nil {
			return fmt.Errorf("store: trim recent: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
