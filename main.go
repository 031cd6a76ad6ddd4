// go_jobboard: job-board search, matching and engagement service.
//
// Serves the session REST API a web frontend drives (search, saved jobs,
// quick-apply, alert capture) and exposes stateless job tools over MCP:
// job_search, skill_match, profile_completeness, location_suggest.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/robfig/cron/v3"

	"github.com/anatolykoptev/go_jobboard/internal/apiclient"
	"github.com/anatolykoptev/go_jobboard/internal/engagement"
	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/httpapi"
	"github.com/anatolykoptev/go_jobboard/internal/jobserver"
	"github.com/anatolykoptev/go_jobboard/internal/query"
	"github.com/anatolykoptev/go_jobboard/internal/session"
	"github.com/anatolykoptev/go_jobboard/internal/store"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}

	cfg := loadConfig()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	slog.Info("starting go_jobboard",
		slog.String("http_port", cfg.HTTPPort),
		slog.String("mcp_port", cfg.MCPPort),
		slog.String("api", cfg.APIBaseURL),
	)

	ctx := context.Background()

	visitors, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("visitor store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer visitors.Close()

	cache := engine.NewCache(ctx, engine.CacheConfig{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
		RedisURL:   cfg.RedisURL,
	}, nil)
	defer cache.Close()

	janitor := cron.New(cron.WithLogger(cron.DefaultLogger))
	if _, err := janitor.AddFunc("@every 1m", func() { cache.Sweep() }); err != nil {
		slog.Error("cache janitor init failed", slog.Any("error", fmt.Errorf("cron.AddFunc: %w", err)))
		os.Exit(1)
	}
	janitor.Start()
	defer janitor.Stop()

	backend := apiclient.New(apiclient.Config{
		BaseURL:         cfg.APIBaseURL,
		Timeout:         cfg.APITimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	})
	searcher := apiclient.NewCachedSearcher(backend, cache)
	analytics := apiclient.NewAnalytics(backend, cfg.AnalyticsRPS, cfg.AnalyticsBurst)
	defer analytics.Wait()

	places := query.DefaultGazetteer()

	mgr := session.NewManager(session.Deps{
		Searcher:   searcher,
		Saved:      backend,
		Apply:      backend,
		Alerts:     backend,
		Analytics:  analytics,
		Store:      visitors,
		Engagement: engagement.DefaultConfig(),
	}, cfg.SessionIdleTTL)
	if err := mgr.Start(cfg.SessionSweepSpec); err != nil {
		slog.Error("session sweeper init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer mgr.Stop()

	app := httpapi.New(mgr, places, httpapi.Config{
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		Timeout:   cfg.APITimeout + 5*time.Second,
	})
	go func() {
		if err := app.Listen(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
		}
	}()
	defer app.ShutdownWithTimeout(10 * time.Second)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_jobboard",
		Version: version,
	}, nil)

	n := jobserver.RegisterTools(server, jobserver.Deps{Searcher: searcher, Places: places})
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_jobboard",
		Version:      version,
		Port:         cfg.MCPPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	return engine.Config{
		HTTPPort:         env.Str("HTTP_PORT", "8892"),
		MCPPort:          env.Str("MCP_PORT", "8891"),
		APIBaseURL:       env.Str("API_BASE_URL", "http://127.0.0.1:3001/api"),
		APITimeout:       env.Duration("API_TIMEOUT", 10*time.Second),
		DatabaseURL:      env.Str("DATABASE_URL", ""),
		SQLitePath:       env.Str("SQLITE_PATH", ""),
		RedisURL:         env.Str("REDIS_URL", ""),
		CacheTTL:         env.Duration("CACHE_TTL", time.Minute),
		CacheMaxEntries:  env.Int("CACHE_MAX_ENTRIES", 1000),
		JWTSecret:        env.Str("JWT_SECRET", ""),
		JWTIssuer:        env.Str("JWT_ISSUER", ""),
		SessionIdleTTL:   env.Duration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepSpec: env.Str("SESSION_SWEEP_SPEC", "@every 1m"),
		AnalyticsRPS:     env.Float("ANALYTICS_RPS", 20),
		AnalyticsBurst:   env.Int("ANALYTICS_BURST", 40),
		BreakerFailures:  env.Int("BREAKER_FAILURES", 5),
		BreakerCooldown:  env.Duration("BREAKER_COOLDOWN", 30*time.Second),
		LogLevel:         env.Str("LOG_LEVEL", "info"),
	}.Defaults()
}

// openStore picks Postgres when DATABASE_URL is set and SQLite otherwise.
func openStore(ctx context.Context, cfg engine.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("visitor store: postgres")
		return pg, nil
	}
	lite, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	slog.Info("visitor store: sqlite", slog.String("path", cfg.SQLitePath))
	return lite, nil
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
