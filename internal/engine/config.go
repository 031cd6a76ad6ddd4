package engine

import (
	"time"
)

// Config holds all service configuration, injected from main.
type Config struct {
	HTTPPort string
	MCPPort  string

	APIBaseURL string
	APITimeout time.Duration

	DatabaseURL string // Postgres visitor store; empty = SQLite
	SQLitePath  string

	RedisURL        string // empty disables the L2 cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	JWTSecret string
	JWTIssuer string

	SessionIdleTTL   time.Duration
	SessionSweepSpec string // cron spec, e.g. "@every 1m"

	AnalyticsRPS   float64
	AnalyticsBurst int

	BreakerFailures int
	BreakerCooldown time.Duration

	LogLevel string
}

// Defaults fills zero-valued fields with the values used in production.
func (c Config) Defaults() Config {
	if c.HTTPPort == "" {
		c.HTTPPort = "8892"
	}
	if c.MCPPort == "" {
		c.MCPPort = "8891"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Minute
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 1000
	}
	if c.SessionIdleTTL <= 0 {
		c.SessionIdleTTL = 30 * time.Minute
	}
	if c.SessionSweepSpec == "" {
		c.SessionSweepSpec = "@every 1m"
	}
	if c.AnalyticsRPS <= 0 {
		c.AnalyticsRPS = 20
	}
	if c.AnalyticsBurst <= 0 {
		c.AnalyticsBurst = 40
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}
