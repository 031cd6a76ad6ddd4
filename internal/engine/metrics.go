package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// metrics tracks operational counters across the service.
var metrics struct {
	SearchesIssued      atomic.Int64
	SearchesCommitted   atomic.Int64
	SearchesStale       atomic.Int64
	SearchesFailed      atomic.Int64
	CacheHits           atomic.Int64
	CacheMisses         atomic.Int64
	AnalyticsSent       atomic.Int64
	AnalyticsDropped    atomic.Int64
	PromptsEmptySearch  atomic.Int64
	PromptsExitIntent   atomic.Int64
	PromptsTimeBased    atomic.Int64
	AlertsCreated       atomic.Int64
	AlertsConflict      atomic.Int64
	ApplicationsSent    atomic.Int64
	ApplicationsBlocked atomic.Int64
	Saves               atomic.Int64
	SaveRollbacks       atomic.Int64
	SessionsOpened      atomic.Int64
	SessionsSwept       atomic.Int64
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"searches_issued":      metrics.SearchesIssued.Load(),
		"searches_committed":   metrics.SearchesCommitted.Load(),
		"searches_stale":       metrics.SearchesStale.Load(),
		"searches_failed":      metrics.SearchesFailed.Load(),
		"cache_hits":           metrics.CacheHits.Load(),
		"cache_misses":         metrics.CacheMisses.Load(),
		"analytics_sent":       metrics.AnalyticsSent.Load(),
		"analytics_dropped":    metrics.AnalyticsDropped.Load(),
		"prompts_empty_search": metrics.PromptsEmptySearch.Load(),
		"prompts_exit_intent":  metrics.PromptsExitIntent.Load(),
		"prompts_time_based":   metrics.PromptsTimeBased.Load(),
		"alerts_created":       metrics.AlertsCreated.Load(),
		"alerts_conflict":      metrics.AlertsConflict.Load(),
		"applications_sent":    metrics.ApplicationsSent.Load(),
		"applications_blocked": metrics.ApplicationsBlocked.Load(),
		"saves":                metrics.Saves.Load(),
		"save_rollbacks":       metrics.SaveRollbacks.Load(),
		"sessions_opened":      metrics.SessionsOpened.Load(),
		"sessions_swept":       metrics.SessionsSwept.Load(),
	}
}

// FormatMetrics renders metrics as "name value" lines.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"searches_issued", "searches_committed", "searches_stale", "searches_failed",
		"cache_hits", "cache_misses",
		"analytics_sent", "analytics_dropped",
		"prompts_empty_search", "prompts_exit_intent", "prompts_time_based",
		"alerts_created", "alerts_conflict",
		"applications_sent", "applications_blocked",
		"saves", "save_rollbacks",
		"sessions_opened", "sessions_swept",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrSearchIssued()       { metrics.SearchesIssued.Add(1) }
func IncrSearchCommitted()    { metrics.SearchesCommitted.Add(1) }
func IncrSearchStale()        { metrics.SearchesStale.Add(1) }
func IncrSearchFailed()       { metrics.SearchesFailed.Add(1) }
func IncrAnalyticsSent()      { metrics.AnalyticsSent.Add(1) }
func IncrAnalyticsDropped()   { metrics.AnalyticsDropped.Add(1) }
func IncrAlertCreated()       { metrics.AlertsCreated.Add(1) }
func IncrAlertConflict()      { metrics.AlertsConflict.Add(1) }
func IncrApplicationSent()    { metrics.ApplicationsSent.Add(1) }
func IncrApplicationBlocked() { metrics.ApplicationsBlocked.Add(1) }
func IncrSave()               { metrics.Saves.Add(1) }
func IncrSaveRollback()       { metrics.SaveRollbacks.Add(1) }
func IncrSessionOpened()      { metrics.SessionsOpened.Add(1) }
func AddSessionsSwept(n int)  { metrics.SessionsSwept.Add(int64(n)) }

// IncrPrompt counts a shown prompt by trigger name.
func IncrPrompt(trigger string) {
	switch trigger {
	case "empty_search":
		metrics.PromptsEmptySearch.Add(1)
	case "exit_intent":
		metrics.PromptsExitIntent.Add(1)
	case "time_based":
		metrics.PromptsTimeBased.Add(1)
	}
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	if elapsed := time.Since(start); elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
