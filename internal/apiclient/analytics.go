package apiclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// EventSender delivers one analytics event.
type EventSender interface {
	TrackSearch(ctx context.Context, ev SearchEvent) error
}

// Analytics sends search events in the background. Delivery is best effort:
// events beyond the rate budget are dropped and send failures are ignored.
type Analytics struct {
	sender  EventSender
	limiter *rate.Limiter
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAnalytics builds an Analytics reporter allowing rps events per second
// with the given burst.
func NewAnalytics(sender EventSender, rps float64, burst int) *Analytics {
	return &Analytics{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1)),
		timeout: 5 * time.Second,
	}
}

// Track queues ev for delivery and returns immediately.
func (a *Analytics) Track(ev SearchEvent) {
	if a == nil {
		return
	}
	if !a.limiter.Allow() {
		engine.IncrAnalyticsDropped()
		slog.Debug("analytics: event dropped", slog.String("query", ev.Query))
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sender.TrackSearch(ctx, ev); err != nil {
			slog.Debug("analytics: send failed", slog.Any("error", err))
			return
		}
		engine.IncrAnalyticsSent()
	}()
}

// Wait blocks until every queued event has been attempted.
func (a *Analytics) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
