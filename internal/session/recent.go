package session

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_jobboard/internal/store"
)

const recentQueueSize = 16

// recentWrite is a queued PushRecentSearch, or a barrier when done is set.
type recentWrite struct {
	search store.RecentSearch
	done   chan struct{}
}

// recentWriter applies one session's recent-search writes in order on a
// single goroutine so the search path never waits on the store.
type recentWriter struct {
	store     store.Store
	visitorID string

	queue  chan recentWrite
	quit   chan struct{}
	exited chan struct{}
}

func newRecentWriter(st store.Store, visitorID string) *recentWriter {
	w := &recentWriter{
		store:     st,
		visitorID: visitorID,
		queue:     make(chan recentWrite, recentQueueSize),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// push enqueues rs without blocking. A full queue drops it.
func (w *recentWriter) push(rs store.RecentSearch) {
	select {
	case <-w.quit:
	case w.queue <- recentWrite{search: rs}:
	default:
		slog.Warn("recent search dropped, queue full", slog.String("visitor", w.visitorID))
	}
}

// flush waits until every write queued before it has been applied.
func (w *recentWriter) flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case w.queue <- recentWrite{done: done}:
	case <-w.quit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops the writer after applying whatever is already queued.
func (w *recentWriter) close() {
	close(w.quit)
	<-w.exited
}

func (w *recentWriter) loop() {
	defer close(w.exited)
	for {
		select {
		case wr := <-w.queue:
			w.apply(wr)
		case <-w.quit:
			for {
				select {
				case wr := <-w.queue:
					w.apply(wr)
				default:
					return
				}
			}
		}
	}
}

func (w *recentWriter) apply(wr recentWrite) {
	if wr.done != nil {
		close(wr.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := w.store.PushRecentSearch(ctx, w.visitorID, wr.search); err != nil {
		slog.Warn("recent search not recorded",
			slog.String("visitor", w.visitorID),
			slog.Any("error", err),
		)
	}
}
