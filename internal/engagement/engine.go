// Package engagement decides when to show the job-alert capture prompt.
//
// Three triggers share one session state: repeated empty searches, exit
// intent (pointer leaving through the top of the viewport) and time spent
// searching. At most one prompt is shown per session, and none at all for
// authenticated or already subscribed visitors.
package engagement

import (
	"log/slog"
	"sync"
	"time"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
	"github.com/anatolykoptev/go_jobboard/internal/query"
	"github.com/anatolykoptev/go_jobboard/internal/results"
)

// Trigger names the condition that opened a prompt.
type Trigger string

const (
	TriggerEmptySearch Trigger = "empty_search"
	TriggerExitIntent  Trigger = "exit_intent"
	TriggerTimeBased   Trigger = "time_based"
)

// Config holds the trigger thresholds.
type Config struct {
	MinSessionAge        time.Duration // no prompt before the session is this old
	EmptySearchThreshold int
	TimeBasedAge         time.Duration // session age the time-based trigger must exceed
	TimeBasedSearches    int
	TimeBasedCheckDelay  time.Duration // delay between a search and its time-based check
	ExitDebounce         time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinSessionAge:        10 * time.Second,
		EmptySearchThreshold: 2,
		TimeBasedAge:         120 * time.Second,
		TimeBasedSearches:    3,
		TimeBasedCheckDelay:  time.Second,
		ExitDebounce:         500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinSessionAge <= 0 {
		c.MinSessionAge = d.MinSessionAge
	}
	if c.EmptySearchThreshold <= 0 {
		c.EmptySearchThreshold = d.EmptySearchThreshold
	}
	if c.TimeBasedAge <= 0 {
		c.TimeBasedAge = d.TimeBasedAge
	}
	if c.TimeBasedSearches <= 0 {
		c.TimeBasedSearches = d.TimeBasedSearches
	}
	if c.TimeBasedCheckDelay <= 0 {
		c.TimeBasedCheckDelay = d.TimeBasedCheckDelay
	}
	if c.ExitDebounce <= 0 {
		c.ExitDebounce = d.ExitDebounce
	}
	return c
}

// Prompt is an open capture prompt.
type Prompt struct {
	Trigger Trigger           `json:"trigger"`
	Query   query.SearchQuery `json:"searchContext"`
	ShownAt time.Time         `json:"shownAt"`
}

// State is a copy of the session's engagement counters.
type State struct {
	SessionStart     time.Time     `json:"sessionStart"`
	SessionAge       time.Duration `json:"sessionAge"`
	SearchCount      int           `json:"searchCount"`
	EmptySearchCount int           `json:"emptySearchCount"`
	ExitIntentFired  bool          `json:"exitIntentFired"`
	TimeBasedFired   bool          `json:"timeBasedFired"`
	ModalShown       bool          `json:"modalShown"`
	Trigger          Trigger       `json:"trigger,omitempty"`
	Authenticated    bool          `json:"authenticated"`
	Subscribed       bool          `json:"subscribed"`
	Listening        bool          `json:"listening"`
}

// Engine holds one session's engagement state.
// It implements results.Observer so it can be attached to a Controller.
type Engine struct {
	cfg   Config
	clock engine.Clock

	mu               sync.Mutex
	start            time.Time
	searchCount      int
	emptySearchCount int
	exitIntentFired  bool
	timeBasedFired   bool
	modalShown       bool
	authenticated    bool
	subscribed       bool
	closed           bool
	lastQuery        query.SearchQuery
	prompt           *Prompt
	trigger          Trigger
	listener         *Listener
	timeCheck        engine.Timer
	timeGen          int
}

var _ results.Observer = (*Engine)(nil)

// New starts a session at clock.Now(). subscribed is the durable flag read
// from the visitor store.
func New(cfg Config, clock engine.Clock, subscribed, authenticated bool) *Engine {
	if clock == nil {
		clock = engine.SystemClock()
	}
	e := &Engine{
		cfg:           cfg.withDefaults(),
		clock:         clock,
		start:         clock.Now(),
		subscribed:    subscribed,
		authenticated: authenticated,
	}
	e.mu.Lock()
	e.syncListenerLocked()
	e.mu.Unlock()
	return e
}

// SearchCommitted records a committed search. Load-more pages are not searches.
func (e *Engine) SearchCommitted(o results.Outcome) { e.RecordSearch(o) }

// RecordSearch counts a committed search and evaluates the empty-search and
// time-based triggers.
func (e *Engine) RecordSearch(o results.Outcome) {
	if o.Appended {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.searchCount++
	e.lastQuery = o.Query

	if o.Empty() {
		e.emptySearchCount++
		slog.Debug("engagement: empty search", slog.Int("count", e.emptySearchCount))
		if e.emptySearchCount >= e.cfg.EmptySearchThreshold && e.canPromptLocked() {
			e.showLocked(TriggerEmptySearch)
			return
		}
	}
	e.scheduleTimeCheckLocked()
}

// scheduleTimeCheckLocked arms the time-based check once enough searches
// are recorded: shortly after the search, or just past the age boundary.
func (e *Engine) scheduleTimeCheckLocked() {
	if e.timeBasedFired || e.searchCount < e.cfg.TimeBasedSearches || !e.eligibleLocked() {
		return
	}
	delay := e.cfg.TimeBasedCheckDelay
	if remaining := e.cfg.TimeBasedAge - e.ageLocked(); remaining >= 0 {
		delay += remaining
	}
	e.stopTimeCheckLocked()
	e.timeGen++
	gen := e.timeGen
	e.timeCheck = e.clock.AfterFunc(delay, func() { e.checkTime(gen) })
}

func (e *Engine) checkTime(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timeGen || e.closed {
		return
	}
	e.timeCheck = nil
	if e.timeBasedFired || !e.canPromptLocked() {
		return
	}
	if e.ageLocked() > e.cfg.TimeBasedAge && e.searchCount >= e.cfg.TimeBasedSearches {
		e.showLocked(TriggerTimeBased)
	}
}

func (e *Engine) stopTimeCheckLocked() {
	if e.timeCheck != nil {
		e.timeCheck.Stop()
		e.timeCheck = nil
	}
	e.timeGen++
}

// PointerLeave reports the pointer leaving the document at viewport height y.
// Only a desktop exit through the top edge starts the exit-intent debounce.
func (e *Engine) PointerLeave(y float64, desktop bool) {
	if !desktop || y > 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil || e.exitIntentFired {
		return
	}
	e.listener.arm()
}

// PointerEnter reports the pointer re-entering the document, cancelling a
// pending exit intent.
func (e *Engine) PointerEnter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		e.listener.disarm()
	}
}

func (e *Engine) exitIntent(l *Listener, gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != l || l.gen != gen || e.closed {
		return
	}
	l.debounce = nil
	if e.exitIntentFired || !e.canPromptLocked() {
		return
	}
	e.exitIntentFired = true
	e.showLocked(TriggerExitIntent)
}

// SetAuthenticated updates the visitor's auth state. Authenticated visitors
// are never prompted and hold no exit-intent listener.
func (e *Engine) SetAuthenticated(ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authenticated = ok
	if ok {
		e.prompt = nil
		e.stopTimeCheckLocked()
	}
	e.syncListenerLocked()
}

// MarkSubscribed records a successful subscription and closes the prompt.
// Persisting the durable flag is the caller's job.
func (e *Engine) MarkSubscribed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribed = true
	e.prompt = nil
	e.stopTimeCheckLocked()
	e.syncListenerLocked()
	slog.Info("engagement: visitor subscribed", slog.String("trigger", string(e.trigger)))
}

// Dismiss closes the prompt without subscribing. No trigger fires again
// in this session.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompt = nil
	e.modalShown = true
	e.stopTimeCheckLocked()
	e.syncListenerLocked()
	slog.Debug("engagement: prompt dismissed", slog.String("trigger", string(e.trigger)))
}

// Prompt returns the open prompt, if any.
func (e *Engine) Prompt() (Prompt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prompt == nil {
		return Prompt{}, false
	}
	return *e.prompt, true
}

// Listening reports whether the exit-intent listener is registered.
func (e *Engine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener != nil
}

// Stats returns a copy of the session counters.
func (e *Engine) Stats() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		SessionStart:     e.start,
		SessionAge:       e.ageLocked(),
		SearchCount:      e.searchCount,
		EmptySearchCount: e.emptySearchCount,
		ExitIntentFired:  e.exitIntentFired,
		TimeBasedFired:   e.timeBasedFired,
		ModalShown:       e.modalShown,
		Trigger:          e.trigger,
		Authenticated:    e.authenticated,
		Subscribed:       e.subscribed,
		Listening:        e.listener != nil,
	}
}

// Close releases the listener and cancels every timer. It is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.prompt = nil
	e.stopTimeCheckLocked()
	e.syncListenerLocked()
}

func (e *Engine) ageLocked() time.Duration {
	return e.clock.Now().Sub(e.start)
}

// eligibleLocked reports whether any trigger could still fire, ignoring age.
func (e *Engine) eligibleLocked() bool {
	return !e.closed && !e.authenticated && !e.subscribed && !e.modalShown
}

func (e *Engine) canPromptLocked() bool {
	return e.eligibleLocked() && e.ageLocked() >= e.cfg.MinSessionAge
}

func (e *Engine) showLocked(t Trigger) {
	switch t {
	case TriggerTimeBased:
		e.timeBasedFired = true
	case TriggerExitIntent:
		e.exitIntentFired = true
	}
	e.modalShown = true
	e.trigger = t
	e.prompt = &Prompt{Trigger: t, Query: e.lastQuery, ShownAt: e.clock.Now()}
	e.stopTimeCheckLocked()
	e.syncListenerLocked()
	engine.IncrPrompt(string(t))
	slog.Info("engagement: prompt shown",
		slog.String("trigger", string(t)),
		slog.Int("searches", e.searchCount),
		slog.Int("empty_searches", e.emptySearchCount),
		slog.Duration("session_age", e.ageLocked()))
}

// syncListenerLocked registers the exit-intent listener while exit intent
// can still open a prompt and releases it otherwise.
func (e *Engine) syncListenerLocked() {
	want := e.eligibleLocked() && !e.exitIntentFired
	switch {
	case want && e.listener == nil:
		e.listener = &Listener{e: e}
	case !want && e.listener != nil:
		e.listener.release()
		e.listener = nil
	}
}
