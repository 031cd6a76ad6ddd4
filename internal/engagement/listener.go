package engagement

import "github.com/anatolykoptev/go_jobboard/internal/engine"

// Listener is the registered exit-intent handler of one Engine. It owns the
// debounce timer; releasing the listener stops it.
// All methods are called with the engine's mutex held.
type Listener struct {
	e        *Engine
	debounce engine.Timer
	gen      int
	released bool
}

// arm starts the debounce unless one is already pending.
func (l *Listener) arm() {
	if l.released || l.debounce != nil {
		return
	}
	l.gen++
	gen := l.gen
	l.debounce = l.e.clock.AfterFunc(l.e.cfg.ExitDebounce, func() { l.e.exitIntent(l, gen) })
}

func (l *Listener) disarm() {
	if l.debounce != nil {
		l.debounce.Stop()
		l.debounce = nil
	}
	l.gen++
}

func (l *Listener) release() {
	l.disarm()
	l.released = true
}
