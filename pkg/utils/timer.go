package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed step of a run.
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// PhaseTimer stops a single phase; use it with defer.
type PhaseTimer struct {
	timer *Timer
	name  string
}

// Stop records the phase duration. Only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.StopPhase(pt.name)
}

// Timer records named phases in start order. It is safe for concurrent use
// so export goroutines can report into the run's timer.
type Timer struct {
	mu     sync.Mutex
	name   string
	start  time.Time
	phases map[string]*Phase
	order  []string
	logger Logger
	clock  Clock
}

// TimerOption configures a Timer.
type TimerOption func(*Timer)

// WithLogger logs every stopped phase at info level.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a timer; its total duration counts from now.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:   name,
		phases: make(map[string]*Phase),
		clock:  NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins a phase. Restarting a finished phase resets it.
func (t *Timer) Start(name string) *PhaseTimer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.phases[name]; !ok {
		t.order = append(t.order, name)
	}
	t.phases[name] = &Phase{Name: name, Start: t.clock.Now()}
	return &PhaseTimer{timer: t, name: name}
}

// StopPhase ends a phase and returns its duration.
func (t *Timer) StopPhase(name string) time.Duration {
	t.mu.Lock()
	p, ok := t.phases[name]
	if !ok {
		t.mu.Unlock()
		return 0
	}
	if p.done {
		t.mu.Unlock()
		return p.Duration
	}
	p.Duration = t.clock.Since(p.Start)
	p.done = true
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.WithFields(map[string]interface{}{
			"phase":   name,
			"elapsed": p.Duration.String(),
		}).Info("[%s] phase %s finished", t.name, name)
	}
	return p.Duration
}

// Duration returns the recorded duration of a finished phase.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.phases[name]; ok && p.done {
		return p.Duration
	}
	return 0
}

// Total returns the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Phases returns finished phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, 0, len(t.order))
	for _, name := range t.order {
		if p := t.phases[name]; p.done {
			out = append(out, *p)
		}
	}
	return out
}

// Milliseconds returns finished phase durations keyed by name.
func (t *Timer) Milliseconds() map[string]int64 {
	out := make(map[string]int64)
	for _, p := range t.Phases() {
		out[p.Name] = p.Duration.Milliseconds()
	}
	return out
}

// Summary renders the finished phases on one line.
func (t *Timer) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s total=%s", t.name, t.Total().Round(time.Millisecond))
	for _, p := range t.Phases() {
		fmt.Fprintf(&sb, " %s=%s", p.Name, p.Duration.Round(time.Millisecond))
	}
	return sb.String()
}
