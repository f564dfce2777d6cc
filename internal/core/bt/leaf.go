package bt

import (
	"time"

	"github.com/zeusync/behave/internal/core/observability/log"
)

// LastLogMessageKey is the blackboard key the Log leaf records into.
const LastLogMessageKey = "last_log_message"

// ActionFunc is the body of an Action leaf. It runs on start and on every
// resume while it keeps returning StateRunning.
type ActionFunc func(b *Binder) State

// Action is a leaf backed by functions.
type Action struct {
	name   string
	start  ActionFunc
	resume ActionFunc
	abort  func(b *Binder)
	binder *Binder
}

var _ Preparer = (*Action)(nil)

// NewAction creates an action that calls fn on start and on resume. A nil
// fn succeeds immediately.
func NewAction(name string, fn ActionFunc) *Action {
	if fn == nil {
		fn = func(*Binder) State { return StateSuccess }
	}
	return &Action{name: name, start: fn, resume: fn}
}

// WithResume uses fn instead of the start function when resuming.
func (a *Action) WithResume(fn ActionFunc) *Action {
	if fn != nil {
		a.resume = fn
	}
	return a
}

// WithAbort registers a cleanup hook called when the action is aborted.
func (a *Action) WithAbort(fn func(b *Binder)) *Action {
	a.abort = fn
	return a
}

func (a *Action) Name() string                  { return a.name }
func (a *Action) Kind() string                  { return "action" }
func (a *Action) OnPrepare(b *Binder, _ Handle) { a.binder = b }
func (a *Action) OnStart() State                { return a.start(a.binder) }

func (a *Action) OnReturn(prior State) State {
	if prior != StateRunning {
		return prior
	}
	return a.resume(a.binder)
}

func (a *Action) OnAbort() State {
	if a.abort != nil {
		a.abort(a.binder)
	}
	return StateFailed
}

// Condition is a leaf that succeeds when its predicate holds.
type Condition struct {
	name   string
	pred   func(b *Binder) bool
	binder *Binder
}

var _ Preparer = (*Condition)(nil)

func NewCondition(name string, pred func(b *Binder) bool) *Condition {
	return &Condition{name: name, pred: pred}
}

func (c *Condition) Name() string                  { return c.name }
func (c *Condition) Kind() string                  { return "condition" }
func (c *Condition) OnPrepare(b *Binder, _ Handle) { c.binder = b }

func (c *Condition) OnStart() State {
	if c.pred != nil && c.pred(c.binder) {
		return StateSuccess
	}
	return StateFailed
}

func (c *Condition) OnReturn(prior State) State { return prior }
func (c *Condition) OnAbort() State             { return StateFailed }

// Wait stays Running until the game clock has advanced by Duration.
type Wait struct {
	name     string
	duration time.Duration
	binder   *Binder
	start    time.Duration
}

var _ Preparer = (*Wait)(nil)

func NewWait(name string, d time.Duration) *Wait {
	return &Wait{name: name, duration: d}
}

func (w *Wait) Name() string                  { return w.name }
func (w *Wait) Kind() string                  { return "wait" }
func (w *Wait) OnPrepare(b *Binder, _ Handle) { w.binder = b }

func (w *Wait) OnStart() State {
	w.start = w.binder.Now()
	if w.duration <= 0 {
		return StateSuccess
	}
	return StateRunning
}

func (w *Wait) OnReturn(prior State) State {
	if prior != StateRunning {
		return prior
	}
	if w.binder.Now()-w.start >= w.duration {
		return StateSuccess
	}
	return StateRunning
}

func (w *Wait) OnAbort() State { return StateFailed }

// Log writes a message through the binder's logger and records it on the
// blackboard. It always succeeds.
type Log struct {
	name    string
	message string
	level   log.Level
	binder  *Binder
}

var _ Preparer = (*Log)(nil)

func NewLog(name, message string, level log.Level) *Log {
	return &Log{name: name, message: message, level: level}
}

func (l *Log) Name() string                  { return l.name }
func (l *Log) Kind() string                  { return "log" }
func (l *Log) OnPrepare(b *Binder, _ Handle) { l.binder = b }

func (l *Log) OnStart() State {
	if l.binder == nil {
		return StateSuccess
	}
	l.binder.Logger.Log(l.level, l.message, log.String("node", l.name))
	l.binder.Blackboard.Set(LastLogMessageKey, l.message)
	return StateSuccess
}

func (l *Log) OnReturn(prior State) State { return prior }
func (l *Log) OnAbort() State             { return StateFailed }
