package bt

import (
	"fmt"
	"math/rand"
	"strings"
)

// LoopMode selects how a Scheduled composite walks its children across
// activations.
type LoopMode uint8

const (
	// LoopRepeat visits children in order and wraps to the first.
	LoopRepeat LoopMode = iota
	// LoopPingPong walks forward then backward without repeating the
	// endpoints, e.g. 0,1,2,3,2,1,0,1,...
	LoopPingPong
	// LoopRandom visits every child once per cycle in a shuffled order.
	LoopRandom
)

func (m LoopMode) String() string {
	switch m {
	case LoopRepeat:
		return "repeat"
	case LoopPingPong:
		return "ping_pong"
	case LoopRandom:
		return "random"
	default:
		return fmt.Sprintf("loop_mode(%d)", uint8(m))
	}
}

// ParseLoopMode accepts the names produced by String. Hyphens and case are
// ignored so "PingPong" and "ping-pong" are also understood.
func ParseLoopMode(s string) (LoopMode, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch norm {
	case "", "repeat":
		return LoopRepeat, nil
	case "pingpong":
		return LoopPingPong, nil
	case "random":
		return LoopRandom, nil
	default:
		return LoopRepeat, fmt.Errorf("bt: unknown loop mode %q", s)
	}
}

// ScheduledConfig configures a Scheduled composite.
type ScheduledConfig struct {
	LoopMode     LoopMode
	ResetOnAbort bool
	// Rand drives LoopRandom. When nil the source is taken from the Binder
	// at prepare time.
	Rand *rand.Rand
}

type scheduleFingerprint struct {
	mode  LoopMode
	count int
}

// Scheduled runs exactly one child per activation and remembers where it
// stopped, so successive activations walk the children according to the
// loop mode. The child's result becomes the composite's result.
type Scheduled struct {
	CompositeBase

	mode         LoopMode
	resetOnAbort bool

	revert      bool
	permutation []int
	rng         *rand.Rand
	injected    bool

	// fingerprint of the configuration init last ran against.
	applied     scheduleFingerprint
	initialized bool
}

var (
	_ Composite = (*Scheduled)(nil)
	_ Preparer  = (*Scheduled)(nil)
	_ Kinder    = (*Scheduled)(nil)
)

// NewScheduled creates a scheduled composite. It is usable without a
// Binder; a nil cfg.Rand then falls back to a source seeded with 1.
func NewScheduled(name string, cfg ScheduledConfig, children ...Node) *Scheduled {
	s := &Scheduled{
		CompositeBase: NewCompositeBase(name, children...),
		mode:          cfg.LoopMode,
		resetOnAbort:  cfg.ResetOnAbort,
		rng:           cfg.Rand,
		injected:      cfg.Rand != nil,
	}
	s.init()
	return s
}

func (s *Scheduled) Kind() string { return "scheduled" }

// OnPrepare takes a per-instance random source from the binder unless one
// was injected, then initialises the cursor.
func (s *Scheduled) OnPrepare(b *Binder, h Handle) {
	if !s.injected && b != nil {
		s.rng = b.Rand(h)
	}
	s.init()
}

func (s *Scheduled) current() scheduleFingerprint {
	return scheduleFingerprint{mode: s.mode, count: len(s.children)}
}

// init resets the cursor for the current configuration and leaves the
// traversal direction as it was.
func (s *Scheduled) init() {
	n := len(s.children)
	if s.mode == LoopRandom && n > 0 {
		if cap(s.permutation) < n {
			s.permutation = make([]int, n)
		}
		s.permutation = s.permutation[:n]
		for i := range s.permutation {
			s.permutation[i] = i
		}
	}
	s.execIndex = 0
	s.applied = s.current()
	s.initialized = true
	s.drawAt(0)
}

func (s *Scheduled) random() bool {
	return s.mode == LoopRandom && len(s.permutation) == len(s.children) && len(s.children) > 0
}

// drawAt fixes the permutation entry for position pos by swapping in one of
// the entries not yet visited this cycle (partial Fisher-Yates). Drawing on
// arrival keeps GetNextChildTask a pure read.
func (s *Scheduled) drawAt(pos int) {
	if !s.random() {
		return
	}
	n := len(s.permutation)
	if pos < 0 || pos >= n {
		invariant("%s: permutation position %d out of range [0,%d)", s.name, pos, n)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	j := pos + s.rng.Intn(n-pos)
	s.permutation[pos], s.permutation[j] = s.permutation[j], s.permutation[pos]
}

// GetNextChildTask maps the cursor through the permutation in random mode
// and through the traversal direction otherwise.
func (s *Scheduled) GetNextChildTask() Node {
	n := len(s.children)
	if n == 0 {
		invariant("%s: no children to schedule", s.name)
	}
	i := s.execIndex
	if s.random() {
		if i < 0 || i >= n {
			invariant("%s: child index %d out of range [0,%d)", s.name, i, n)
		}
		i = s.permutation[i]
	}
	if s.revert {
		return s.childAt(n - 1 - i)
	}
	return s.childAt(i)
}

// OnStart reinitialises when the loop mode or child count changed since the
// last init, e.g. after a live edit.
func (s *Scheduled) OnStart() State {
	if !s.initialized || s.applied != s.current() {
		s.init()
	}
	return s.CompositeBase.OnStart()
}

// OnReturn advances the cursor and passes the child's result through.
func (s *Scheduled) OnReturn(prior State) State {
	n := len(s.children)
	if n == 0 {
		return prior
	}
	s.execIndex = (s.execIndex + 1) % n
	if s.mode == LoopPingPong && n > 2 && s.execIndex == 0 {
		s.revert = !s.revert
		s.execIndex++
	}
	s.drawAt(s.execIndex)
	return prior
}

// OnAbort rewinds the cursor when configured to. It always fails.
func (s *Scheduled) OnAbort() State {
	if s.resetOnAbort {
		s.execIndex = 0
		s.revert = false
		s.drawAt(0)
	}
	return StateFailed
}

// SetLoopMode changes the loop mode. The cursor is reinitialised on the
// next OnStart.
func (s *Scheduled) SetLoopMode(m LoopMode) { s.mode = m }

func (s *Scheduled) SetResetOnAbort(v bool) { s.resetOnAbort = v }

func (s *Scheduled) LoopMode() LoopMode { return s.mode }

func (s *Scheduled) ResetOnAbort() bool { return s.resetOnAbort }

// Reversed reports whether ping-pong traversal is currently walking
// backwards.
func (s *Scheduled) Reversed() bool { return s.revert }

// Permutation returns a copy of the random-mode visiting order.
func (s *Scheduled) Permutation() []int {
	out := make([]int, len(s.permutation))
	copy(out, s.permutation)
	return out
}
