package bt

import "time"

// Inverter swaps Success and Failed of its only child.
type Inverter struct {
	CompositeBase
}

var _ Composite = (*Inverter)(nil)

func NewInverter(name string, child Node) *Inverter {
	var children []Node
	if child != nil {
		children = []Node{child}
	}
	return &Inverter{CompositeBase: NewCompositeBase(name, children...)}
}

func (d *Inverter) Kind() string { return "inverter" }

func (d *Inverter) OnStart() State {
	if len(d.children) == 0 {
		return StateFailed
	}
	return StateRunning
}

func (d *Inverter) OnReturn(prior State) State {
	switch prior {
	case StateSuccess:
		return StateFailed
	case StateFailed:
		return StateSuccess
	default:
		return prior
	}
}

// Timeout fails its child once the game clock has advanced by at least
// Duration since the decorator started. The runner notices through
// Interrupted, aborts the child subtree and returns StateFailed to it.
type Timeout struct {
	CompositeBase

	duration  time.Duration
	binder    *Binder
	startedAt time.Duration
}

var (
	_ Composite   = (*Timeout)(nil)
	_ Interrupter = (*Timeout)(nil)
	_ Preparer    = (*Timeout)(nil)
)

func NewTimeout(name string, d time.Duration, child Node) *Timeout {
	var children []Node
	if child != nil {
		children = []Node{child}
	}
	return &Timeout{CompositeBase: NewCompositeBase(name, children...), duration: d}
}

func (d *Timeout) Kind() string { return "timeout" }

func (d *Timeout) Duration() time.Duration { return d.duration }

// SetDuration takes effect from the next poll.
func (d *Timeout) SetDuration(v time.Duration) { d.duration = v }

func (d *Timeout) OnPrepare(b *Binder, _ Handle) { d.binder = b }

func (d *Timeout) OnStart() State {
	if len(d.children) == 0 {
		return StateFailed
	}
	d.startedAt = d.binder.Now()
	return StateRunning
}

func (d *Timeout) Interrupted() bool {
	return d.binder.Now()-d.startedAt >= d.duration
}
