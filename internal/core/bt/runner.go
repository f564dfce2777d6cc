package bt

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/behave/internal/core/events/bus"
	"github.com/zeusync/behave/internal/core/observability/log"
)

// DefaultMaxStepsPerTick bounds how many nodes a single Tick may enter.
const DefaultMaxStepsPerTick = 1024

// RunnerOption is a function that configures a runner.
type RunnerOption func(*RunnerConfig)

// RunnerConfig holds the configuration for a Runner.
type RunnerConfig struct {
	ID              string           // Instance id, a new uuid when empty
	Logger          log.Log          // Logger handed to nodes through the binder
	Bus             bus.EventBus     // Optional event sink
	Blackboard      Blackboard       // Per-agent store, a fresh one when nil
	Seed            int64            // Seed every random source is derived from
	MaxStepsPerTick int              // Node entries allowed per tick
	Clock           func() time.Time // Wall clock used for tick timings
}

// WithID sets the runner's instance id.
func WithID(id string) RunnerOption {
	return func(c *RunnerConfig) { c.ID = id }
}

// WithLogger sets the logger.
func WithLogger(l log.Log) RunnerOption {
	return func(c *RunnerConfig) { c.Logger = l }
}

// WithBus attaches an event bus that receives node and tick events.
func WithBus(b bus.EventBus) RunnerOption {
	return func(c *RunnerConfig) { c.Bus = b }
}

// WithBlackboard sets the blackboard.
func WithBlackboard(bb Blackboard) RunnerOption {
	return func(c *RunnerConfig) { c.Blackboard = bb }
}

// WithSeed sets the seed random-mode composites derive their sources from.
func WithSeed(seed int64) RunnerOption {
	return func(c *RunnerConfig) { c.Seed = seed }
}

// WithClock replaces the wall clock used to time ticks.
func WithClock(now func() time.Time) RunnerOption {
	return func(c *RunnerConfig) { c.Clock = now }
}

// WithMaxSteps sets the per-tick node entry budget.
func WithMaxSteps(n int) RunnerOption {
	return func(c *RunnerConfig) { c.MaxStepsPerTick = n }
}

// Runner drives one tree instance, one Tick per frame. The active path
// from the root to the running node is kept on a stack between ticks, so a
// Running leaf is resumed exactly where it suspended.
//
// A Runner is safe for concurrent use, but ticks are serialised.
type Runner struct {
	mu sync.Mutex

	id       string
	root     Node
	binder   *Binder
	handles  map[Node]Handle
	logger   log.Log
	bus      bus.EventBus
	maxSteps int
	clock    func() time.Time

	stack []Node

	ticks  uint64
	cycles uint64
	last   State
}

// NewRunner binds root to a new instance and returns its runner.
func NewRunner(root Node, opts ...RunnerOption) (*Runner, error) {
	cfg := RunnerConfig{MaxStepsPerTick: DefaultMaxStepsPerTick}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.MaxStepsPerTick <= 0 {
		cfg.MaxStepsPerTick = DefaultMaxStepsPerTick
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	logger := cfg.Logger.With(log.String("runner", cfg.ID))
	binder := NewBinder(cfg.Blackboard, logger, cfg.Seed)
	handles, err := binder.Bind(root)
	if err != nil {
		return nil, err
	}

	return &Runner{
		id:       cfg.ID,
		root:     root,
		binder:   binder,
		handles:  handles,
		logger:   logger,
		bus:      cfg.Bus,
		maxSteps: cfg.MaxStepsPerTick,
		clock:    cfg.Clock,
		last:     StateRunning,
	}, nil
}

// Tick advances the game clock by dt and runs the tree until a leaf
// suspends, the root completes or the step budget is spent. It returns the
// root's terminal state on the tick the root completes and StateRunning
// otherwise. The next Tick after completion starts the root again.
//
// A cancelled ctx aborts the active path and its error is returned.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.clock()
	if err := ctx.Err(); err != nil {
		r.abortFrom(0)
		return StateFailed, err
	}

	r.binder.advance(dt)
	r.ticks++

	res, steps, err := r.run(ctx)
	r.publishTick(res, steps, r.clock().Sub(started))
	return res, err
}

func (r *Runner) run(ctx context.Context) (State, int, error) {
	if i := r.interrupted(); i >= 0 {
		n := r.stack[i]
		r.logger.Debug("interrupting subtree", log.String("node", r.path(n)))
		r.abortFrom(i + 1)
		st := n.OnReturn(StateFailed)
		r.emitNode(EventNodeReturned, n, st)
		if res, done := r.settle(st); done {
			return res, 0, nil
		}
	}

	for steps := 0; steps < r.maxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			r.abortFrom(0)
			return StateFailed, steps, err
		}

		var st State
		top := r.top()
		switch c, composite := top.(Composite); {
		case top == nil:
			st = r.enter(r.root)
		case composite:
			child := c.GetNextChildTask()
			if child == nil {
				invariant("%s: GetNextChildTask returned nil while running", top.Name())
			}
			st = r.enter(child)
		default:
			st = top.OnReturn(StateRunning)
			r.emitNode(EventNodeReturned, top, st)
		}

		if res, done := r.settle(st); done {
			return res, steps + 1, nil
		}
	}
	return StateRunning, r.maxSteps, nil
}

// settle reacts to the state reported by the node on top of the stack. A
// running composite lets the tick continue; a running leaf suspends the
// tick. Terminal states pop and bubble into the parent's OnReturn until a
// parent keeps running or the root completes.
func (r *Runner) settle(st State) (State, bool) {
	for {
		top := r.top()
		if st == StateRunning {
			if isComposite(top) {
				return StateRunning, false
			}
			return StateRunning, true
		}

		r.stack = r.stack[:len(r.stack)-1]
		if len(r.stack) == 0 {
			r.cycles++
			r.last = st
			r.logger.Debug("tree completed", log.Stringer("state", st), log.Uint64("cycle", r.cycles))
			r.emitNode(EventTreeCompleted, top, st)
			return st, true
		}

		parent := r.top()
		st = parent.OnReturn(st)
		r.emitNode(EventNodeReturned, parent, st)
	}
}

func (r *Runner) enter(n Node) State {
	r.stack = append(r.stack, n)
	st := n.OnStart()
	r.logger.Debug("node started", log.String("node", r.path(n)), log.Stringer("state", st))
	r.emitNode(EventNodeStarted, n, st)
	return st
}

// interrupted returns the stack index of the outermost interrupting node,
// or -1.
func (r *Runner) interrupted() int {
	for i, n := range r.stack {
		if in, ok := n.(Interrupter); ok && in.Interrupted() {
			return i
		}
	}
	return -1
}

// abortFrom aborts stack[i:] from the outermost node inwards and truncates
// the stack to i.
func (r *Runner) abortFrom(i int) {
	if i >= len(r.stack) {
		return
	}
	for _, n := range r.stack[i:] {
		n.OnAbort()
		r.emitNode(EventNodeAborted, n, StateFailed)
	}
	clear(r.stack[i:])
	r.stack = r.stack[:i]
}

func (r *Runner) top() Node {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Abort aborts the active path top-down. The next Tick starts the root
// again.
func (r *Runner) Abort() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) > 0 {
		r.logger.Warn("aborting tree", log.String("active", r.activePath()))
	}
	r.abortFrom(0)
	return StateFailed
}

// Replace aborts the current tree and binds root in its place. The
// blackboard, clock and counters are kept. On error the old tree stays
// installed, idle.
func (r *Runner) Replace(root Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles, err := r.binder.Bind(root)
	if err != nil {
		return err
	}
	r.abortFrom(0)
	r.root = root
	r.handles = handles
	r.logger.Info("tree replaced", log.String("root", root.Name()))
	return nil
}

func (r *Runner) ID() string { return r.id }

func (r *Runner) Root() Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// Binder returns the instance binder. Callers must not retain it across
// Replace if they rely on node handles.
func (r *Runner) Binder() *Binder { return r.binder }

func (r *Runner) Blackboard() Blackboard { return r.binder.Blackboard }

// Handle returns the handle n was bound with.
func (r *Runner) Handle(n Node) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[n]
	return h, ok
}

// Ticks is the number of ticks run so far.
func (r *Runner) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Cycles is the number of times the root has completed.
func (r *Runner) Cycles() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

// LastResult is the root's most recent terminal state, or StateRunning if
// it never completed.
func (r *Runner) LastResult() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ActivePath returns the slash-joined names of the nodes on the active
// path, root first. It is empty when the tree is idle.
func (r *Runner) ActivePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activePath()
}

func (r *Runner) activePath() string {
	names := make([]string, len(r.stack))
	for i, n := range r.stack {
		names[i] = n.Name()
	}
	return strings.Join(names, "/")
}

func (r *Runner) path(n Node) string {
	if h, ok := r.handles[n]; ok {
		return h.Path
	}
	return n.Name()
}

func (r *Runner) emitNode(typ string, n Node, st State) {
	if r.bus == nil || !r.bus.HasSubscribers(typ) {
		return
	}
	ev := NodeEvent{
		RunnerID: r.id,
		Node:     n.Name(),
		Path:     r.path(n),
		Kind:     KindOf(n),
		State:    st,
		Tick:     r.ticks,
	}
	if err := r.bus.Publish(bus.NewEvent(typ, r.id, ev)); err != nil {
		r.logger.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}

func (r *Runner) publishTick(st State, steps int, elapsed time.Duration) {
	if r.bus == nil || !r.bus.HasSubscribers(EventTickCompleted) {
		return
	}
	ev := TickEvent{
		RunnerID: r.id,
		Tick:     r.ticks,
		State:    st,
		Steps:    steps,
		Depth:    len(r.stack),
		Elapsed:  elapsed.Seconds(),
	}
	if err := r.bus.Publish(bus.NewEvent(EventTickCompleted, r.id, ev)); err != nil {
		r.logger.Warn("event handler failed", log.String("event", EventTickCompleted), log.Error(err))
	}
}
