package bt

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/zeusync/behave/internal/core/observability/log"
)

// Handle identifies a node inside one bound tree instance.
type Handle struct {
	// ID is the node's pre-order position, starting at 0 for the root.
	ID    int
	Path  string
	Depth int
}

// Binder carries the per-instance services nodes receive in OnPrepare: the
// agent's blackboard, a logger, the game clock and a seeded random source.
type Binder struct {
	Blackboard Blackboard
	Logger     log.Log

	seed int64
	now  time.Duration
	dt   time.Duration
}

// NewBinder creates a binder. Nil blackboard or logger are replaced with a
// fresh blackboard and a no-op logger.
func NewBinder(bb Blackboard, logger log.Log, seed int64) *Binder {
	if bb == nil {
		bb = NewBlackboard()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Binder{Blackboard: bb, Logger: logger, seed: seed}
}

// Now is the game time accumulated from frame deltas since the tree was bound.
func (b *Binder) Now() time.Duration {
	if b == nil {
		return 0
	}
	return b.now
}

// DeltaTime is the delta of the frame currently being ticked.
func (b *Binder) DeltaTime() time.Duration {
	if b == nil {
		return 0
	}
	return b.dt
}

// Seed returns the seed random sources are derived from.
func (b *Binder) Seed() int64 { return b.seed }

// Rand returns a random source private to the node at h. The same seed and
// tree shape always yield the same sequence.
func (b *Binder) Rand(h Handle) *rand.Rand {
	return rand.New(rand.NewSource(b.seed*1_000_003 + int64(h.ID)))
}

func (b *Binder) advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	b.dt = dt
	b.now += dt
}

// Bind walks the tree rooted at root, assigns handles in pre-order and calls
// OnPrepare on every Preparer. A node reachable twice is rejected because
// node state belongs to exactly one position in one instance.
func (b *Binder) Bind(root Node) (map[Node]Handle, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	handles := make(map[Node]Handle)
	order := make([]Node, 0, 16)

	var walk func(n Node, parent string, depth int) error
	walk = func(n Node, parent string, depth int) error {
		if n == nil {
			return fmt.Errorf("%w under %q", ErrNilNode, parent)
		}
		if _, seen := handles[n]; seen {
			return fmt.Errorf("%w: %s", ErrSharedNode, n.Name())
		}
		path := n.Name()
		if parent != "" {
			path = parent + "/" + path
		}
		handles[n] = Handle{ID: len(order), Path: path, Depth: depth}
		order = append(order, n)
		if c, ok := n.(Composite); ok {
			for _, ch := range c.Children() {
				if err := walk(ch, path, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root, "", 0); err != nil {
		return nil, err
	}

	for _, n := range order {
		if p, ok := n.(Preparer); ok {
			p.OnPrepare(b, handles[n])
		}
	}
	return handles, nil
}
