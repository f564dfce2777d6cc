package loader

import (
	"fmt"

	"github.com/zeusync/behave/internal/core/bt"
)

// Tree is the result of building a Config: a fresh node graph ready to be
// bound to one runner. Build a new Tree per agent; node state is never
// shared between instances.
type Tree struct {
	Name  string
	Seed  int64
	Root  bt.Node
	Nodes map[string]bt.Node
	// Shape is the structural fingerprint of the config the tree was built
	// from.
	Shape uint64
}

// Build constructs the tree described by c. A node may be referenced only
// once; every runtime node has exactly one position in its tree.
func (c *Config) Build(reg *Registry) (*Tree, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = NewDefaultRegistry()
	}

	created := make(map[string]bt.Node, len(c.Nodes))
	visiting := make(map[string]bool)

	var buildNode func(name string) (bt.Node, error)
	buildNode = func(name string) (bt.Node, error) {
		if visiting[name] {
			return nil, fmt.Errorf("%w through %q", ErrCycle, name)
		}
		if _, ok := created[name]; ok {
			return nil, fmt.Errorf("%w: %q", bt.ErrSharedNode, name)
		}
		nc := c.Nodes[name]
		visiting[name] = true
		defer delete(visiting, name)

		children := func(names ...string) ([]bt.Node, error) {
			out := make([]bt.Node, 0, len(names))
			for _, chname := range names {
				ch, err := buildNode(chname)
				if err != nil {
					return nil, err
				}
				out = append(out, ch)
			}
			return out, nil
		}

		var (
			n   bt.Node
			err error
		)
		switch nc.Type {
		case TypeSequence, TypeSelector, TypeScheduled:
			var chs []bt.Node
			if chs, err = children(nc.Children...); err != nil {
				return nil, err
			}
			n, err = composite(name, nc, chs)
		case TypeInverter:
			var chs []bt.Node
			if chs, err = children(nc.Child); err != nil {
				return nil, err
			}
			n = bt.NewInverter(name, chs[0])
		case TypeTimeout:
			var chs []bt.Node
			if chs, err = children(nc.Child); err != nil {
				return nil, err
			}
			d, ok, derr := nc.Params.Duration("duration")
			if derr != nil {
				return nil, fmt.Errorf("node %q: %w", name, derr)
			}
			if !ok {
				return nil, fmt.Errorf("%w: timeout %q requires 'duration'", ErrBadParam, name)
			}
			n = bt.NewTimeout(name, d, chs[0])
		case TypeAction:
			n, err = reg.NewAction(nc.Action, name, nc.Params)
		case TypeCondition:
			n, err = reg.NewCondition(nc.Condition, name, nc.Params)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownType, nc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		created[name] = n
		return n, nil
	}

	root, err := buildNode(c.Root)
	if err != nil {
		return nil, err
	}
	return &Tree{
		Name:  c.Name,
		Seed:  c.Seed,
		Root:  root,
		Nodes: created,
		Shape: c.Shape(),
	}, nil
}

func composite(name string, nc NodeConfig, children []bt.Node) (bt.Node, error) {
	switch nc.Type {
	case TypeSequence:
		return bt.NewSequence(name, children...), nil
	case TypeSelector:
		return bt.NewSelector(name, children...), nil
	default:
		cfg, err := scheduledConfig(nc.Params)
		if err != nil {
			return nil, err
		}
		return bt.NewScheduled(name, cfg, children...), nil
	}
}

func scheduledConfig(p Params) (bt.ScheduledConfig, error) {
	mode, err := bt.ParseLoopMode(p.String("loop_mode", "repeat"))
	if err != nil {
		return bt.ScheduledConfig{}, fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	return bt.ScheduledConfig{
		LoopMode:     mode,
		ResetOnAbort: p.Bool("reset_on_abort", false),
	}, nil
}
