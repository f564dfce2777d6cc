package loader

import (
	"fmt"

	"github.com/zeusync/behave/internal/core/bt"
)

// ApplyLive patches the live-editable parameters of cfg into t without
// rebuilding it: loop mode and abort reset of scheduled nodes and timeout
// durations. Running state is kept; a scheduled node whose mode changed
// reinitialises on its next start. It returns the number of nodes changed,
// or ErrShapeChanged when cfg needs a full rebuild. On error nothing is
// changed.
func ApplyLive(t *Tree, cfg *Config) (int, error) {
	if t == nil || cfg == nil {
		return 0, fmt.Errorf("%w: nil tree or config", ErrShapeChanged)
	}
	if t.Shape != cfg.Shape() {
		return 0, ErrShapeChanged
	}

	// Resolve every edit before touching the tree so a bad parameter
	// leaves it exactly as it was.
	var edits []func() bool
	for name, nc := range cfg.Nodes {
		switch node := t.Nodes[name].(type) {
		case *bt.Scheduled:
			want, err := scheduledConfig(nc.Params)
			if err != nil {
				return 0, fmt.Errorf("node %q: %w", name, err)
			}
			edits = append(edits, func() bool {
				if node.LoopMode() == want.LoopMode && node.ResetOnAbort() == want.ResetOnAbort {
					return false
				}
				node.SetLoopMode(want.LoopMode)
				node.SetResetOnAbort(want.ResetOnAbort)
				return true
			})
		case *bt.Timeout:
			d, ok, err := nc.Params.Duration("duration")
			if err != nil {
				return 0, fmt.Errorf("node %q: %w", name, err)
			}
			if !ok {
				continue
			}
			edits = append(edits, func() bool {
				if node.Duration() == d {
					return false
				}
				node.SetDuration(d)
				return true
			})
		}
	}

	changed := 0
	for _, apply := range edits {
		if apply() {
			changed++
		}
	}
	return changed, nil
}
