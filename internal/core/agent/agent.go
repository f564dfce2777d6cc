package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/bt/loader"
)

// Agent is one tree instance with its own blackboard. Ticks and reloads of
// one agent never overlap.
type Agent struct {
	id   string
	name string

	mu     sync.Mutex
	runner *bt.Runner
	tree   *loader.Tree
	last   bt.State
}

func (a *Agent) ID() string   { return a.id }
func (a *Agent) Name() string { return a.name }

// TreeName is the name of the tree config the agent runs.
func (a *Agent) TreeName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tree.Name
}

func (a *Agent) Runner() *bt.Runner        { return a.runner }
func (a *Agent) Blackboard() bt.Blackboard { return a.runner.Blackboard() }

// LastState is the state returned by the agent's most recent tick.
func (a *Agent) LastState() bt.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Tick runs one frame of the agent's tree.
func (a *Agent) Tick(ctx context.Context, dt time.Duration) (bt.State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, err := a.runner.Tick(ctx, dt)
	a.last = st
	if err != nil {
		return st, fmt.Errorf("agent %s: %w", a.id, err)
	}
	return st, nil
}

// reload patches cfg into the running tree when only live parameters
// changed and rebuilds the tree otherwise. rebuilt reports which one
// happened.
func (a *Agent) reload(cfg *loader.Config, reg *loader.Registry) (rebuilt bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := loader.ApplyLive(a.tree, cfg); err == nil {
		return false, nil
	}

	tree, err := cfg.Build(reg)
	if err != nil {
		return false, err
	}
	if err := a.runner.Replace(tree.Root); err != nil {
		return false, err
	}
	a.tree = tree
	return true, nil
}
