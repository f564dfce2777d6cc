package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/bt/loader"
	"github.com/zeusync/behave/internal/core/events/bus"
	"github.com/zeusync/behave/internal/core/observability/log"
)

var ErrAgentNotFound = errors.New("agent: not found")

// Config controls how the manager runs its agents.
type Config struct {
	// Workers bounds how many agents tick in parallel. Zero means
	// GOMAXPROCS.
	Workers int
	// MaxStepsPerTick is passed to every runner.
	MaxStepsPerTick int
}

// Manager owns a set of independent agents and ticks them together.
type Manager struct {
	mu      sync.RWMutex
	agents  map[string]*Agent
	spawned int64

	cfg     Config
	reg     *loader.Registry
	events  bus.EventBus
	metrics *Metrics
	logger  log.Log
}

// NewManager creates a manager. reg, events and metrics may be nil.
func NewManager(cfg Config, reg *loader.Registry, events bus.EventBus, metrics *Metrics, logger log.Log) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if reg == nil {
		reg = loader.NewDefaultRegistry()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		agents:  make(map[string]*Agent),
		cfg:     cfg,
		reg:     reg,
		events:  events,
		metrics: metrics,
		logger:  logger.Named("agents"),
	}
}

// Spawn builds a fresh instance of cfg and registers it as a new agent.
// initial seeds the agent's blackboard. Each agent gets its own seed
// derived from the tree seed so random composites differ between agents
// but stay reproducible.
func (m *Manager) Spawn(name string, cfg *loader.Config, initial map[string]any) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("agent: tree config is nil")
	}
	tree, err := cfg.Build(m.reg)
	if err != nil {
		return nil, fmt.Errorf("build tree %q: %w", cfg.Name, err)
	}

	bb := bt.NewBlackboard()
	for k, v := range initial {
		bb.Set(k, v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	if name == "" {
		name = fmt.Sprintf("%s-%d", cfg.Name, m.spawned)
	}
	opts := []bt.RunnerOption{
		bt.WithID(id),
		bt.WithBlackboard(bb),
		bt.WithSeed(tree.Seed + m.spawned),
		bt.WithLogger(m.logger.With(log.String("agent", name))),
		bt.WithMaxSteps(m.cfg.MaxStepsPerTick),
	}
	if m.events != nil {
		opts = append(opts, bt.WithBus(m.events))
	}
	runner, err := bt.NewRunner(tree.Root, opts...)
	if err != nil {
		return nil, err
	}

	a := &Agent{id: id, name: name, runner: runner, tree: tree, last: bt.StateRunning}
	m.agents[id] = a
	m.spawned++
	m.metrics.setAgents(len(m.agents))
	m.logger.Debug("agent spawned", log.String("agent", name), log.String("id", id), log.String("tree", tree.Name))
	return a, nil
}

func (m *Manager) Get(id string) (*Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	return a, ok
}

// Remove aborts the agent's tree and forgets it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	a, ok := m.agents[id]
	if ok {
		delete(m.agents, id)
		m.metrics.setAgents(len(m.agents))
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	a.runner.Abort()
	return nil
}

// List returns the agents sorted by name.
func (m *Manager) List() []*Agent {
	m.mu.RLock()
	out := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].name == out[j].name {
			return out[i].id < out[j].id
		}
		return out[i].name < out[j].name
	})
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// TickAll ticks every agent once, at most Workers at a time. One agent
// failing does not stop the others; all errors are joined.
func (m *Manager) TickAll(ctx context.Context, dt time.Duration) error {
	agents := m.List()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(m.cfg.Workers)
	for _, a := range agents {
		g.Go(func() error {
			if _, err := a.Tick(ctx, dt); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// AbortAll aborts the active path of every agent.
func (m *Manager) AbortAll() {
	for _, a := range m.List() {
		a.mu.Lock()
		a.runner.Abort()
		a.mu.Unlock()
	}
}

// Reload applies cfg to every agent running a tree of the same name. Live
// parameter edits are patched in place; structural edits rebuild the tree.
func (m *Manager) Reload(cfg *loader.Config) (patched, rebuilt int, err error) {
	if cfg == nil {
		return 0, 0, errors.New("agent: tree config is nil")
	}
	var errs []error
	for _, a := range m.List() {
		if a.TreeName() != cfg.Name {
			continue
		}
		re, rerr := a.reload(cfg, m.reg)
		switch {
		case rerr != nil:
			errs = append(errs, fmt.Errorf("agent %s: %w", a.name, rerr))
		case re:
			rebuilt++
		default:
			patched++
		}
	}
	if patched+rebuilt > 0 {
		m.logger.Info("tree reloaded",
			log.String("tree", cfg.Name),
			log.Int("patched", patched),
			log.Int("rebuilt", rebuilt),
		)
	}
	return patched, rebuilt, errors.Join(errs...)
}
