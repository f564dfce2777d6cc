package loader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/behave/internal/core/bt"
)

// ActionFactory creates the leaf for an action node. name is the node's
// name in the config.
type ActionFactory func(name string, params Params) (bt.Node, error)

// ConditionFactory creates the predicate of a condition node.
type ConditionFactory func(params Params) (func(b *bt.Binder) bool, error)

// Registry maps action and condition names used in tree files to
// factories. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	acts  map[string]ActionFactory
	conds map[string]ConditionFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		acts:  make(map[string]ActionFactory),
		conds: make(map[string]ConditionFactory),
	}
}

// NewDefaultRegistry returns a registry holding the builtin actions and
// conditions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func (r *Registry) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	r.acts[name] = factory
	r.mu.Unlock()
}

func (r *Registry) RegisterCondition(name string, factory ConditionFactory) {
	r.mu.Lock()
	r.conds[name] = factory
	r.mu.Unlock()
}

func (r *Registry) NewAction(action, nodeName string, params Params) (bt.Node, error) {
	r.mu.RLock()
	f := r.acts[action]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown action: %s", action)
	}
	n, err := f(nodeName, params)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", action, err)
	}
	return n, nil
}

func (r *Registry) NewCondition(condition, nodeName string, params Params) (bt.Node, error) {
	r.mu.RLock()
	f := r.conds[condition]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown condition: %s", condition)
	}
	pred, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", condition, err)
	}
	return bt.NewCondition(nodeName, pred), nil
}

// Actions lists registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.acts))
	for k := range r.acts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Conditions lists registered condition names, sorted.
func (r *Registry) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conds))
	for k := range r.conds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
