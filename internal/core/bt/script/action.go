// Package script provides tree leaves written in tengo.
//
// A script runs once when its node starts, once per frame while it reports
// "running" and once more when it is aborted. It sees these globals:
//
//	phase   "start", "resume" or "abort"
//	now, dt game time and frame delta in seconds
//	params  the node's parameters from the tree file
//	bb      blackboard access: get(key), set(key, value), has(key), del(key)
//	log     log(message) through the agent's logger
//	result  set to "success", "failed" or "running"; defaults to "success"
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/observability/log"
)

const (
	phaseStart  = "start"
	phaseResume = "resume"
	phaseAbort  = "abort"
)

// Modules are the tengo standard modules scripts may import.
var Modules = []string{"math", "text", "times", "rand", "fmt", "json", "enum"}

// Options bound the cost of one script run.
type Options struct {
	// MaxDuration cancels a run that takes longer. Zero means no limit.
	MaxDuration time.Duration
	// MaxAllocs limits object allocations per run. Zero means no limit.
	MaxAllocs int64
}

// Action is a leaf whose behaviour is a compiled tengo script.
type Action struct {
	name     string
	compiled *tengo.Compiled
	opts     Options
	binder   *bt.Binder
	bbObj    *tengo.ImmutableMap
}

var (
	_ bt.Node     = (*Action)(nil)
	_ bt.Preparer = (*Action)(nil)
)

// NewAction compiles src. Compile errors are reported here rather than on
// the first tick.
func NewAction(name string, src []byte, params map[string]any, opts Options) (*Action, error) {
	s := tengo.NewScript(src)
	s.SetImports(stdlib.GetModuleMap(Modules...))
	if opts.MaxAllocs > 0 {
		s.SetMaxAllocs(opts.MaxAllocs)
	}

	paramObj, err := tengo.FromInterface(params)
	if err != nil {
		return nil, fmt.Errorf("script %s: params: %w", name, err)
	}

	a := &Action{name: name, opts: opts}
	empty := &tengo.ImmutableMap{Value: map[string]tengo.Object{}}
	vars := map[string]any{
		"phase":  "",
		"now":    0.0,
		"dt":     0.0,
		"params": paramObj,
		"bb":     empty,
		"log":    empty,
		"result": "success",
	}
	for k, v := range vars {
		if err := s.Add(k, v); err != nil {
			return nil, fmt.Errorf("script %s: %w", name, err)
		}
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script %s: compile: %w", name, err)
	}
	a.compiled = compiled
	return a, nil
}

func (a *Action) Name() string { return a.name }
func (a *Action) Kind() string { return "script" }

func (a *Action) OnPrepare(b *bt.Binder, _ bt.Handle) { a.bind(b) }

// bind points the bb and log globals at b.
func (a *Action) bind(b *bt.Binder) {
	a.binder = b
	a.bbObj = blackboardObject(b.Blackboard)
	_ = a.compiled.Set("log", &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) > 0 {
			msg, _ := tengo.ToString(args[0])
			b.Logger.Info(msg, log.String("node", a.name))
		}
		return tengo.UndefinedValue, nil
	}})
}

func (a *Action) OnStart() bt.State { return a.run(phaseStart) }

func (a *Action) OnReturn(prior bt.State) bt.State {
	if prior != bt.StateRunning {
		return prior
	}
	return a.run(phaseResume)
}

func (a *Action) OnAbort() bt.State {
	a.run(phaseAbort)
	return bt.StateFailed
}

func (a *Action) run(phase string) bt.State {
	if a.binder == nil {
		a.bind(bt.NewBinder(nil, nil, 0))
	}
	logger := a.binder.Logger

	for k, v := range map[string]any{
		"phase":  phase,
		"now":    a.binder.Now().Seconds(),
		"dt":     a.binder.DeltaTime().Seconds(),
		"bb":     a.bbObj,
		"result": "success",
	} {
		if err := a.compiled.Set(k, v); err != nil {
			logger.Error("script setup failed", log.String("node", a.name), log.Error(err))
			return bt.StateFailed
		}
	}

	ctx := context.Background()
	if a.opts.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.MaxDuration)
		defer cancel()
	}
	if err := a.compiled.RunContext(ctx); err != nil {
		logger.Warn("script failed", log.String("node", a.name), log.String("phase", phase), log.Error(err))
		return bt.StateFailed
	}

	res := a.compiled.Get("result").String()
	switch res {
	case "success", "":
		return bt.StateSuccess
	case "failed", "failure":
		return bt.StateFailed
	case "running":
		return bt.StateRunning
	default:
		logger.Warn("script returned unknown result", log.String("node", a.name), log.String("result", res))
		return bt.StateFailed
	}
}

func blackboardObject(bb bt.Blackboard) *tengo.ImmutableMap {
	key := func(args []tengo.Object) (string, bool) {
		if len(args) < 1 {
			return "", false
		}
		s, ok := tengo.ToString(args[0])
		return s, ok && s != ""
	}
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"get": &tengo.UserFunction{Name: "get", Value: func(args ...tengo.Object) (tengo.Object, error) {
			k, ok := key(args)
			if !ok {
				return tengo.UndefinedValue, nil
			}
			v, ok := bb.Get(k)
			if !ok {
				return tengo.UndefinedValue, nil
			}
			obj, err := tengo.FromInterface(v)
			if err != nil {
				return tengo.UndefinedValue, nil
			}
			return obj, nil
		}},
		"set": &tengo.UserFunction{Name: "set", Value: func(args ...tengo.Object) (tengo.Object, error) {
			k, ok := key(args)
			if !ok || len(args) < 2 {
				return tengo.FalseValue, nil
			}
			bb.Set(k, tengo.ToInterface(args[1]))
			return tengo.TrueValue, nil
		}},
		"has": &tengo.UserFunction{Name: "has", Value: func(args ...tengo.Object) (tengo.Object, error) {
			k, ok := key(args)
			if ok && bb.Has(k) {
				return tengo.TrueValue, nil
			}
			return tengo.FalseValue, nil
		}},
		"del": &tengo.UserFunction{Name: "del", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if k, ok := key(args); ok {
				bb.Delete(k)
			}
			return tengo.UndefinedValue, nil
		}},
	}}
}
