package loader

import (
	"fmt"
	"reflect"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/observability/log"
)

// RegisterBuiltins registers the small set of actions and conditions every
// tree file can use.
func RegisterBuiltins(r *Registry) {
	r.RegisterAction("log", func(name string, p Params) (bt.Node, error) {
		level, err := log.ParseLevel(p.String("level", "info"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadParam, err)
		}
		return bt.NewLog(name, p.String("message", name), level), nil
	})
	r.RegisterAction("wait", func(name string, p Params) (bt.Node, error) {
		d, _, err := p.Duration("duration")
		if err != nil {
			return nil, err
		}
		return bt.NewWait(name, d), nil
	})
	r.RegisterAction("set", func(name string, p Params) (bt.Node, error) {
		key, err := requireKey(p)
		if err != nil {
			return nil, err
		}
		val, _ := p.Value("value")
		return bt.NewAction(name, func(b *bt.Binder) bt.State {
			b.Blackboard.Set(key, val)
			return bt.StateSuccess
		}), nil
	})
	r.RegisterAction("increment", func(name string, p Params) (bt.Node, error) {
		key, err := requireKey(p)
		if err != nil {
			return nil, err
		}
		by, ok, err := p.Float("by")
		if err != nil {
			return nil, err
		}
		if !ok {
			by = 1
		}
		return bt.NewAction(name, func(b *bt.Binder) bt.State {
			cur, _ := bt.Float(b.Blackboard, key)
			b.Blackboard.Set(key, cur+by)
			return bt.StateSuccess
		}), nil
	})
	r.RegisterAction("succeed", func(name string, _ Params) (bt.Node, error) {
		return bt.NewAction(name, func(*bt.Binder) bt.State { return bt.StateSuccess }), nil
	})
	r.RegisterAction("fail", func(name string, _ Params) (bt.Node, error) {
		return bt.NewAction(name, func(*bt.Binder) bt.State { return bt.StateFailed }), nil
	})

	r.RegisterCondition("has_key", func(p Params) (func(*bt.Binder) bool, error) {
		key, err := requireKey(p)
		if err != nil {
			return nil, err
		}
		return func(b *bt.Binder) bool { return b.Blackboard.Has(key) }, nil
	})
	r.RegisterCondition("equals", func(p Params) (func(*bt.Binder) bool, error) {
		key, err := requireKey(p)
		if err != nil {
			return nil, err
		}
		want, ok := p.Value("value")
		if !ok {
			return nil, fmt.Errorf("%w: equals requires 'value'", ErrBadParam)
		}
		return func(b *bt.Binder) bool {
			got, ok := b.Blackboard.Get(key)
			return ok && equalValues(got, want)
		}, nil
	})
	r.RegisterCondition("compare", func(p Params) (func(*bt.Binder) bool, error) {
		key, err := requireKey(p)
		if err != nil {
			return nil, err
		}
		op := p.String("op", ">=")
		cmp, err := comparator(op)
		if err != nil {
			return nil, err
		}
		rhs, ok, err := p.Float("value")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: compare requires 'value'", ErrBadParam)
		}
		return func(b *bt.Binder) bool {
			lhs, ok := bt.Float(b.Blackboard, key)
			return ok && cmp(lhs, rhs)
		}, nil
	})
}

func requireKey(p Params) (string, error) {
	key := p.String("key", "")
	if key == "" {
		return "", fmt.Errorf("%w: 'key' is required", ErrBadParam)
	}
	return key, nil
}

func comparator(op string) (func(a, b float64) bool, error) {
	switch op {
	case "<":
		return func(a, b float64) bool { return a < b }, nil
	case "<=":
		return func(a, b float64) bool { return a <= b }, nil
	case ">":
		return func(a, b float64) bool { return a > b }, nil
	case ">=":
		return func(a, b float64) bool { return a >= b }, nil
	case "==":
		return func(a, b float64) bool { return a == b }, nil
	case "!=":
		return func(a, b float64) bool { return a != b }, nil
	default:
		return nil, fmt.Errorf("%w: unknown comparison %q", ErrBadParam, op)
	}
}

// equalValues compares numbers by value regardless of their decoded type.
func equalValues(a, b any) bool {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func numeric(v any) (float64, bool) {
	if _, isStr := v.(string); isStr {
		return 0, false
	}
	return number(v)
}
