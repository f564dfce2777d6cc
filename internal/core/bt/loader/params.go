package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Params are the free-form parameters of a node. Values come straight from
// the YAML, JSON or HCL decoder, so numbers may be int, float64 or
// json.Number.
type Params map[string]any

func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Float returns the numeric parameter at key. ok is false when the key is
// missing; a present value that is not a number is an error.
func (p Params) Float(key string) (v float64, ok bool, err error) {
	raw, present := p[key]
	if !present {
		return 0, false, nil
	}
	v, ok = number(raw)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s must be a number, got %T", ErrBadParam, key, raw)
	}
	return v, true, nil
}

// Duration accepts Go duration strings ("1.5s", "200ms") or a number of
// seconds.
func (p Params) Duration(key string) (time.Duration, bool, error) {
	raw, present := p[key]
	if !present {
		return 0, false, nil
	}
	if s, ok := raw.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s: %v", ErrBadParam, key, err)
		}
		return d, true, nil
	}
	secs, ok := number(raw)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s must be a duration, got %T", ErrBadParam, key, raw)
	}
	return time.Duration(secs * float64(time.Second)), true, nil
}

// Value returns the raw value with json.Number converted to float64.
func (p Params) Value(key string) (any, bool) {
	v, ok := p[key]
	if n, isNum := v.(json.Number); isNum {
		if f, err := n.Float64(); err == nil {
			return f, ok
		}
	}
	return v, ok
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
