package bt

import (
	"sort"
	"strings"
	"sync"
)

// Blackboard is the per-agent key/value store leaves read and write.
// Namespaced views share storage with their root.
type Blackboard interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Has(key string) bool
	// Namespace returns a view whose keys are stored as "ns:key".
	Namespace(ns string) Blackboard
	// Keys returns a sorted snapshot of the keys visible in this view.
	Keys() []string
}

// bbMap is a thread-safe map-based blackboard implementation.
type bbMap struct {
	mu     sync.RWMutex
	data   map[string]any
	prefix string
	root   *bbMap
}

// NewBlackboard creates a new root blackboard.
func NewBlackboard() Blackboard {
	m := &bbMap{data: make(map[string]any)}
	m.root = m
	return m
}

func (b *bbMap) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

func (b *bbMap) Get(key string) (any, bool) {
	bb := b.root
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	v, ok := bb.data[b.fullKey(key)]
	return v, ok
}

func (b *bbMap) Set(key string, value any) {
	bb := b.root
	bb.mu.Lock()
	bb.data[b.fullKey(key)] = value
	bb.mu.Unlock()
}

func (b *bbMap) Delete(key string) {
	bb := b.root
	bb.mu.Lock()
	delete(bb.data, b.fullKey(key))
	bb.mu.Unlock()
}

func (b *bbMap) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

func (b *bbMap) Namespace(ns string) Blackboard {
	ns = strings.ReplaceAll(ns, ":", "_")
	if b.prefix != "" {
		ns = b.prefix + ":" + ns
	}
	return &bbMap{root: b.root, prefix: ns}
}

func (b *bbMap) Keys() []string {
	bb := b.root
	bb.mu.RLock()
	keys := make([]string, 0, len(bb.data))
	for k := range bb.data {
		keys = append(keys, k)
	}
	bb.mu.RUnlock()
	sort.Strings(keys)
	if b.prefix == "" {
		return keys
	}
	res := make([]string, 0)
	pref := b.prefix + ":"
	for _, k := range keys {
		if strings.HasPrefix(k, pref) {
			res = append(res, strings.TrimPrefix(k, pref))
		}
	}
	return res
}

// Float reads a numeric value as float64. YAML and JSON decoding produce
// ints and float64s interchangeably, so both are accepted.
func Float(bb Blackboard, key string) (float64, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return 0, false
	}
	return toFloat64(v)
}

// String reads a string value.
func String(bb Blackboard, key string) (string, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool reads a boolean value.
func Bool(bb Blackboard, key string) (bool, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
