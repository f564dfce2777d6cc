package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/bt/loader"
)

const counter = `
n := bb.get("count")
if is_undefined(n) { n = 0 }
n = n + 1
bb.set("count", n)
bb.set("last_phase", phase)
if phase != "abort" && n < params.target {
	result = "running"
}
`

func tick(t *testing.T, r *bt.Runner) bt.State {
	t.Helper()
	st, err := r.Tick(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	return st
}

func TestAction_RunsUntilScriptSucceeds(t *testing.T) {
	a, err := NewAction("count", []byte(counter), map[string]any{"target": 3}, Options{})
	require.NoError(t, err)

	bb := bt.NewBlackboard()
	r, err := bt.NewRunner(a, bt.WithBlackboard(bb))
	require.NoError(t, err)

	assert.Equal(t, bt.StateRunning, tick(t, r))
	phase, _ := bt.String(bb, "last_phase")
	assert.Equal(t, "start", phase)

	assert.Equal(t, bt.StateRunning, tick(t, r))
	assert.Equal(t, bt.StateSuccess, tick(t, r))
	phase, _ = bt.String(bb, "last_phase")
	assert.Equal(t, "resume", phase)

	n, ok := bt.Float(bb, "count")
	require.True(t, ok)
	assert.Equal(t, 3.0, n)
}

func TestAction_AbortRunsAbortPhase(t *testing.T) {
	a, err := NewAction("count", []byte(counter), map[string]any{"target": 10}, Options{})
	require.NoError(t, err)
	bb := bt.NewBlackboard()
	r, err := bt.NewRunner(a, bt.WithBlackboard(bb))
	require.NoError(t, err)

	tick(t, r)
	assert.Equal(t, bt.StateFailed, r.Abort())
	phase, _ := bt.String(bb, "last_phase")
	assert.Equal(t, "abort", phase)
}

func TestAction_ResultValues(t *testing.T) {
	for src, want := range map[string]bt.State{
		`result = "failed"`:   bt.StateFailed,
		`result = "success"`:  bt.StateSuccess,
		`x := 1`:              bt.StateSuccess,
		`result = "maybe"`:    bt.StateFailed,
		`f := undefined; f()`: bt.StateFailed,
	} {
		a, err := NewAction("s", []byte(src), nil, Options{})
		require.NoError(t, err, src)
		r, err := bt.NewRunner(a)
		require.NoError(t, err)
		assert.Equal(t, want, tick(t, r), src)
	}
}

func TestNewAction_CompileError(t *testing.T) {
	_, err := NewAction("bad", []byte(`result = `), nil, Options{})
	assert.Error(t, err)
}

func TestAction_MaxDuration(t *testing.T) {
	a, err := NewAction("spin", []byte(`for { }`), nil, Options{MaxDuration: 20 * time.Millisecond})
	require.NoError(t, err)
	r, err := bt.NewRunner(a)
	require.NoError(t, err)
	assert.Equal(t, bt.StateFailed, tick(t, r))
}

func TestRegister_BuildsFromTreeFile(t *testing.T) {
	reg := loader.NewDefaultRegistry()
	Register(reg)

	cfg, err := loader.LoadYAML(strings.NewReader(`
root: main
nodes:
  main:
    type: sequence
    children: [bump]
  bump:
    type: action
    action: script
    params:
      target: 2
      max_duration: 1s
      source: |
        n := bb.get("count")
        if is_undefined(n) { n = 0 }
        bb.set("count", n + 1)
        if n + 1 < params.target { result = "running" }
`))
	require.NoError(t, err)
	tree, err := cfg.Build(reg)
	require.NoError(t, err)

	r, err := bt.NewRunner(tree.Root)
	require.NoError(t, err)
	assert.Equal(t, bt.StateRunning, tick(t, r))
	assert.Equal(t, bt.StateSuccess, tick(t, r))

	_, err = reg.NewAction("script", "empty", loader.Params{})
	assert.ErrorIs(t, err, loader.ErrBadParam)
}

func TestAction_UnboundCanLog(t *testing.T) {
	a, err := NewAction("hello", []byte(`log("hello " + phase)`), nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, bt.StateSuccess, a.OnStart())
	assert.Equal(t, bt.StateFailed, a.OnAbort())
}
