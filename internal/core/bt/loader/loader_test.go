package loader

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behave/internal/core/bt"
)

func loadYAML(t *testing.T, src string) *Config {
	t.Helper()
	cfg, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	return cfg
}

func tick(t *testing.T, r *bt.Runner, dt time.Duration) bt.State {
	t.Helper()
	st, err := r.Tick(context.Background(), dt)
	require.NoError(t, err)
	return st
}

func TestLoadFile_YAMLBuildsRunnableTree(t *testing.T) {
	cfg, err := LoadFile("testdata/guard.yaml")
	require.NoError(t, err)
	assert.Equal(t, "guard", cfg.Name)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.NotZero(t, cfg.ContentHash())

	tree, err := cfg.Build(nil)
	require.NoError(t, err)
	assert.Len(t, tree.Nodes, 7)
	assert.Equal(t, cfg.Shape(), tree.Shape)

	patrol, ok := tree.Nodes["patrol"].(*bt.Scheduled)
	require.True(t, ok)
	assert.Equal(t, bt.LoopPingPong, patrol.LoopMode())
	assert.True(t, patrol.ResetOnAbort())

	bb := bt.NewBlackboard()
	r, err := bt.NewRunner(tree.Root, bt.WithBlackboard(bb), bt.WithSeed(tree.Seed))
	require.NoError(t, err)

	assert.Equal(t, bt.StateFailed, tick(t, r, 0), "condition fails without alive")

	bb.Set("alive", true)
	assert.Equal(t, bt.StateSuccess, tick(t, r, 0))
	steps, _ := bt.Float(bb, "steps")
	assert.Equal(t, 1.0, steps)

	assert.Equal(t, bt.StateSuccess, tick(t, r, 0))
	side, _ := bt.String(bb, "side")
	assert.Equal(t, "right", side)

	assert.Equal(t, bt.StateRunning, tick(t, r, 100*time.Millisecond))
	assert.Equal(t, "main/patrol/rest/nap", r.ActivePath())
}

func TestLoadFile_JSON(t *testing.T) {
	cfg, err := LoadFile("testdata/guard.json")
	require.NoError(t, err)

	tree, err := cfg.Build(NewDefaultRegistry())
	require.NoError(t, err)

	r, err := bt.NewRunner(tree.Root)
	require.NoError(t, err)
	assert.Equal(t, bt.StateRunning, tick(t, r, 0))
	steps, _ := bt.Float(r.Blackboard(), "steps")
	assert.Equal(t, 2.0, steps)

	assert.Equal(t, bt.StateRunning, tick(t, r, 250*time.Millisecond))
	assert.Equal(t, bt.StateSuccess, tick(t, r, 250*time.Millisecond))
}

func TestBuild_Rejects(t *testing.T) {
	cases := map[string]struct {
		src  string
		want error
	}{
		"no root": {
			src:  "nodes: {a: {type: sequence}}",
			want: ErrNoRoot,
		},
		"unknown reference": {
			src:  "root: a\nnodes: {a: {type: sequence, children: [ghost]}}",
			want: ErrUnknownNode,
		},
		"unknown type": {
			src:  "root: a\nnodes: {a: {type: parallel}}",
			want: ErrUnknownType,
		},
		"shared node": {
			src: `root: a
nodes:
  a: {type: sequence, children: [b, b]}
  b: {type: action, action: succeed}`,
			want: bt.ErrSharedNode,
		},
		"cycle": {
			src: `root: a
nodes:
  a: {type: sequence, children: [b]}
  b: {type: inverter, child: a}`,
			want: ErrCycle,
		},
		"bad loop mode": {
			src:  "root: a\nnodes: {a: {type: scheduled, params: {loop_mode: shuffle}}}",
			want: ErrBadParam,
		},
		"timeout without duration": {
			src: `root: a
nodes:
  a: {type: timeout, child: b}
  b: {type: action, action: succeed}`,
			want: ErrBadParam,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadYAML(t, tc.src).Build(nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuild_UnknownAction(t *testing.T) {
	_, err := loadYAML(t, "root: a\nnodes: {a: {type: action, action: fly}}").Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action: fly")
}

func TestBuild_FreshNodesPerBuild(t *testing.T) {
	cfg, err := LoadFile("testdata/guard.yaml")
	require.NoError(t, err)
	a, err := cfg.Build(nil)
	require.NoError(t, err)
	b, err := cfg.Build(nil)
	require.NoError(t, err)
	assert.NotSame(t, a.Nodes["patrol"], b.Nodes["patrol"])
}

func TestShape_IgnoresLiveParams(t *testing.T) {
	base := loadYAML(t, `root: s
nodes:
  s: {type: scheduled, children: [t], params: {loop_mode: repeat}}
  t: {type: timeout, child: w, params: {duration: 1s}}
  w: {type: action, action: wait, params: {duration: 2s}}`)

	live := loadYAML(t, `root: s
nodes:
  s: {type: scheduled, children: [t], params: {loop_mode: random, reset_on_abort: true}}
  t: {type: timeout, child: w, params: {duration: 3s}}
  w: {type: action, action: wait, params: {duration: 2s}}`)
	assert.Equal(t, base.Shape(), live.Shape())
	assert.NotEqual(t, base.ContentHash(), live.ContentHash())

	leafParam := loadYAML(t, `root: s
nodes:
  s: {type: scheduled, children: [t], params: {loop_mode: repeat}}
  t: {type: timeout, child: w, params: {duration: 1s}}
  w: {type: action, action: wait, params: {duration: 5s}}`)
	assert.NotEqual(t, base.Shape(), leafParam.Shape())
}

func TestApplyLive(t *testing.T) {
	cfg, err := LoadFile("testdata/guard.yaml")
	require.NoError(t, err)
	tree, err := cfg.Build(nil)
	require.NoError(t, err)

	edited, err := LoadFile("testdata/guard.yaml")
	require.NoError(t, err)
	patrol := edited.Nodes["patrol"]
	patrol.Params = Params{"loop_mode": "random"}
	edited.Nodes["patrol"] = patrol
	rest := edited.Nodes["rest"]
	rest.Params = Params{"duration": "2s"}
	edited.Nodes["rest"] = rest

	n, err := ApplyLive(tree, edited)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sched := tree.Nodes["patrol"].(*bt.Scheduled)
	assert.Equal(t, bt.LoopRandom, sched.LoopMode())
	assert.False(t, sched.ResetOnAbort())
	assert.Equal(t, 2*time.Second, tree.Nodes["rest"].(*bt.Timeout).Duration())

	n, err = ApplyLive(tree, edited)
	require.NoError(t, err)
	assert.Zero(t, n)

	edited.Nodes["extra"] = NodeConfig{Type: TypeAction, Action: "succeed"}
	_, err = ApplyLive(tree, edited)
	assert.ErrorIs(t, err, ErrShapeChanged)
}

func TestApplyLive_BadParamChangesNothing(t *testing.T) {
	const base = `root: top
nodes:
  top: {type: sequence, children: [a, b]}
  a: {type: scheduled, children: [x], params: {loop_mode: repeat}}
  b: {type: scheduled, children: [y], params: {loop_mode: repeat}}
  x: {type: action, action: succeed}
  y: {type: action, action: succeed}`
	tree, err := loadYAML(t, base).Build(nil)
	require.NoError(t, err)

	edited := loadYAML(t, base)
	a := edited.Nodes["a"]
	a.Params = Params{"loop_mode": "random", "reset_on_abort": true}
	edited.Nodes["a"] = a
	b := edited.Nodes["b"]
	b.Params = Params{"loop_mode": "bogus"}
	edited.Nodes["b"] = b

	// map order decides which node is resolved first; repeat to cover both
	for i := 0; i < 20; i++ {
		n, err := ApplyLive(tree, edited)
		require.ErrorIs(t, err, ErrBadParam)
		assert.Zero(t, n)

		sched := tree.Nodes["a"].(*bt.Scheduled)
		assert.Equal(t, bt.LoopRepeat, sched.LoopMode())
		assert.False(t, sched.ResetOnAbort())
	}
}
