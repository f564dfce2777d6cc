package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behave/internal/core/bt"
)

func runOnce(t *testing.T, n bt.Node, bb bt.Blackboard) bt.State {
	t.Helper()
	r, err := bt.NewRunner(n, bt.WithBlackboard(bb))
	require.NoError(t, err)
	return tick(t, r, 0)
}

func TestBuiltins_Conditions(t *testing.T) {
	reg := NewDefaultRegistry()
	bb := bt.NewBlackboard()
	bb.Set("hp", 3)
	bb.Set("name", "orc")

	cases := []struct {
		cond   string
		params Params
		want   bt.State
	}{
		{"has_key", Params{"key": "hp"}, bt.StateSuccess},
		{"has_key", Params{"key": "mp"}, bt.StateFailed},
		{"equals", Params{"key": "hp", "value": 3.0}, bt.StateSuccess},
		{"equals", Params{"key": "name", "value": "orc"}, bt.StateSuccess},
		{"equals", Params{"key": "name", "value": "elf"}, bt.StateFailed},
		{"compare", Params{"key": "hp", "op": "<", "value": 5}, bt.StateSuccess},
		{"compare", Params{"key": "hp", "op": ">", "value": 5}, bt.StateFailed},
		{"compare", Params{"key": "name", "op": "==", "value": 0}, bt.StateFailed},
	}
	for _, tc := range cases {
		n, err := reg.NewCondition(tc.cond, tc.cond, tc.params)
		require.NoError(t, err)
		assert.Equal(t, tc.want, runOnce(t, n, bb), "%s %v", tc.cond, tc.params)
	}
}

func TestBuiltins_ConditionParamErrors(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.NewCondition("has_key", "c", Params{})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = reg.NewCondition("compare", "c", Params{"key": "hp", "op": "~", "value": 1})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = reg.NewCondition("compare", "c", Params{"key": "hp", "value": "lots"})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = reg.NewCondition("nope", "c", nil)
	assert.Error(t, err)
}

func TestBuiltins_Actions(t *testing.T) {
	reg := NewDefaultRegistry()
	bb := bt.NewBlackboard()

	set, err := reg.NewAction("set", "set", Params{"key": "flag", "value": true})
	require.NoError(t, err)
	assert.Equal(t, bt.StateSuccess, runOnce(t, set, bb))
	flag, _ := bt.Bool(bb, "flag")
	assert.True(t, flag)

	inc, err := reg.NewAction("increment", "inc", Params{"key": "n", "by": 2.5})
	require.NoError(t, err)
	runOnce(t, inc, bb)
	n, _ := bt.Float(bb, "n")
	assert.Equal(t, 2.5, n)

	fail, err := reg.NewAction("fail", "f", nil)
	require.NoError(t, err)
	assert.Equal(t, bt.StateFailed, runOnce(t, fail, bb))

	logNode, err := reg.NewAction("log", "say", Params{"message": "hi", "level": "debug"})
	require.NoError(t, err)
	assert.Equal(t, bt.StateSuccess, runOnce(t, logNode, bb))
	msg, _ := bt.String(bb, bt.LastLogMessageKey)
	assert.Equal(t, "hi", msg)

	_, err = reg.NewAction("log", "say", Params{"level": "loud"})
	assert.ErrorIs(t, err, ErrBadParam)
	_, err = reg.NewAction("wait", "w", Params{"duration": "soon"})
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestRegistry_Lists(t *testing.T) {
	reg := NewDefaultRegistry()
	assert.Equal(t, []string{"fail", "increment", "log", "set", "succeed", "wait"}, reg.Actions())
	assert.Equal(t, []string{"compare", "equals", "has_key"}, reg.Conditions())
}
