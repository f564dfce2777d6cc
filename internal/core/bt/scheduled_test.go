package bt

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// drive selects and completes count children and returns the selected
// indices.
func drive(s *Scheduled, count int) []int {
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, indexOf(s.Children(), s.GetNextChildTask()))
		s.OnReturn(StateSuccess)
	}
	return out
}

func TestScheduled_RepeatScenario(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopRepeat}, leaves(3)...)

	require.Equal(t, StateRunning, s.OnStart())

	var got []int
	for i, wantIndex := range []int{1, 2, 0, 1, 2, 0} {
		got = append(got, indexOf(s.Children(), s.GetNextChildTask()))
		assert.Equal(t, StateSuccess, s.OnReturn(StateSuccess), "result passes through")
		assert.Equal(t, wantIndex, s.ExecIndex(), "cursor after return %d", i)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, got)
}

func TestScheduled_PassesChildResultThrough(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{}, leaves(2)...)
	s.OnStart()
	assert.Equal(t, StateFailed, s.OnReturn(StateFailed))
	assert.Equal(t, StateSuccess, s.OnReturn(StateSuccess))
}

func TestScheduled_RepeatCoverage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "n")
		cycles := rapid.IntRange(1, 4).Draw(rt, "cycles")

		s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopRepeat}, leaves(n)...)
		s.OnStart()
		got := drive(s, n*cycles)
		for i, idx := range got {
			if idx != i%n {
				rt.Fatalf("selection %d: got child %d, want %d", i, idx, i%n)
			}
		}
		if s.ExecIndex() != 0 {
			rt.Fatalf("cursor did not wrap: %d", s.ExecIndex())
		}
	})
}

func TestScheduled_RandomCoverage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "n")
		cycles := rapid.IntRange(1, 5).Draw(rt, "cycles")
		seed := rapid.Int64().Draw(rt, "seed")

		s := NewScheduled("sched", ScheduledConfig{
			LoopMode: LoopRandom,
			Rand:     rand.New(rand.NewSource(seed)),
		}, leaves(n)...)
		s.OnStart()

		for c := 0; c < cycles; c++ {
			cycle := drive(s, n)
			sort.Ints(cycle)
			for i, idx := range cycle {
				if idx != i {
					rt.Fatalf("cycle %d does not cover every child: %v", c, cycle)
				}
			}
		}
	})
}

func TestScheduled_RandomIsDeterministicPerSeed(t *testing.T) {
	run := func(seed int64) []int {
		s := NewScheduled("sched", ScheduledConfig{
			LoopMode: LoopRandom,
			Rand:     rand.New(rand.NewSource(seed)),
		}, leaves(8)...)
		s.OnStart()
		return drive(s, 24)
	}
	assert.Equal(t, run(42), run(42))
}

func TestScheduled_RandomCoverageSurvivesAbortReset(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{
		LoopMode:     LoopRandom,
		ResetOnAbort: true,
		Rand:         rand.New(rand.NewSource(3)),
	}, leaves(5)...)
	s.OnStart()
	drive(s, 3)

	require.Equal(t, StateFailed, s.OnAbort())
	require.Equal(t, 0, s.ExecIndex())

	cycle := drive(s, 5)
	sort.Ints(cycle)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cycle)
}

func TestScheduled_PingPongReversal(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopPingPong}, leaves(4)...)
	s.OnStart()

	var (
		children []int
		cursor   []int
		reversed []bool
	)
	for i := 0; i < 13; i++ {
		cursor = append(cursor, s.ExecIndex())
		reversed = append(reversed, s.Reversed())
		children = append(children, indexOf(s.Children(), s.GetNextChildTask()))
		s.OnReturn(StateSuccess)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}, cursor)
	assert.Equal(t, []int{0, 1, 2, 3, 2, 1, 0, 1, 2, 3, 2, 1, 0}, children)
	assert.Equal(t, []bool{
		false, false, false, false,
		true, true, true,
		false, false, false,
		true, true, true,
	}, reversed)
}

func TestScheduled_PingPongDegenerateNeverToggles(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 2).Draw(rt, "n")
		loops := rapid.IntRange(0, 64).Draw(rt, "loops")

		s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopPingPong}, leaves(n)...)
		s.OnStart()
		for i := 0; i < loops; i++ {
			s.OnReturn(StateSuccess)
			if s.Reversed() {
				rt.Fatalf("direction toggled with %d children after %d returns", n, i+1)
			}
		}
	})
}

func TestScheduled_EmptySucceedsWithoutSelecting(t *testing.T) {
	s := NewScheduled("empty", ScheduledConfig{LoopMode: LoopRandom})
	assert.Equal(t, StateSuccess, s.OnStart())
	requireInvariantPanic(t, func() { s.GetNextChildTask() })

	r, err := NewRunner(s)
	require.NoError(t, err)
	st, err := r.Tick(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st)
	assert.Equal(t, uint64(1), r.Cycles())
}

func TestScheduled_AbortReset(t *testing.T) {
	advanced := func(reset bool) *Scheduled {
		s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopPingPong, ResetOnAbort: reset}, leaves(4)...)
		s.OnStart()
		drive(s, 5)
		require.Equal(t, 2, s.ExecIndex())
		require.True(t, s.Reversed())
		return s
	}

	s := advanced(true)
	assert.Equal(t, StateFailed, s.OnAbort())
	assert.Equal(t, 0, s.ExecIndex())
	assert.False(t, s.Reversed())

	s = advanced(false)
	assert.Equal(t, StateFailed, s.OnAbort())
	assert.Equal(t, 2, s.ExecIndex())
	assert.True(t, s.Reversed())
}

func TestScheduled_AbortAlwaysFails(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mode := rapid.SampledFrom([]LoopMode{LoopRepeat, LoopPingPong, LoopRandom}).Draw(rt, "mode")
		reset := rapid.Bool().Draw(rt, "reset")
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		steps := rapid.IntRange(0, 20).Draw(rt, "steps")

		s := NewScheduled("sched", ScheduledConfig{
			LoopMode:     mode,
			ResetOnAbort: reset,
			Rand:         rand.New(rand.NewSource(int64(n))),
		}, leaves(n)...)
		s.OnStart()
		for i := 0; i < steps; i++ {
			s.OnReturn(StateSuccess)
		}
		if st := s.OnAbort(); st != StateFailed {
			rt.Fatalf("OnAbort returned %s", st)
		}
	})
}

func TestScheduled_ReinitialisesOnModeChange(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopRepeat}, leaves(3)...)
	s.OnStart()
	drive(s, 2)
	require.Equal(t, 2, s.ExecIndex())
	assert.Empty(t, s.Permutation())

	s.SetLoopMode(LoopRandom)
	assert.Equal(t, 2, s.ExecIndex(), "cursor survives until the next start")

	assert.Equal(t, StateRunning, s.OnStart())
	assert.Equal(t, 0, s.ExecIndex())
	perm := s.Permutation()
	sort.Ints(perm)
	assert.Equal(t, []int{0, 1, 2}, perm)
}

func TestScheduled_InitKeepsDirection(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopPingPong}, leaves(4)...)
	s.OnStart()
	drive(s, 4)
	require.True(t, s.Reversed())

	s.SetLoopMode(LoopRepeat)
	s.OnStart()

	assert.Equal(t, 0, s.ExecIndex())
	assert.True(t, s.Reversed())
	assert.Equal(t, 3, indexOf(s.Children(), s.GetNextChildTask()))
}

func TestScheduled_UnchangedConfigKeepsCursor(t *testing.T) {
	s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopRepeat}, leaves(3)...)
	s.OnStart()
	drive(s, 1)
	s.OnStart()
	assert.Equal(t, 1, s.ExecIndex())
}

func TestScheduled_SeedsFromBinder(t *testing.T) {
	order := func(seed int64) []int {
		s := NewScheduled("sched", ScheduledConfig{LoopMode: LoopRandom}, leaves(6)...)
		_, err := NewBinder(nil, nil, seed).Bind(s)
		require.NoError(t, err)
		s.OnStart()
		return drive(s, 12)
	}
	assert.Equal(t, order(9), order(9))
}

func TestParseLoopMode(t *testing.T) {
	cases := map[string]LoopMode{
		"repeat":    LoopRepeat,
		"":          LoopRepeat,
		"ping_pong": LoopPingPong,
		"PingPong":  LoopPingPong,
		"ping-pong": LoopPingPong,
		"random":    LoopRandom,
	}
	for in, want := range cases {
		got, err := ParseLoopMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLoopMode("shuffle")
	assert.Error(t, err)

	for _, m := range []LoopMode{LoopRepeat, LoopPingPong, LoopRandom} {
		back, err := ParseLoopMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
}
