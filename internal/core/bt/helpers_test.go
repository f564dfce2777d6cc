package bt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// probe is a scripted leaf. It returns script[0] on start and the following
// entries on each resume; the last entry repeats once the script runs out.
type probe struct {
	name   string
	script []State
	pos    int
	trace  *[]string

	starts, resumes, aborts int
}

func newProbe(name string, trace *[]string, script ...State) *probe {
	if len(script) == 0 {
		script = []State{StateSuccess}
	}
	return &probe{name: name, script: script, trace: trace}
}

func (p *probe) next() State {
	if p.pos >= len(p.script) {
		return p.script[len(p.script)-1]
	}
	s := p.script[p.pos]
	p.pos++
	return s
}

func (p *probe) record(ev string) {
	if p.trace != nil {
		*p.trace = append(*p.trace, ev+":"+p.name)
	}
}

func (p *probe) Name() string { return p.name }

func (p *probe) OnStart() State {
	p.starts++
	p.pos = 0
	p.record("start")
	return p.next()
}

func (p *probe) OnReturn(State) State {
	p.resumes++
	p.record("resume")
	return p.next()
}

func (p *probe) OnAbort() State {
	p.aborts++
	p.record("abort")
	return StateFailed
}

func leaves(n int) []Node {
	out := make([]Node, n)
	for i := range out {
		out[i] = newProbe(string(rune('a'+i%26)), nil)
	}
	return out
}

func indexOf(children []Node, n Node) int {
	for i, c := range children {
		if c == n {
			return i
		}
	}
	return -1
}

func requireInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, ErrInvariantViolation), "unexpected panic: %v", err)
	}()
	fn()
}
