package bt

import "fmt"

// State is the result a node reports back to the runner.
type State uint8

const (
	StateRunning State = iota
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// IsTerminal reports whether the node has finished.
func (s State) IsTerminal() bool { return s == StateSuccess || s == StateFailed }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
