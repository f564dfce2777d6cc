package bt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation marks a logic defect inside the tree machinery,
	// e.g. a composite cursor outside its child list. It is raised with panic.
	ErrInvariantViolation = errors.New("bt: invariant violation")
	ErrNilRoot            = errors.New("bt: root node is nil")
	ErrNilNode            = errors.New("bt: nil node")
	ErrSharedNode         = errors.New("bt: node appears more than once in the tree")
)

func invariant(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...)))
}
