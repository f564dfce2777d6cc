package bt

// Node is the contract every tree node implements.
//
// OnStart is called when the node becomes active. For leaves, OnReturn is
// the resume call the runner issues on every later frame while the leaf is
// Running (the prior result is always StateRunning). For composites,
// OnReturn receives the terminal result of the child that just finished and
// returns the composite's own state: Running asks the runner for the next
// child, a terminal state finishes the composite.
type Node interface {
	Name() string
	OnStart() State
	OnReturn(prior State) State
	OnAbort() State
}

// Composite is a node that delegates execution to one child at a time.
// The composite only selects; the runner invokes the selected child.
type Composite interface {
	Node
	Children() []Node
	// GetNextChildTask returns the child to run now. It must not mutate state.
	GetNextChildTask() Node
}

// Preparer is implemented by nodes that need per-instance wiring when a
// tree is bound to a runner.
type Preparer interface {
	OnPrepare(b *Binder, h Handle)
}

// Interrupter is implemented by composites that can cut their running
// subtree short. The runner polls it at the start of every tick; when it
// reports true the subtree beneath it is aborted and the node receives
// StateFailed through OnReturn.
type Interrupter interface {
	Interrupted() bool
}

// Kinder reports a short type name used in logs and trace events.
type Kinder interface {
	Kind() string
}

// KindOf returns n's kind, or "node" for types that do not report one.
func KindOf(n Node) string {
	if k, ok := n.(Kinder); ok {
		return k.Kind()
	}
	return "node"
}

func isComposite(n Node) bool {
	_, ok := n.(Composite)
	return ok
}
