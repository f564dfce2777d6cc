package bt

// CompositeBase holds the ordered child list and the cursor shared by all
// composites. Concrete composites embed it and override the hooks whose
// behaviour differs.
type CompositeBase struct {
	name      string
	children  []Node
	execIndex int
}

// NewCompositeBase copies children so later mutation of the caller's slice
// cannot change the tree.
func NewCompositeBase(name string, children ...Node) CompositeBase {
	cs := make([]Node, len(children))
	copy(cs, children)
	return CompositeBase{name: name, children: cs}
}

func (c *CompositeBase) Name() string { return c.name }

func (c *CompositeBase) Children() []Node { return c.children }

// ExecIndex returns the cursor position.
func (c *CompositeBase) ExecIndex() int { return c.execIndex }

// GetNextChildTask returns the child at the cursor.
func (c *CompositeBase) GetNextChildTask() Node {
	return c.childAt(c.execIndex)
}

func (c *CompositeBase) childAt(i int) Node {
	if i < 0 || i >= len(c.children) {
		invariant("%s: child index %d out of range [0,%d)", c.name, i, len(c.children))
	}
	return c.children[i]
}

// OnStart reports Running when there is at least one child to run.
func (c *CompositeBase) OnStart() State {
	if len(c.children) == 0 {
		return StateSuccess
	}
	return StateRunning
}

// OnReturn passes the child's result through.
func (c *CompositeBase) OnReturn(prior State) State { return prior }

func (c *CompositeBase) OnAbort() State { return StateFailed }
