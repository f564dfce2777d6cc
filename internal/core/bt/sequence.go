package bt

// Sequence runs its children in order. It fails as soon as one child fails
// and succeeds once the last child succeeds.
type Sequence struct {
	CompositeBase
}

var _ Composite = (*Sequence)(nil)

func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{CompositeBase: NewCompositeBase(name, children...)}
}

func (s *Sequence) Kind() string { return "sequence" }

func (s *Sequence) OnStart() State {
	s.execIndex = 0
	return s.CompositeBase.OnStart()
}

func (s *Sequence) OnReturn(prior State) State {
	if prior == StateFailed {
		s.execIndex = 0
		return StateFailed
	}
	s.execIndex++
	if s.execIndex >= len(s.children) {
		s.execIndex = 0
		return StateSuccess
	}
	return StateRunning
}

func (s *Sequence) OnAbort() State {
	s.execIndex = 0
	return StateFailed
}

// Selector runs its children in order until one succeeds. It fails only
// when every child failed.
type Selector struct {
	CompositeBase
}

var _ Composite = (*Selector)(nil)

func NewSelector(name string, children ...Node) *Selector {
	return &Selector{CompositeBase: NewCompositeBase(name, children...)}
}

func (s *Selector) Kind() string { return "selector" }

// OnStart fails on an empty selector: there is no child that could succeed.
func (s *Selector) OnStart() State {
	s.execIndex = 0
	if len(s.children) == 0 {
		return StateFailed
	}
	return StateRunning
}

func (s *Selector) OnReturn(prior State) State {
	if prior == StateSuccess {
		s.execIndex = 0
		return StateSuccess
	}
	s.execIndex++
	if s.execIndex >= len(s.children) {
		s.execIndex = 0
		return StateFailed
	}
	return StateRunning
}

func (s *Selector) OnAbort() State {
	s.execIndex = 0
	return StateFailed
}
