package bt

// Event types published by a Runner.
const (
	EventNodeStarted   = "node.started"
	EventNodeReturned  = "node.returned"
	EventNodeAborted   = "node.aborted"
	EventTreeCompleted = "tree.completed"
	EventTickCompleted = "tick.completed"
)

// NodeEvent is the payload of node.* and tree.completed events.
type NodeEvent struct {
	RunnerID string `json:"runner_id"`
	Node     string `json:"node"`
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	State    State  `json:"state"`
	Tick     uint64 `json:"tick"`
}

// TickEvent is the payload of tick.completed.
type TickEvent struct {
	RunnerID string `json:"runner_id"`
	Tick     uint64 `json:"tick"`
	State    State  `json:"state"`
	Steps    int    `json:"steps"`
	Depth    int    `json:"depth"`
	// Elapsed is the wall time spent inside Tick, in seconds.
	Elapsed float64 `json:"elapsed"`
}
