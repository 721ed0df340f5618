package vecadd

// State is the position of a run in its one-way lifecycle.
type State int

const (
	Uninitialized State = iota
	ContextReady
	DeviceReady
	ResourcesReady
	PipelineReady
	Submitted
	Completed
	TornDown
)

var stateNames = [...]string{
	Uninitialized:  "uninitialized",
	ContextReady:   "context_ready",
	DeviceReady:    "device_ready",
	ResourcesReady: "resources_ready",
	PipelineReady:  "pipeline_ready",
	Submitted:      "submitted",
	Completed:      "completed",
	TornDown:       "torn_down",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
