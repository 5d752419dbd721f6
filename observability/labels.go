package observability

const (
	// WorldName is the metric label identifying the simulated world
	// (one NetworkSimulation) a sample belongs to.
	WorldName = "world_name"
)
