package lifecycle

// Phase is the host app's lifecycle phase as seen by the Coordinator.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseStarted
	PhaseActive
	PhaseInactive
	PhaseBackground
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseStarted:
		return "started"
	case PhaseActive:
		return "active"
	case PhaseInactive:
		return "inactive"
	case PhaseBackground:
		return "background"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// validTransitions lists the expected next phases. Unexpected transitions are still applied
// (the host is authoritative) but logged.
var validTransitions = map[Phase][]Phase{
	PhaseNotStarted: {PhaseStarted},
	PhaseStarted:    {PhaseActive, PhaseInactive, PhaseBackground, PhaseTerminated},
	PhaseActive:     {PhaseInactive, PhaseBackground, PhaseTerminated},
	PhaseInactive:   {PhaseActive, PhaseBackground, PhaseTerminated},
	PhaseBackground: {PhaseActive, PhaseInactive, PhaseTerminated},
}

func expected(from, to Phase) bool {
	for _, p := range validTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
