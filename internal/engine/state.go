package engine

import "fmt"

// State is the lifecycle phase of one run.
type State string

const (
	StateIdle         State = "idle"
	StateResolving    State = "resolving"
	StateBuildingPlan State = "building_plan"
	StateExecuting    State = "executing"
	StateReporting    State = "reporting"
	StateDone         State = "done"
)

// Resolving and BuildingPlan may jump to Done on a config error.
var allowedTransitions = map[State]map[State]struct{}{
	StateIdle: {
		StateResolving: {},
	},
	StateResolving: {
		StateBuildingPlan: {},
		StateDone:         {},
	},
	StateBuildingPlan: {
		StateExecuting: {},
		StateDone:      {},
	},
	StateExecuting: {
		StateReporting: {},
	},
	StateReporting: {
		StateDone: {},
	},
	StateDone: {},
}

func ValidateTransition(from, to State) error {
	next, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("invalid run state: %q", from)
	}
	if _, ok := next[to]; !ok {
		return fmt.Errorf("invalid run transition: %s -> %s", from, to)
	}
	return nil
}
