package forecast

import "fmt"

// ModelState is one stage of the model lifecycle
type ModelState string

const (
	StateUntrained      ModelState = "UNTRAINED"
	StateTraining       ModelState = "TRAINING"
	StateTrainedPassing ModelState = "TRAINED_PASSING"
	StateTrainedFailing ModelState = "TRAINED_FAILING"
	StateDeployed       ModelState = "DEPLOYED"
	StateSuperseded     ModelState = "SUPERSEDED"
	StateArchived       ModelState = "ARCHIVED"
)

// lifecycleTransitions enumerates the legal state moves. Deployment is
// reachable only from TRAINED_PASSING; a failing model enters service only
// through an explicit force override, never implicitly.
var lifecycleTransitions = map[ModelState][]ModelState{
	StateUntrained:      {StateTraining},
	StateTraining:       {StateTrainedPassing, StateTrainedFailing, StateUntrained},
	StateTrainedPassing: {StateDeployed, StateSuperseded, StateArchived},
	StateTrainedFailing: {StateSuperseded, StateArchived},
	StateDeployed:       {StateSuperseded},
	StateSuperseded:     {StateArchived},
	StateArchived:       {},
}

// IsValid checks if the state is a known lifecycle stage
func (s ModelState) IsValid() bool {
	_, ok := lifecycleTransitions[s]
	return ok
}

// IsServable reports whether a model in this state may serve forecasts
func (s ModelState) IsServable() bool {
	return s == StateDeployed
}

// IsTerminal reports whether the state has no outgoing transitions
func (s ModelState) IsTerminal() bool {
	return s.IsValid() && len(lifecycleTransitions[s]) == 0
}

// CanTransition reports whether the move from s to target is legal
func (s ModelState) CanTransition(target ModelState) bool {
	for _, next := range lifecycleTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition validates a state move and returns the new state. Forcing a
// TRAINED_FAILING model into DEPLOYED requires the force flag so the
// override always stays an explicit caller decision.
func (s ModelState) Transition(target ModelState, force bool) (ModelState, error) {
	if !s.IsValid() {
		return s, fmt.Errorf("unknown model state %q", string(s))
	}
	if !target.IsValid() {
		return s, fmt.Errorf("unknown model state %q", string(target))
	}
	if s.CanTransition(target) {
		return target, nil
	}
	if force && s == StateTrainedFailing && target == StateDeployed {
		return target, nil
	}
	return s, fmt.Errorf("illegal model state transition %s -> %s", string(s), string(target))
}
