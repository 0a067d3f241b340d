// Package patrol implements the patrol engine (spec component C7): a
// scheduled pan/tilt/zoom scan of a PTZ-capable camera's configured patrol
// area when no person is being auto-tracked, with a focus hand-off when
// one is, a cooldown before resuming the scan, and a periodic return to
// home position to rest. Grounded on
// original_source/src/ptz/patrol_mixin.py's PatrolMixin state variables
// (is_patrolling/is_focusing_on_object/is_in_tracking_cooldown/
// is_resting_at_home), generalized into an explicit state machine.
package patrol

// State is the patrol engine's current mode.
type State int

const (
	StateOff State = iota
	StatePatrolling
	StateFocusing
	StateCooldown
	StateRestingAtHome
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StatePatrolling:
		return "patrolling"
	case StateFocusing:
		return "focusing"
	case StateCooldown:
		return "cooldown"
	case StateRestingAtHome:
		return "resting_at_home"
	default:
		return "unknown"
	}
}

// Event is a patrol state-machine trigger.
type Event int

const (
	EventStart Event = iota
	EventStop
	EventObjectDetected
	EventObjectLost
	EventCooldownElapsed
	EventCycleComplete
	EventRestElapsed
)

// Transition computes the next state for (current, event), matching the
// mixin's scattered is_* flag toggles as one explicit table. Unhandled
// (state, event) pairs are no-ops (state unchanged).
func Transition(current State, ev Event) State {
	switch current {
	case StateOff:
		if ev == EventStart {
			return StatePatrolling
		}
	case StatePatrolling:
		switch ev {
		case EventStop:
			return StateOff
		case EventObjectDetected:
			return StateFocusing
		case EventCycleComplete:
			return StateRestingAtHome
		}
	case StateFocusing:
		switch ev {
		case EventStop:
			return StateOff
		case EventObjectLost:
			return StateCooldown
		}
	case StateCooldown:
		switch ev {
		case EventStop:
			return StateOff
		case EventCooldownElapsed:
			return StatePatrolling
		// Detections during cooldown are ignored (spec section 4.7:
		// "During cooldown, detections are ignored").
		}
	case StateRestingAtHome:
		switch ev {
		case EventStop:
			return StateOff
		case EventRestElapsed:
			return StatePatrolling
		// A detection during the home-rest period is ignored (spec/mixin's
		// _rest_at_position aggressively clears any tracking state that
		// sneaks in during rest) — the home-rest period runs to completion.
		case EventObjectDetected:
			return StateRestingAtHome
		}
	}
	return current
}
