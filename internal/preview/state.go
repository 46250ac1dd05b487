package preview

import "fmt"

// State is the lifecycle position of one capture request.
type State string

const (
	StatePending   State = "pending"   // staged, camera built, nothing rendered yet
	StateImmediate State = "immediate" // rendering on the calling frame
	StateWaiting   State = "waiting"   // suspended on a scheduler task
	StateRendering State = "rendering"
	StateComplete  State = "complete"  // terminal
	StateCancelled State = "cancelled" // terminal, never rendered
)

var captureTransitions = map[State][]State{
	StatePending:   {StateImmediate, StateWaiting, StateCancelled},
	StateImmediate: {StateRendering},
	StateWaiting:   {StateRendering, StateCancelled},
	StateRendering: {StateComplete},
	StateComplete:  {},
	StateCancelled: {},
}

func (s State) Terminal() bool {
	return len(captureTransitions[s]) == 0
}

func (s State) canTransition(to State) bool {
	for _, next := range captureTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// stateMachine guards request transitions.
type stateMachine struct {
	current State
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) Transition(to State) error {
	if !m.current.canTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalState, m.current, to)
	}
	m.current = to
	return nil
}
