package operations

import (
	"time"
)

// RunState is a step of the load run state machine
type RunState string

const (
	StateInitialized       RunState = "initialized"
	StateResolvingPrevDate RunState = "resolving_prev_date"
	StateExtracting        RunState = "extracting"
	StateLoading           RunState = "loading"
	StateCommitted         RunState = "committed"
	StateRolledBack        RunState = "rolled_back"
)

var transitions = map[RunState][]RunState{
	StateInitialized:       {StateResolvingPrevDate, StateRolledBack},
	StateResolvingPrevDate: {StateExtracting, StateRolledBack},
	StateExtracting:        {StateLoading, StateRolledBack},
	StateLoading:           {StateCommitted, StateRolledBack},
}

// IsTerminal reports whether the run ends in this state
func (s RunState) IsTerminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// CanTransition reports whether moving from s to next is allowed
func (s RunState) CanTransition(next RunState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition is passed to observers on every state change
type Transition struct {
	RunID string
	From  RunState
	To    RunState
	At    time.Time
	// Err is set when the run moves to rolled_back
	Err error
}

// Observer is notified synchronously of state transitions
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(t Transition)

// OnTransition implements Observer
func (f ObserverFunc) OnTransition(t Transition) {
	f(t)
}
