// Package fsm defines the recording session states and the legal transitions between them.
package fsm

import "fmt"

type State string

type Event string

const (
	StateReady      State = "ready"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateShowing    State = "showing"
	StateError      State = "error"
)

const (
	EventStart      Event = "start"
	EventStop       Event = "stop"
	EventTimeout    Event = "timeout"
	EventRecognized Event = "recognized"
	EventFail       Event = "fail"
	EventDismiss    Event = "dismiss"
	EventCancel     Event = "cancel"
)

// Transition returns the state reached from current on event.
// Sessions only move forward; Ready is re-entered through dismiss or cancel.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateReady:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop, EventTimeout:
			return StateProcessing, nil
		case EventFail:
			return StateError, nil
		case EventCancel:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventRecognized:
			return StateShowing, nil
		case EventFail:
			return StateError, nil
		case EventCancel:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateShowing, StateError:
		switch event {
		case EventDismiss, EventCancel:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Terminal reports whether state ends a cycle and waits for a dismissing tap.
func Terminal(state State) bool {
	return state == StateShowing || state == StateError
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
