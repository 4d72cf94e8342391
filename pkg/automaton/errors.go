package automaton

import (
	"errors"
	"fmt"
)

// Reason classifies why an automaton could not be constructed.
type Reason string

const (
	// ReasonMalformedContainer: a set-valued input holds duplicates, the state set is empty,
	// or the transition function is nil.
	ReasonMalformedContainer Reason = "malformed_container"

	// ReasonInitialStateUnknown: the initial state is not a declared state.
	ReasonInitialStateUnknown Reason = "initial_state_unknown"

	// ReasonFinalStateUnknown: at least one final state is not a declared state.
	ReasonFinalStateUnknown Reason = "final_state_unknown"

	// ReasonTransitionSourceUnknown: a table entry starts from an undeclared state.
	ReasonTransitionSourceUnknown Reason = "transition_source_unknown"

	// ReasonTransitionSymbolUnknown: a table entry consumes a symbol outside the alphabet.
	ReasonTransitionSymbolUnknown Reason = "transition_symbol_unknown"

	// ReasonTransitionDestinationUnknown: a table entry leads to an undeclared state.
	ReasonTransitionDestinationUnknown Reason = "transition_destination_unknown"
)

// ConstructionError is returned by New and NewFunc when the 5-tuple is not well formed.
// No automaton is returned alongside it.
type ConstructionError struct {
	Reason  Reason
	Message string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("automaton: %s: %s", e.Reason, e.Message)
}

func newConstructionError(reason Reason, format string, args ...any) *ConstructionError {
	return &ConstructionError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConstructionError reports whether err is a *ConstructionError.
// A non-empty reason additionally requires the reasons to match.
func IsConstructionError(err error, reason Reason) bool {
	var ce *ConstructionError
	if !errors.As(err, &ce) {
		return false
	}
	return reason == "" || ce.Reason == reason
}

var (
	// ErrUnknownSymbol is the kind of a step that consumed a symbol outside the alphabet.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUndefinedTransition is the kind of a step for which the relation has no rule.
	ErrUndefinedTransition = errors.New("undefined transition")

	// ErrInvalidDestination is the kind of a step whose rule produced an undeclared state.
	// Only a TransitionFunc can cause it; tables are checked at construction.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrInvalidSnapshot is returned by Restore for a snapshot this automaton could not have produced.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// StepError describes a rejected symbol. It unwraps to its Kind.
type StepError struct {
	Kind error

	// Position is the index of the symbol within the Run input (0 for Step).
	Position int

	State       any
	Symbol      any
	Destination any
}

func (e *StepError) Error() string {
	switch e.Kind {
	case ErrUnknownSymbol:
		return fmt.Sprintf("unknown symbol %q at position %d", display(e.Symbol), e.Position)
	case ErrUndefinedTransition:
		return fmt.Sprintf("no transition defined for state %q and symbol %q at position %d",
			display(e.State), display(e.Symbol), e.Position)
	case ErrInvalidDestination:
		return fmt.Sprintf("transition from state %q on symbol %q leads to undeclared state %q at position %d",
			display(e.State), display(e.Symbol), display(e.Destination), e.Position)
	default:
		return fmt.Sprintf("%v at position %d", e.Kind, e.Position)
	}
}

func (e *StepError) Unwrap() error {
	return e.Kind
}

// Kind maps an engine error to a stable identifier, suitable for wire formats and metric labels.
// Errors that did not come from this package map to "unknown".
func Kind(err error) string {
	var ce *ConstructionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return string(ce.Reason)
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrUndefinedTransition):
		return "undefined_transition"
	case errors.Is(err, ErrInvalidDestination):
		return "invalid_destination"
	case errors.Is(err, ErrInvalidSnapshot):
		return "invalid_snapshot"
	default:
		return "unknown"
	}
}

// display renders a state or symbol for messages. Runes print as characters rather than code points.
func display(v any) string {
	if r, ok := v.(rune); ok {
		return string(r)
	}
	return fmt.Sprint(v)
}
