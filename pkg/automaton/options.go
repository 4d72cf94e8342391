package automaton

import "log/slog"

// TransitionEvent is emitted after a symbol has been accepted.
type TransitionEvent[S, A comparable] struct {
	From   S
	Symbol A
	To     S

	// Step counts the symbols accepted since the last reset, this one included.
	Step int
}

// RejectEvent is emitted when a step fails. The cursor has not moved.
type RejectEvent[S, A comparable] struct {
	State  S
	Symbol A
	Err    error
}

// Hooks are optional observers of the run cursor. Nil fields are skipped.
// Hooks run synchronously inside Step, Run and Reset and must not call back into the automaton.
type Hooks[S, A comparable] struct {
	OnTransition func(TransitionEvent[S, A])
	OnReject     func(RejectEvent[S, A])
	OnReset      func(initial S)
}

// Option configures an Automaton at construction.
type Option[S, A comparable] func(*Automaton[S, A])

// WithHooks registers observers. It can be given more than once; hooks run in registration order.
func WithHooks[S, A comparable](hooks Hooks[S, A]) Option[S, A] {
	return func(a *Automaton[S, A]) {
		a.hooks = append(a.hooks, hooks)
	}
}

// WithLogger sets the structured logger. Construction is logged at Info, transitions and resets at Debug.
// A nil logger is ignored.
func WithLogger[S, A comparable](logger *slog.Logger) Option[S, A] {
	return func(a *Automaton[S, A]) {
		if logger != nil {
			a.logger = logger
		}
	}
}
