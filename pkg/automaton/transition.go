package automaton

// Key identifies a single rule of a transition table.
type Key[S, A comparable] struct {
	State  S
	Symbol A
}

// Table is the explicit form of a transition relation: (state, symbol) -> next state.
// Pairs without an entry have no rule.
type Table[S, A comparable] map[Key[S, A]]S

// TransitionFunc is the callable form of a transition relation.
// The boolean result reports whether a rule exists for (state, symbol).
type TransitionFunc[S, A comparable] func(state S, symbol A) (S, bool)

// Func returns the table as a TransitionFunc.
func (t Table[S, A]) Func() TransitionFunc[S, A] {
	return func(state S, symbol A) (S, bool) {
		next, ok := t[Key[S, A]{State: state, Symbol: symbol}]
		return next, ok
	}
}
