/*
Package automaton implements a deterministic finite automaton over caller-defined state and symbol types.

An Automaton is the formal 5-tuple (Q, Σ, q0, F, δ) plus a run cursor. The tuple is validated once at
construction and never changes afterwards; the cursor (current state and history) moves one symbol at a time
and can be reset any number of times.

# Transition relations

The relation δ can be supplied in two forms:

  - a Table, validated entry by entry when the automaton is built;
  - a TransitionFunc, which is trusted at construction and checked at every step instead.

Both forms may be partial. A missing rule surfaces as ErrUndefinedTransition when it is hit, it is not a
construction error.

# Usage

	type light string

	const (
		red   light = "red"
		green light = "green"
	)

	a, err := automaton.New(
		[]light{red, green},
		[]string{"go", "stop"},
		red,
		[]light{green},
		automaton.Table[light, string]{
			{State: red, Symbol: "go"}:     green,
			{State: green, Symbol: "stop"}: red,
		},
	)
	if err != nil {
		log.Fatal(err)
	}

	state, err := a.Run([]string{"go", "stop", "go"})
	// state == green, a.IsAccepting() == true, len(a.History()) == 4

# Errors

Construction failures are reported as *ConstructionError carrying a Reason. Step failures are reported as
*StepError wrapping one of ErrUnknownSymbol, ErrUndefinedTransition or ErrInvalidDestination, so both
errors.Is and errors.As work:

	if errors.Is(err, automaton.ErrUnknownSymbol) { ... }

A failed Step leaves the cursor untouched. Run is not atomic across symbols: symbols consumed before the
failing one stay applied.

# Concurrency

An Automaton is a single mutable resource and is not safe for concurrent use. Give each goroutine its own
instance (construction is cheap), or guard it externally; see package session for a keyed lock manager.
*/
package automaton
