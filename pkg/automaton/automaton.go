package automaton

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/muhammadut/Finite-State-Machine/internal/logging"
)

// Automaton is a validated deterministic automaton together with its run cursor.
// The zero value is not usable; build one with New or NewFunc.
type Automaton[S, A comparable] struct {
	states   []S
	stateSet map[S]struct{}
	alphabet []A
	symbols  map[A]struct{}
	initial  S
	finals   []S
	finalSet map[S]struct{}
	delta    TransitionFunc[S, A]

	current S
	history []S

	hooks  []Hooks[S, A]
	logger *slog.Logger
}

// New builds an automaton whose relation is an explicit table.
// Every entry is checked against the declared states and alphabet. The table is copied.
func New[S, A comparable](states []S, alphabet []A, initial S, finals []S, table Table[S, A], opts ...Option[S, A]) (*Automaton[S, A], error) {
	a, err := build(states, alphabet, initial, finals, opts)
	if err != nil {
		return nil, err
	}
	if err := a.validateTable(table); err != nil {
		return nil, err
	}
	a.delta = maps.Clone(table).Func()
	a.logInit("table", len(table))
	return a, nil
}

// NewFunc builds an automaton whose relation is a function.
// The function is not inspected here; a destination outside the state set is reported by Step as
// ErrInvalidDestination.
func NewFunc[S, A comparable](states []S, alphabet []A, initial S, finals []S, fn TransitionFunc[S, A], opts ...Option[S, A]) (*Automaton[S, A], error) {
	if fn == nil {
		return nil, newConstructionError(ReasonMalformedContainer, "transition function is nil")
	}
	a, err := build(states, alphabet, initial, finals, opts)
	if err != nil {
		return nil, err
	}
	a.delta = fn
	a.logInit("func", -1)
	return a, nil
}

// build checks invariants shared by both relation forms, in order:
// container shape, initial membership, finals inclusion.
func build[S, A comparable](states []S, alphabet []A, initial S, finals []S, opts []Option[S, A]) (*Automaton[S, A], error) {
	if len(states) == 0 {
		return nil, newConstructionError(ReasonMalformedContainer, "states must be a non-empty set")
	}
	stateSet, dup, ok := toSet(states)
	if !ok {
		return nil, newConstructionError(ReasonMalformedContainer, "states must be a set: %v is declared twice", dup)
	}
	symbols, dupSym, ok := toSet(alphabet)
	if !ok {
		return nil, newConstructionError(ReasonMalformedContainer, "alphabet must be a set: %s is declared twice", display(dupSym))
	}
	finalSet, dupFinal, ok := toSet(finals)
	if !ok {
		return nil, newConstructionError(ReasonMalformedContainer, "final states must be a set: %v is declared twice", dupFinal)
	}

	if _, ok := stateSet[initial]; !ok {
		return nil, newConstructionError(ReasonInitialStateUnknown, "initial state %v is not in the set of states", initial)
	}

	var unknown []S
	for _, f := range finals {
		if _, ok := stateSet[f]; !ok {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return nil, newConstructionError(ReasonFinalStateUnknown, "final states %v are not in the set of states", unknown)
	}

	a := &Automaton[S, A]{
		states:   slices.Clone(states),
		stateSet: stateSet,
		alphabet: slices.Clone(alphabet),
		symbols:  symbols,
		initial:  initial,
		finals:   slices.Clone(finals),
		finalSet: finalSet,
		current:  initial,
		history:  []S{initial},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// validateTable checks all sources first, then all symbols, then all destinations, so the
// reported reason does not depend on map iteration order.
func (a *Automaton[S, A]) validateTable(table Table[S, A]) error {
	for k := range table {
		if _, ok := a.stateSet[k.State]; !ok {
			return newConstructionError(ReasonTransitionSourceUnknown, "transition from invalid state %v", k.State)
		}
	}
	for k := range table {
		if _, ok := a.symbols[k.Symbol]; !ok {
			return newConstructionError(ReasonTransitionSymbolUnknown, "transition with invalid symbol %s", display(k.Symbol))
		}
	}
	for k, next := range table {
		if _, ok := a.stateSet[next]; !ok {
			return newConstructionError(ReasonTransitionDestinationUnknown,
				"transition from %v on %s to invalid state %v", k.State, display(k.Symbol), next)
		}
	}
	return nil
}

func (a *Automaton[S, A]) logInit(form string, rules int) {
	attrs := []any{
		"states", len(a.states),
		"symbols", len(a.alphabet),
		"finals", len(a.finals),
		"relation", form,
	}
	if rules >= 0 {
		attrs = append(attrs, "rules", rules)
	}
	a.logger.Info("automaton initialized", attrs...)
}

// Step consumes one symbol.
//
// The symbol must belong to the alphabet, the relation must define a rule for (current, symbol) and
// the rule must lead to a declared state. On success the destination becomes current and is appended
// to the history. On failure the returned state is the unchanged current state and err is a *StepError.
func (a *Automaton[S, A]) Step(symbol A) (S, error) {
	return a.step(symbol, 0)
}

func (a *Automaton[S, A]) step(symbol A, pos int) (S, error) {
	from := a.current

	if _, ok := a.symbols[symbol]; !ok {
		return from, a.reject(&StepError{Kind: ErrUnknownSymbol, Position: pos, State: from, Symbol: symbol}, symbol)
	}

	next, ok := a.delta(from, symbol)
	if !ok {
		return from, a.reject(&StepError{Kind: ErrUndefinedTransition, Position: pos, State: from, Symbol: symbol}, symbol)
	}

	if _, ok := a.stateSet[next]; !ok {
		return from, a.reject(&StepError{
			Kind:        ErrInvalidDestination,
			Position:    pos,
			State:       from,
			Symbol:      symbol,
			Destination: next,
		}, symbol)
	}

	a.current = next
	a.history = append(a.history, next)

	a.logger.Debug("transition", "from", from, "symbol", display(symbol), "to", next)
	ev := TransitionEvent[S, A]{From: from, Symbol: symbol, To: next, Step: len(a.history) - 1}
	for _, h := range a.hooks {
		if h.OnTransition != nil {
			h.OnTransition(ev)
		}
	}
	return next, nil
}

func (a *Automaton[S, A]) reject(err *StepError, symbol A) error {
	a.logger.Debug("symbol rejected", "state", a.current, "symbol", display(symbol), "err", err)
	ev := RejectEvent[S, A]{State: a.current, Symbol: symbol, Err: err}
	for _, h := range a.hooks {
		if h.OnReject != nil {
			h.OnReject(ev)
		}
	}
	return err
}

// Run consumes symbols in order and stops at the first failure.
// Symbols consumed before the failure remain applied. An empty input is a no-op.
// The returned state is the current state after the run, whether or not it failed.
func (a *Automaton[S, A]) Run(symbols []A) (S, error) {
	return a.RunSeq(slices.Values(symbols))
}

// RunSeq is Run over a lazily produced sequence. Iteration stops at the first failure.
func (a *Automaton[S, A]) RunSeq(symbols iter.Seq[A]) (S, error) {
	pos := 0
	for symbol := range symbols {
		if _, err := a.step(symbol, pos); err != nil {
			return a.current, err
		}
		pos++
	}
	return a.current, nil
}

// Accepts resets the automaton, runs the input and reports whether it ended in a final state.
func (a *Automaton[S, A]) Accepts(symbols []A) (bool, error) {
	a.Reset()
	if _, err := a.Run(symbols); err != nil {
		return false, err
	}
	return a.IsAccepting(), nil
}

// Reset moves the cursor back to the initial state and clears the history.
func (a *Automaton[S, A]) Reset() {
	a.current = a.initial
	a.history = []S{a.initial}

	a.logger.Debug("automaton reset", "state", a.initial)
	for _, h := range a.hooks {
		if h.OnReset != nil {
			h.OnReset(a.initial)
		}
	}
}

// Current returns the state the automaton is in.
func (a *Automaton[S, A]) Current() S {
	return a.current
}

// Initial returns q0.
func (a *Automaton[S, A]) Initial() S {
	return a.initial
}

// IsAccepting reports whether the current state is final.
func (a *Automaton[S, A]) IsAccepting() bool {
	_, ok := a.finalSet[a.current]
	return ok
}

// IsFinal reports whether s is one of the final states.
func (a *Automaton[S, A]) IsFinal(s S) bool {
	_, ok := a.finalSet[s]
	return ok
}

// History returns a copy of every state occupied since the last reset, the initial state first.
func (a *Automaton[S, A]) History() []S {
	return slices.Clone(a.history)
}

// Len returns the number of symbols accepted since the last reset.
func (a *Automaton[S, A]) Len() int {
	return len(a.history) - 1
}

// States returns a copy of the declared states in declaration order.
func (a *Automaton[S, A]) States() []S {
	return slices.Clone(a.states)
}

// Alphabet returns a copy of the declared symbols in declaration order.
func (a *Automaton[S, A]) Alphabet() []A {
	return slices.Clone(a.alphabet)
}

// Finals returns a copy of the final states in declaration order.
func (a *Automaton[S, A]) Finals() []S {
	return slices.Clone(a.finals)
}

// Logger returns the logger set with WithLogger, or a no-op logger.
func (a *Automaton[S, A]) Logger() *slog.Logger {
	return a.logger
}

// Lookup queries the relation without moving the cursor.
// It reports false for symbols outside the alphabet and for missing rules.
func (a *Automaton[S, A]) Lookup(state S, symbol A) (S, bool) {
	if _, ok := a.symbols[symbol]; !ok {
		var zero S
		return zero, false
	}
	return a.delta(state, symbol)
}

func (a *Automaton[S, A]) String() string {
	status := "non-accepting"
	if a.IsAccepting() {
		status = "accepting"
	}
	return fmt.Sprintf("FSM(state=%v, %s, states=%d)", a.current, status, len(a.states))
}

// GoString prints the full 5-tuple alongside the cursor, for %#v.
func (a *Automaton[S, A]) GoString() string {
	return fmt.Sprintf("Automaton(states=%v, alphabet=%v, initial=%v, finals=%v, current=%v, history=%v)",
		a.states, a.alphabet, a.initial, a.finals, a.current, a.history)
}

// toSet indexes items and reports the first duplicate, if any.
func toSet[T comparable](items []T) (map[T]struct{}, T, bool) {
	set := make(map[T]struct{}, len(items))
	for _, it := range items {
		if _, seen := set[it]; seen {
			return nil, it, false
		}
		set[it] = struct{}{}
	}
	var zero T
	return set, zero, true
}
