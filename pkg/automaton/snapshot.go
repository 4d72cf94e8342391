package automaton

import (
	"fmt"
	"slices"
)

// Snapshot is a detached copy of the run cursor, suitable for persistence.
type Snapshot[S comparable] struct {
	Current S   `json:"current"`
	History []S `json:"history"`
}

// Snapshot captures the cursor. The returned history does not alias the automaton's.
func (a *Automaton[S, A]) Snapshot() Snapshot[S] {
	return Snapshot[S]{
		Current: a.current,
		History: slices.Clone(a.history),
	}
}

// Restore replaces the cursor with a previously captured one.
// The snapshot must start at the initial state, end at Current and only mention declared states;
// otherwise ErrInvalidSnapshot is returned and the cursor is left as it was.
func (a *Automaton[S, A]) Restore(snap Snapshot[S]) error {
	if len(snap.History) == 0 {
		return fmt.Errorf("%w: empty history", ErrInvalidSnapshot)
	}
	if snap.History[0] != a.initial {
		return fmt.Errorf("%w: history starts at %v, want initial state %v", ErrInvalidSnapshot, snap.History[0], a.initial)
	}
	for i, s := range snap.History {
		if _, ok := a.stateSet[s]; !ok {
			return fmt.Errorf("%w: history[%d] = %v is not a declared state", ErrInvalidSnapshot, i, s)
		}
	}
	if last := snap.History[len(snap.History)-1]; last != snap.Current {
		return fmt.Errorf("%w: current state %v does not match last history entry %v", ErrInvalidSnapshot, snap.Current, last)
	}

	a.current = snap.Current
	a.history = slices.Clone(snap.History)
	return nil
}
