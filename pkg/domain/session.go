package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
)

// Session is the persisted run of one machine.
// Current and History mirror an automaton snapshot; Accepting is derived when the session is saved.
type Session struct {
	ID        string    `json:"id"`
	Machine   string    `json:"machine"`
	Current   string    `json:"current"`
	History   []string  `json:"history"`
	Accepting bool      `json:"accepting"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed is set only on envelopes written by an encrypting store; the cursor fields are then empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession records the cursor of a freshly built automaton.
func NewSession(id, machine string, a *automaton.Automaton[string, string], now time.Time) *Session {
	s := &Session{
		ID:        id,
		Machine:   machine,
		CreatedAt: now,
	}
	s.Apply(a, now)
	return s
}

// Apply copies the automaton's cursor into the session.
func (s *Session) Apply(a *automaton.Automaton[string, string], now time.Time) {
	snap := a.Snapshot()
	s.Current = snap.Current
	s.History = snap.History
	s.Accepting = a.IsAccepting()
	s.UpdatedAt = now
}

// Snapshot returns the cursor in the form accepted by automaton.Restore.
func (s *Session) Snapshot() automaton.Snapshot[string] {
	return automaton.Snapshot[string]{
		Current: s.Current,
		History: slices.Clone(s.History),
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.History = slices.Clone(s.History)
	return &c
}

// Len returns the number of symbols consumed since the session was started or last reset.
func (s *Session) Len() int {
	return max(len(s.History)-1, 0)
}

// ValidateID accepts non-empty IDs made of letters, digits, '-', '_' and '.', not starting with '.' or '_'.
// Such IDs are safe as file names and Redis key suffixes. Names starting with '_' are reserved for
// store bookkeeping.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if id[0] == '.' || id[0] == '_' {
		return fmt.Errorf("%w: %q starts with %q", ErrInvalidSessionID, id, id[0])
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidSessionID, id, r)
		}
	}
	return nil
}
