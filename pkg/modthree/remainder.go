package modthree

import "fmt"

// Remainder is a state of the mod-three automaton. Its value is the remainder it represents.
type Remainder int

const (
	R0 Remainder = iota
	R1
	R2
)

// Remainders lists every state in declaration order.
func Remainders() []Remainder {
	return []Remainder{R0, R1, R2}
}

// Value returns the remainder as an int.
func (r Remainder) Value() int {
	return int(r)
}

// Name returns the conventional state label, S0 to S2.
func (r Remainder) Name() string {
	return fmt.Sprintf("S%d", int(r))
}

func (r Remainder) String() string {
	return r.Name()
}
