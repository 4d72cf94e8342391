package modthree

import (
	"errors"
	"fmt"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/definition"
)

// DefinitionName is the registry name of the string-typed mod-three automaton.
const DefinitionName = "mod-three"

var (
	ErrEmptyInput   = errors.New("input binary string cannot be empty")
	ErrInvalidInput = errors.New("input must contain only '0's and '1's")
)

var alphabet = []rune{'0', '1'}

func table() automaton.Table[Remainder, rune] {
	return automaton.Table[Remainder, rune]{
		{State: R0, Symbol: '0'}: R0,
		{State: R0, Symbol: '1'}: R1,
		{State: R1, Symbol: '0'}: R2,
		{State: R1, Symbol: '1'}: R0,
		{State: R2, Symbol: '0'}: R1,
		{State: R2, Symbol: '1'}: R2,
	}
}

// Machine is the mod-three automaton with input validation in front of it.
// Like the automaton it wraps, it is not safe for concurrent use.
type Machine struct {
	fsm *automaton.Automaton[Remainder, rune]
}

// New builds a Machine. Options are passed to the underlying automaton.
func New(opts ...automaton.Option[Remainder, rune]) (*Machine, error) {
	fsm, err := automaton.New(Remainders(), alphabet, R0, Remainders(), table(), opts...)
	if err != nil {
		return nil, fmt.Errorf("modthree: %w", err)
	}
	fsm.Logger().Info("mod-three machine initialized")
	return &Machine{fsm: fsm}, nil
}

// MustNew is New for callers that pass no failing options. It panics on error.
func MustNew(opts ...automaton.Option[Remainder, rune]) *Machine {
	m, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate reports whether binary is a non-empty string of '0' and '1'.
func Validate(binary string) error {
	if binary == "" {
		return ErrEmptyInput
	}
	for i, r := range binary {
		if r != '0' && r != '1' {
			return fmt.Errorf("%w: found %q at position %d", ErrInvalidInput, r, i)
		}
	}
	return nil
}

// Remainder resets the machine, feeds binary most significant bit first and returns the remainder.
// Input is validated before the machine is touched.
func (m *Machine) Remainder(binary string) (int, error) {
	if err := Validate(binary); err != nil {
		return 0, err
	}
	m.fsm.Reset()
	final, err := m.fsm.Run([]rune(binary))
	if err != nil {
		return 0, m.convert(err)
	}
	return final.Value(), nil
}

// Process consumes a single bit and returns the new state.
// A symbol other than '0' or '1' leaves the state unchanged and yields ErrInvalidInput.
func (m *Machine) Process(bit rune) (Remainder, error) {
	next, err := m.fsm.Step(bit)
	if err != nil {
		return next, m.convert(err)
	}
	return next, nil
}

func (m *Machine) convert(err error) error {
	var stepErr *automaton.StepError
	if errors.As(err, &stepErr) && errors.Is(err, automaton.ErrUnknownSymbol) {
		return fmt.Errorf("%w: invalid input symbol %q at position %d, must be '0' or '1'",
			ErrInvalidInput, stepErr.Symbol, stepErr.Position)
	}
	return err
}

// Current returns the running remainder state.
func (m *Machine) Current() Remainder {
	return m.fsm.Current()
}

// History returns the states visited since the last reset, starting with R0.
func (m *Machine) History() []Remainder {
	return m.fsm.History()
}

// Reset returns the machine to R0.
func (m *Machine) Reset() {
	m.fsm.Reset()
}

// Automaton exposes the underlying engine for callers that need snapshots or lookups.
func (m *Machine) Automaton() *automaton.Automaton[Remainder, rune] {
	return m.fsm
}

func (m *Machine) String() string {
	return fmt.Sprintf("ModThree(state=%s, remainder=%d)", m.Current().Name(), m.Current().Value())
}

func (m *Machine) GoString() string {
	return fmt.Sprintf("ModThree(fsm=%#v, remainder=%d)", m.fsm, m.Current().Value())
}

// Compute returns binary mod 3 using a fresh machine.
func Compute(binary string) (int, error) {
	if err := Validate(binary); err != nil {
		return 0, err
	}
	return MustNew().Remainder(binary)
}

// Definition returns the mod-three automaton as a string-typed definition,
// with states named S0 to S2 and symbols "0" and "1".
func Definition() definition.Definition {
	def := definition.Definition{
		Name:        DefinitionName,
		Description: "Remainder of a binary number divided by three, most significant bit first.",
		Initial:     R0.Name(),
	}
	for _, r := range Remainders() {
		def.States = append(def.States, r.Name())
		def.Finals = append(def.Finals, r.Name())
	}
	for _, s := range alphabet {
		def.Alphabet = append(def.Alphabet, string(s))
	}
	rules := table()
	for _, from := range Remainders() {
		for _, s := range alphabet {
			to := rules[automaton.Key[Remainder, rune]{State: from, Symbol: s}]
			def.Transitions = append(def.Transitions, definition.Rule{
				From: from.Name(),
				On:   string(s),
				To:   to.Name(),
			})
		}
	}
	return def
}
