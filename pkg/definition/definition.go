// Package definition describes automata as data.
//
// A Definition is the serialisable form of a string-typed automaton. It is read from YAML or JSON
// and turned into a running *automaton.Automaton by Build, which leaves every well-formedness
// check to the engine.
package definition

import (
	"errors"
	"fmt"
	"slices"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
)

var (
	ErrMissingName    = errors.New("definition has no name")
	ErrDuplicateRule  = errors.New("duplicate transition rule")
	ErrUnknownFormat  = errors.New("unknown definition format")
	ErrEmptyDirectory = errors.New("no definitions found")
)

// Rule is one entry of the transition table: reading On in From moves to To.
type Rule struct {
	From string `mapstructure:"from" json:"from" yaml:"from"`
	On   string `mapstructure:"on" json:"on" yaml:"on"`
	To   string `mapstructure:"to" json:"to" yaml:"to"`
}

// Definition is a named 5-tuple over string states and string symbols.
type Definition struct {
	Name        string   `mapstructure:"name" json:"name" yaml:"name"`
	Description string   `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	States      []string `mapstructure:"states" json:"states" yaml:"states"`
	Alphabet    []string `mapstructure:"alphabet" json:"alphabet" yaml:"alphabet"`
	Initial     string   `mapstructure:"initial" json:"initial" yaml:"initial"`
	Finals      []string `mapstructure:"finals" json:"finals" yaml:"finals"`
	Transitions []Rule   `mapstructure:"transitions" json:"transitions" yaml:"transitions"`
}

// Clone returns a copy that shares no slices with d.
func (d Definition) Clone() Definition {
	d.States = slices.Clone(d.States)
	d.Alphabet = slices.Clone(d.Alphabet)
	d.Finals = slices.Clone(d.Finals)
	d.Transitions = slices.Clone(d.Transitions)
	return d
}

// Table converts the rule list into an engine table.
// Two rules for the same (from, on) pair are rejected even when they agree.
func (d Definition) Table() (automaton.Table[string, string], error) {
	table := make(automaton.Table[string, string], len(d.Transitions))
	for i, r := range d.Transitions {
		k := automaton.Key[string, string]{State: r.From, Symbol: r.On}
		if _, exists := table[k]; exists {
			return nil, fmt.Errorf("%w: transitions[%d] redefines (%s, %s)", ErrDuplicateRule, i, r.From, r.On)
		}
		table[k] = r.To
	}
	return table, nil
}

// Validate checks what the engine cannot: a name and a rule list without clashes.
func (d Definition) Validate() error {
	if d.Name == "" {
		return ErrMissingName
	}
	_, err := d.Table()
	return err
}

// Build constructs a fresh automaton from the definition.
func (d Definition) Build(opts ...automaton.Option[string, string]) (*automaton.Automaton[string, string], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	table, err := d.Table()
	if err != nil {
		return nil, err
	}
	a, err := automaton.New(d.States, d.Alphabet, d.Initial, d.Finals, table, opts...)
	if err != nil {
		return nil, fmt.Errorf("definition %q: %w", d.Name, err)
	}
	return a, nil
}
