package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/definition"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
)

var (
	ErrDefinitionNotFound  = errors.New("definition not found")
	ErrDuplicateDefinition = errors.New("definition already registered")
)

// Registry manages the available machine definitions.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]definition.Definition
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]definition.Definition),
	}
}

// Default returns a registry holding the built-in mod-three definition.
func Default() *Registry {
	r := NewRegistry()
	if err := r.Register(modthree.Definition()); err != nil {
		panic(err)
	}
	return r
}

// Register adds a definition to the registry.
// The definition must validate and build; a name already in use is rejected.
func (r *Registry) Register(def definition.Definition) error {
	if _, err := def.Build(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.Name)
	}
	r.defs[def.Name] = def.Clone()
	return nil
}

// LoadDir registers every definition found in dir.
func (r *Registry) LoadDir(dir string) error {
	defs, err := definition.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a definition by name. The result is a copy.
func (r *Registry) Get(name string) (definition.Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok {
		return definition.Definition{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return def.Clone(), nil
}

// Names returns the registered names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build looks up a definition and returns a fresh automaton for it.
// Each call returns an independent instance.
func (r *Registry) Build(name string, opts ...automaton.Option[string, string]) (*automaton.Automaton[string, string], error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return def.Build(opts...)
}
