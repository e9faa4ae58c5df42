package contract

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry maps contract type names to their definitions.
type Registry struct {
	defs map[string]*Definition
}

func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil {
			return nil, fmt.Errorf("contract definition is nil")
		}
		if _, ok := r.defs[d.Name]; ok {
			return nil, fmt.Errorf("contract %q is already registered", d.Name)
		}
		r.defs[d.Name] = d
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, registered types: %s", ErrUnknownContract, name, strings.Join(r.Names(), ", "))
	}
	return d, nil
}

// Names returns sorted list of registered contract types.
func (r *Registry) Names() []string {
	names := maps.Keys(r.defs)
	slices.Sort(names)
	return names
}
