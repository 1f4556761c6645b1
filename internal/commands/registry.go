package commands

import "sync/atomic"

// Registry is an immutable snapshot of loaded commands keyed by name.
// Iteration order is the order in which names were first added.
type Registry struct {
	names  []string
	byName map[string]Command
}

// NewRegistry builds a registry from commands. When two commands share a
// name the later one replaces the earlier one and keeps its position.
// Nil commands are skipped.
func NewRegistry(cmds ...Command) *Registry {
	r := &Registry{byName: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		name := cmd.Name()
		if _, exists := r.byName[name]; !exists {
			r.names = append(r.names, name)
		}
		r.byName[name] = cmd
	}

	return r
}

// Get retrieves a command by its name.
func (r *Registry) Get(name string) (Command, bool) {
	if r == nil {
		return nil, false
	}
	cmd, ok := r.byName[name]

	return cmd, ok
}

// Names returns the command names in registry order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	return append([]string(nil), r.names...)
}

// Commands returns the commands in registry order.
func (r *Registry) Commands() []Command {
	if r == nil {
		return nil
	}
	out := make([]Command, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}

	return out
}

// Len returns the number of commands.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.names)
}

// Store publishes the current registry. The loader replaces the whole
// registry in one step, so readers see either the old or the new set.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore creates a store holding an empty registry.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewRegistry())

	return s
}

// Load returns the current registry.
func (s *Store) Load() *Registry {
	return s.current.Load()
}

// Swap publishes reg and returns the registry it replaced.
func (s *Store) Swap(reg *Registry) *Registry {
	if reg == nil {
		reg = NewRegistry()
	}

	return s.current.Swap(reg)
}
