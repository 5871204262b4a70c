// prop_cache implements the computed-property cache backing the views:
// raw properties are the source of truth, computed entries derive display
// values from them with memoization, and a write to any property eagerly
// invalidates every computed entry reachable from it. Recomputation stays
// lazy: it happens on the next Get, so several writes between reads cost
// only the book-keeping of flipping validity flags.
package prop_cache

import (
	"errors"
	"fmt"
)

// Values holds the current values of a computed entry's dependencies,
// keyed by dependency name.
type Values map[string]any

// ComputeFunc derives a value from the passed dependency values. It must
// read only the dependencies declared for it; the cache performs no
// dynamic tracing and cannot detect an undeclared read.
type ComputeFunc func(deps Values) any

// ErrDuplicateName is returned by Declare when the name collides with an
// existing computed entry or an already-written raw property.
var ErrDuplicateName error = errors.New("name already declared")

// ErrCycle is returned by Declare when the new entry would make its own
// name reachable from one of its dependencies.
var ErrCycle error = errors.New("dependency cycle")

// ErrComputedProperty is returned by Set when the target name belongs to
// a computed entry; computed values change only through their dependencies.
var ErrComputedProperty error = errors.New("cannot set a computed property")

type entry struct {
	deps    []string
	compute ComputeFunc
	cached  any
	valid   bool
}

// Cache owns a view's raw properties and computed entries. It is not
// internally synchronized: confine each cache to a single goroutine, as
// the views do by running all writes and reads on their update channel.
type Cache struct {
	raw     map[string]any
	entries map[string]*entry
	// dependents is the reverse adjacency of the dependency DAG:
	// name -> computed entries that list it as a dependency.
	dependents map[string][]string
}

func NewCache() *Cache {
	return &Cache{
		raw:        map[string]any{},
		entries:    map[string]*entry{},
		dependents: map[string][]string{},
	}
}

// Declare registers a computed entry under name, derived from deps.
// A dependency may name a raw property, another computed entry, or nothing
// yet; undeclared names are treated as raw properties that read as nil
// until first written. The failing Declare registers nothing.
func (c *Cache) Declare(name string, deps []string, compute ComputeFunc) error {
	if compute == nil {
		return fmt.Errorf("declare %q: nil compute function", name)
	}
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("declare %q: %w", name, ErrDuplicateName)
	}
	if _, ok := c.raw[name]; ok {
		return fmt.Errorf("declare %q: %w", name, ErrDuplicateName)
	}
	for _, dep := range deps {
		if c.reaches(dep, name) {
			return fmt.Errorf("declare %q via %q: %w", name, dep, ErrCycle)
		}
	}

	c.entries[name] = &entry{deps: deps, compute: compute}
	for _, dep := range deps {
		c.dependents[dep] = append(c.dependents[dep], name)
	}
	return nil
}

// reaches reports whether target is reachable from name along dependency
// edges. The graph is acyclic by construction, so the walk terminates.
func (c *Cache) reaches(name, target string) bool {
	if name == target {
		return true
	}
	ent, ok := c.entries[name]
	if !ok {
		return false
	}
	for _, dep := range ent.deps {
		if c.reaches(dep, target) {
			return true
		}
	}
	return false
}

// Get returns the current value of a raw property or computed entry.
// A stale computed entry is recomputed against the current values of its
// dependencies and re-cached; a valid one is returned as-is with no side
// effects. A never-written raw property reads as nil.
func (c *Cache) Get(name string) (any, error) {
	ent, ok := c.entries[name]
	if !ok {
		return c.raw[name], nil
	}
	if !ent.valid {
		vals := make(Values, len(ent.deps))
		for _, dep := range ent.deps {
			val, err := c.Get(dep)
			if err != nil {
				return nil, fmt.Errorf("get %q: %w", name, err)
			}
			vals[dep] = val
		}
		ent.cached = ent.compute(vals)
		ent.valid = true
	}
	return ent.cached, nil
}

// Set writes a raw property and eagerly invalidates every computed entry
// reachable from it. Writing a value equal to the previous one still
// invalidates: comparison semantics belong to the caller, not the cache.
func (c *Cache) Set(name string, value any) error {
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("set %q: %w", name, ErrComputedProperty)
	}
	c.raw[name] = value
	c.invalidate(name)
	return nil
}

// invalidate walks the dependents adjacency, flipping validity flags.
// An already-invalid entry is skipped: a valid entry implies all of its
// transitive dependencies are valid, so everything below an invalid entry
// was invalidated when it was.
func (c *Cache) invalidate(name string) {
	for _, dep := range c.dependents[name] {
		ent := c.entries[dep]
		if !ent.valid {
			continue
		}
		ent.valid = false
		c.invalidate(dep)
	}
}
