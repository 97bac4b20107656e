package disease

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Catalog is the immutable set of disease definitions.
// It is safe for concurrent reads once built.
type Catalog struct {
	defs   []Definition
	byName map[string]ID
}

// NewCatalog builds a catalog from definitions, assigning dense IDs in order.
// Any ID already set on the input is overwritten.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) > int(^ID(0)) {
		return nil, fmt.Errorf("too many diseases: %d", len(defs))
	}

	c := &Catalog{
		defs:   make([]Definition, len(defs)),
		byName: make(map[string]ID, len(defs)),
	}
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("disease %d has no name", i)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("duplicate disease %q", name)
		}
		def.ID = ID(i)
		def.Name = name
		c.defs[i] = def
		c.byName[name] = def.ID
	}
	return c, nil
}

// Lookup returns the definition for id. Unknown ids return false and
// callers must skip whatever they were about to do.
func (c *Catalog) Lookup(id ID) (*Definition, bool) {
	if c == nil || int(id) >= len(c.defs) {
		return nil, false
	}
	return &c.defs[id], true
}

// Resolve maps a disease name to its ID.
func (c *Catalog) Resolve(name string) (ID, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.byName[name]
	return id, ok
}

// MustResolve is like Resolve but panics on unknown names.
// Intended for tests and embedded fixtures.
func (c *Catalog) MustResolve(name string) ID {
	id, ok := c.Resolve(name)
	if !ok {
		panic(fmt.Sprintf("disease: unknown disease %q", name))
	}
	return id
}

// Name returns the name for id, or a placeholder for unknown ids.
func (c *Catalog) Name(id ID) string {
	if def, ok := c.Lookup(id); ok {
		return def.Name
	}
	return fmt.Sprintf("disease#%d", id)
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// All returns the definitions in ID order. The slice must not be modified.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	return c.defs
}

// Suggest returns up to n known names closest to name by edit distance,
// nearest first. Names more than half their length away are dropped.
func (c *Catalog) Suggest(name string, n int) []string {
	if c == nil || n <= 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	var results []scored
	for _, def := range c.defs {
		dist := levenshtein.ComputeDistance(name, def.Name)
		limit := len(def.Name) / 2
		if limit < 1 {
			limit = 1
		}
		if dist > limit {
			continue
		}
		results = append(results, scored{name: def.Name, dist: dist})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].dist == results[j].dist {
			return results[i].name < results[j].name
		}
		return results[i].dist < results[j].dist
	})

	if len(results) > n {
		results = results[:n]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.name
	}
	return out
}
