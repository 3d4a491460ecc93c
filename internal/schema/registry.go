package schema

import (
	"fmt"
	"sort"
)

type columnKey struct {
	table  string
	column string
}

// Registry is the static schema of one data source, indexed once at startup.
type Registry struct {
	source     DataSource
	dimensions []*Dimension
	byTable    map[string]*Dimension
	byColumn   map[columnKey]*Attribute
}

// NewRegistry indexes the dimensions by (table, column). Both the column parsed
// from an attribute's expression and its display name are indexed, so
// "[Opportunities.Close Date (Calendar)]" and "Close Date" resolve alike.
func NewRegistry(source DataSource, dims ...*Dimension) (*Registry, error) {
	r := &Registry{
		source:     source,
		dimensions: dims,
		byTable:    make(map[string]*Dimension, len(dims)),
		byColumn:   make(map[columnKey]*Attribute),
	}
	seen := make(map[string]bool)
	for _, d := range dims {
		if _, dup := r.byTable[d.Name]; dup {
			return nil, fmt.Errorf("duplicate dimension %q", d.Name)
		}
		r.byTable[d.Name] = d
		for _, a := range d.Attributes {
			table, column, ok := ParseExpression(a.Expression)
			if !ok {
				return nil, fmt.Errorf("attribute %q: malformed expression %q", a.Name, a.Expression)
			}
			if table != d.Name {
				return nil, fmt.Errorf("attribute %q: expression table %q does not match dimension %q", a.Name, table, d.Name)
			}
			if seen[a.Expression] {
				return nil, fmt.Errorf("duplicate expression %q", a.Expression)
			}
			seen[a.Expression] = true
			keys := []string{column}
			if a.Name != column {
				keys = append(keys, a.Name)
			}
			for _, k := range keys {
				if prev, dup := r.byColumn[columnKey{table, k}]; dup {
					return nil, fmt.Errorf("attribute %q: %s.%s already resolves to %q", a.Name, table, k, prev.Name)
				}
				r.byColumn[columnKey{table, k}] = a
			}
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for the static registries declared in this package.
func MustRegistry(source DataSource, dims ...*Dimension) *Registry {
	r, err := NewRegistry(source, dims...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) DataSource() DataSource {
	return r.source
}

func (r *Registry) Dimensions() []*Dimension {
	return r.dimensions
}

// FindAttribute resolves a (table, column) pair.
func (r *Registry) FindAttribute(table, column string) (*Attribute, error) {
	if _, ok := r.byTable[table]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	a, ok := r.byColumn[columnKey{table, column}]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}
	return a, nil
}

// MustAttribute is FindAttribute for references known at compile time.
func (r *Registry) MustAttribute(table, column string) *Attribute {
	a, err := r.FindAttribute(table, column)
	if err != nil {
		panic(err)
	}
	return a
}

// Catalog holds the registries of every known data source.
type Catalog struct {
	registries map[string]*Registry
	fallback   *Registry
}

func NewCatalog(fallback *Registry, others ...*Registry) *Catalog {
	c := &Catalog{
		registries: map[string]*Registry{fallback.source.Title: fallback},
		fallback:   fallback,
	}
	for _, r := range others {
		c.registries[r.source.Title] = r
	}
	return c
}

// Lookup returns the registry for a data source title. Unknown or empty
// titles get the default registry and ok=false.
func (c *Catalog) Lookup(title string) (*Registry, bool) {
	if r, ok := c.registries[title]; ok {
		return r, true
	}
	return c.fallback, false
}

func (c *Catalog) Default() *Registry {
	return c.fallback
}

// Titles lists the registered data source titles in sorted order.
func (c *Catalog) Titles() []string {
	out := make([]string, 0, len(c.registries))
	for t := range c.registries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
