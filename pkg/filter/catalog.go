package filter

import (
	"fmt"
	"slices"
)

// Catalog is an explicit set of available filters. There is no global
// registry: callers assemble the catalog they want and pass it around.
type Catalog struct {
	byName map[string]Filter
	names  []string
}

// NewCatalog indexes filters by name.
func NewCatalog(filters ...Filter) (*Catalog, error) {
	catalog := &Catalog{byName: make(map[string]Filter, len(filters))}

	for _, flt := range filters {
		if err := catalog.add(flt); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

// With returns a new catalog holding the receiver's filters plus filters.
func (catalog *Catalog) With(filters ...Filter) (*Catalog, error) {
	existing := catalog.Filters()

	return NewCatalog(append(existing, filters...)...)
}

func (catalog *Catalog) add(flt Filter) error {
	if flt.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidFilter)
	}

	if _, exists := catalog.byName[flt.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFilter, flt.Name)
	}

	for _, registration := range flt.Handlers {
		if registration.Handler == nil || !registration.Kind.Valid() {
			return fmt.Errorf("%w: %q has an incomplete registration for %s", ErrInvalidFilter, flt.Name, registration.Kind)
		}
	}

	catalog.byName[flt.Name] = flt
	catalog.names = append(catalog.names, flt.Name)

	return nil
}

// Lookup returns the filter registered under name.
func (catalog *Catalog) Lookup(name string) (Filter, bool) {
	flt, ok := catalog.byName[name]

	return flt, ok
}

// Names returns filter names in the order they were added.
func (catalog *Catalog) Names() []string {
	return slices.Clone(catalog.names)
}

// Filters returns the filters in the order they were added.
func (catalog *Catalog) Filters() []Filter {
	filters := make([]Filter, 0, len(catalog.names))
	for _, name := range catalog.names {
		filters = append(filters, catalog.byName[name])
	}

	return filters
}
