// Package builtin assembles the catalog of filters shipped with rb2js.
package builtin

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/autoreturn"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/functions"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/nodejs"
)

// Filters returns the built-in filter descriptors.
func Filters() []filter.Filter {
	return []filter.Filter{
		functions.Filter(),
		autoreturn.Filter(),
		nodejs.Filter(),
	}
}

// Catalog returns a fresh catalog of the built-in filters.
func Catalog() *filter.Catalog {
	catalog, err := filter.NewCatalog(Filters()...)
	if err != nil {
		// The built-in set is fixed; a failure here is a programming error.
		panic(err)
	}

	return catalog
}
