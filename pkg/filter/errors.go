package filter

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Sentinel errors.
var (
	ErrNilResult       = errors.New("handler returned no node")
	ErrHandlerPanic    = errors.New("handler panicked")
	ErrUnknownFilter   = errors.New("unknown filter")
	ErrDuplicateFilter = errors.New("duplicate filter")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// FilterError aborts a conversion when a handler fails. It names the filter,
// the kind of the node the handler was given and the node's source span.
//
//nolint:revive // FilterError reads better than Error at call sites.
type FilterError struct {
	Err    error
	Filter string
	Span   ast.Span
	Kind   ast.Kind
}

func (filterErr *FilterError) Error() string {
	return fmt.Sprintf("filter %q failed on %s at %s: %v", filterErr.Filter, filterErr.Kind, filterErr.Span, filterErr.Err)
}

func (filterErr *FilterError) Unwrap() error {
	return filterErr.Err
}
