package convert

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Sentinel errors.
var (
	ErrNotImplemented    = errors.New("construct not implemented")
	ErrStatementShaped   = errors.New("statement-shaped output in expression position")
	ErrBreakOutsideLoop  = errors.New("break cannot leave a callback")
	ErrReturnInCallback  = errors.New("return cannot leave the method from a callback")
	ErrUnsupportedTarget = errors.New("unsupported assignment target")
)

// NotImplementedError reports a construct the converter has no rendering
// for at the configured level. It aborts conversion.
type NotImplementedError struct {
	Err    error
	Reason string
	Span   ast.Span
	Kind   ast.Kind
}

func (notImpl *NotImplementedError) Error() string {
	if notImpl.Reason == "" {
		return fmt.Sprintf("%s not implemented at %s", notImpl.Kind, notImpl.Span)
	}

	return fmt.Sprintf("%s not implemented at %s: %s", notImpl.Kind, notImpl.Span, notImpl.Reason)
}

// Is makes errors.Is(err, ErrNotImplemented) hold.
func (notImpl *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

func (notImpl *NotImplementedError) Unwrap() error {
	return notImpl.Err
}

func notImplemented(node *ast.Node, format string, args ...any) *NotImplementedError {
	return &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Reason: fmt.Sprintf(format, args...)}
}
