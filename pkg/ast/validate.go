package ast

import (
	"errors"
	"fmt"
)

// ErrMalformedTree is the sentinel matched by every MalformedTreeError.
var ErrMalformedTree = errors.New("malformed syntax tree")

// MalformedTreeError reports a structurally invalid tree. It is fatal: no
// stage attempts to recover from it.
type MalformedTreeError struct {
	Reason string
	Span   Span
	Kind   Kind
}

func (malformed *MalformedTreeError) Error() string {
	return fmt.Sprintf("malformed %s node at %s: %s", malformed.Kind, malformed.Span, malformed.Reason)
}

// Is makes errors.Is(err, ErrMalformedTree) hold.
func (malformed *MalformedTreeError) Is(target error) bool {
	return target == ErrMalformedTree
}

// Malformed builds a MalformedTreeError for node.
func Malformed(node *Node, format string, args ...any) *MalformedTreeError {
	return &MalformedTreeError{Kind: node.Kind(), Span: node.Span(), Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every node in the tree for a known kind and a child count
// inside the kind's arity. It stops at the first problem.
func Validate(root *Node) error {
	if root == nil {
		return &MalformedTreeError{Reason: "nil root"}
	}

	var firstErr error

	Walk(root, func(node *Node) bool {
		if firstErr != nil {
			return false
		}

		firstErr = node.checkShape()

		return firstErr == nil
	})

	return firstErr
}

func (node *Node) checkShape() error {
	if !node.kind.Valid() {
		return Malformed(node, "unknown node kind")
	}

	minArity, maxArity := node.kind.Arity()
	count := len(node.children)

	if count < minArity {
		return Malformed(node, "expected at least %d children, got %d", minArity, count)
	}

	if maxArity != Unbounded && count > maxArity {
		return Malformed(node, "expected at most %d children, got %d", maxArity, count)
	}

	return nil
}
