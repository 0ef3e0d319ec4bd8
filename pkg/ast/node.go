// Package ast provides the immutable syntax tree shared by every stage of
// the translation pipeline.
//
// Nodes are never mutated after construction. Rewrites produce new parents
// that point at the unchanged child values of the old ones, so an untouched
// subtree keeps its identity across any number of passes.
package ast

// Node is an immutable tagged tree value.
type Node struct {
	children []Value
	span     Span
	kind     Kind
}

// New creates a node without checking arity. Use Build or Validate when the
// children come from untrusted input.
func New(kind Kind, span Span, children ...Value) *Node {
	return &Node{kind: kind, span: span, children: normalizeChildren(children)}
}

// Build creates a node and checks the kind and arity of the node itself.
// Nested nodes are assumed to have been built the same way.
func Build(kind Kind, span Span, children ...Value) (*Node, error) {
	node := New(kind, span, children...)

	if err := node.checkShape(); err != nil {
		return nil, err
	}

	return node, nil
}

// S is a terse constructor for tests and filters: a node with no span.
func S(kind Kind, children ...Value) *Node {
	return New(kind, Span{}, children...)
}

// Kind returns the node kind.
func (node *Node) Kind() Kind {
	if node == nil {
		return KindInvalid
	}

	return node.kind
}

// Is reports whether the node is non-nil and of one of the given kinds.
func (node *Node) Is(kinds ...Kind) bool {
	if node == nil {
		return false
	}

	for _, kind := range kinds {
		if node.kind == kind {
			return true
		}
	}

	return false
}

// Span returns the source range of the node.
func (node *Node) Span() Span {
	if node == nil {
		return Span{}
	}

	return node.span
}

// Len returns the number of children.
func (node *Node) Len() int {
	if node == nil {
		return 0
	}

	return len(node.children)
}

// Child returns the child at idx, or nil when idx is out of range.
func (node *Node) Child(idx int) Value {
	if node == nil || idx < 0 || idx >= len(node.children) {
		return nil
	}

	return node.children[idx]
}

// NodeAt returns the child at idx when it is a node, nil otherwise.
func (node *Node) NodeAt(idx int) *Node {
	child, ok := node.Child(idx).(*Node)
	if !ok {
		return nil
	}

	return child
}

// NameAt returns the child at idx when it is a Name, "" otherwise.
func (node *Node) NameAt(idx int) Name {
	name, ok := node.Child(idx).(Name)
	if !ok {
		return ""
	}

	return name
}

// StrAt returns the child at idx when it is a Str.
func (node *Node) StrAt(idx int) (Str, bool) {
	str, ok := node.Child(idx).(Str)

	return str, ok
}

// Children returns a copy of the child slice.
func (node *Node) Children() []Value {
	if node == nil {
		return nil
	}

	out := make([]Value, len(node.children))
	copy(out, node.children)

	return out
}

// Nodes returns the children that are nodes, skipping literals and absent slots.
func (node *Node) Nodes() []*Node {
	if node == nil {
		return nil
	}

	out := make([]*Node, 0, len(node.children))

	for _, child := range node.children {
		if childNode, ok := child.(*Node); ok && childNode != nil {
			out = append(out, childNode)
		}
	}

	return out
}

// WithChildren returns a node of the same kind and span holding children.
// When every child is identical to the current one the receiver itself is
// returned, which keeps untouched subtrees shared.
func (node *Node) WithChildren(children ...Value) *Node {
	if node.sameChildren(children) {
		return node
	}

	return &Node{kind: node.kind, span: node.span, children: normalizeChildren(children)}
}

// WithChild replaces a single child.
func (node *Node) WithChild(idx int, child Value) *Node {
	if idx < 0 || idx >= len(node.children) || sameValue(node.children[idx], child) {
		return node
	}

	children := node.Children()
	children[idx] = child

	return &Node{kind: node.kind, span: node.span, children: normalizeChildren(children)}
}

// Updated returns a node of a new kind with the same span.
func (node *Node) Updated(kind Kind, children ...Value) *Node {
	if kind == node.kind && node.sameChildren(children) {
		return node
	}

	return &Node{kind: kind, span: node.span, children: normalizeChildren(children)}
}

// Equal compares two trees structurally. Spans are ignored.
func (node *Node) Equal(other *Node) bool {
	if node == other {
		return true
	}

	if node == nil || other == nil {
		return false
	}

	if node.kind != other.kind || len(node.children) != len(other.children) {
		return false
	}

	for idx, child := range node.children {
		if !valuesEqual(child, other.children[idx]) {
			return false
		}
	}

	return true
}

// Equal compares two values structurally.
func Equal(left, right Value) bool {
	return valuesEqual(left, right)
}

// String renders the node as an s-expression.
func (node *Node) String() string {
	return Format(node)
}

func (node *Node) sameChildren(children []Value) bool {
	if len(children) != len(node.children) {
		return false
	}

	for idx, child := range children {
		if !sameValue(node.children[idx], child) {
			return false
		}
	}

	return true
}

// normalizeChildren turns typed nil nodes into untyped nil so absent slots
// compare equal regardless of how they were produced.
func normalizeChildren(children []Value) []Value {
	if len(children) == 0 {
		return nil
	}

	out := make([]Value, len(children))

	for idx, child := range children {
		if IsAbsent(child) {
			continue
		}

		out[idx] = child
	}

	return out
}
