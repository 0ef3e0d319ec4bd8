package ast

import (
	"strconv"
)

// Value is a child slot of a Node: either a nested *Node or one of the
// literal leaf types Name, Str, Int and Float. A nil Value marks an absent
// child, such as the missing receiver of a bare method call.
type Value interface {
	isValue()
}

// Name is a symbol-like payload: identifiers, method names, operators.
type Name string

// Str is a string literal payload.
type Str string

// Int is an integer literal payload.
type Int int64

// Float is a floating point literal payload.
type Float float64

func (Name) isValue()  {}
func (Str) isValue()   {}
func (Int) isValue()   {}
func (Float) isValue() {}
func (*Node) isValue() {}

func (name Name) String() string { return string(name) }

func (str Str) String() string { return string(str) }

func (num Int) String() string { return strconv.FormatInt(int64(num), 10) }

func (num Float) String() string { return strconv.FormatFloat(float64(num), 'g', -1, 64) }

// IsAbsent reports whether the value is an empty slot. A typed nil *Node
// counts as absent too.
func IsAbsent(value Value) bool {
	if value == nil {
		return true
	}

	node, ok := value.(*Node)

	return ok && node == nil
}

func valuesEqual(left, right Value) bool {
	if IsAbsent(left) || IsAbsent(right) {
		return IsAbsent(left) && IsAbsent(right)
	}

	switch typed := left.(type) {
	case *Node:
		other, ok := right.(*Node)

		return ok && typed.Equal(other)
	case Name:
		other, ok := right.(Name)

		return ok && typed == other
	case Str:
		other, ok := right.(Str)

		return ok && typed == other
	case Int:
		other, ok := right.(Int)

		return ok && typed == other
	case Float:
		other, ok := right.(Float)

		return ok && typed == other
	}

	return false
}

func sameValue(left, right Value) bool {
	if IsAbsent(left) || IsAbsent(right) {
		return IsAbsent(left) && IsAbsent(right)
	}

	leftNode, leftIsNode := left.(*Node)
	rightNode, rightIsNode := right.(*Node)

	if leftIsNode || rightIsNode {
		return leftNode == rightNode
	}

	return left == right
}
