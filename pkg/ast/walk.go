package ast

// Walk visits the tree in pre-order. Returning false from visit skips the
// children of the visited node.
func Walk(root *Node, visit func(node *Node) bool) {
	if root == nil {
		return
	}

	if !visit(root) {
		return
	}

	for _, child := range root.children {
		if childNode, ok := child.(*Node); ok {
			Walk(childNode, visit)
		}
	}
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	total := 0

	Walk(root, func(*Node) bool {
		total++

		return true
	})

	return total
}

// Find returns the first node in pre-order for which match holds.
func Find(root *Node, match func(node *Node) bool) *Node {
	var found *Node

	Walk(root, func(node *Node) bool {
		if found != nil {
			return false
		}

		if match(node) {
			found = node

			return false
		}

		return true
	})

	return found
}
