// Package toposort orders named items so that every item follows the items
// it depends on. Ties are broken by insertion order, which keeps the
// caller's ordering wherever dependencies allow it.
package toposort

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is matched by every CycleError.
var ErrCycle = errors.New("dependency cycle")

// CycleError names the items that form a cycle.
type CycleError struct {
	Cycle []string
}

func (cycleErr *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(cycleErr.Cycle, " -> "))
}

func (cycleErr *CycleError) Unwrap() error {
	return ErrCycle
}

// Graph is a directed graph over interned string names. Node ids follow
// insertion order.
type Graph struct {
	ids      map[string]int
	names    []string
	edges    [][]int
	inDegree []int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{ids: make(map[string]int)}
}

// AddNode inserts name. It returns false when the node already exists.
func (graph *Graph) AddNode(name string) bool {
	if _, exists := graph.ids[name]; exists {
		return false
	}

	graph.intern(name)

	return true
}

// AddEdge records that from must come before to. Missing nodes are added.
// It returns false when the edge already exists.
func (graph *Graph) AddEdge(from, to string) bool {
	fromID := graph.intern(from)
	toID := graph.intern(to)

	for _, existing := range graph.edges[fromID] {
		if existing == toID {
			return false
		}
	}

	graph.edges[fromID] = append(graph.edges[fromID], toID)
	graph.inDegree[toID]++

	return true
}

// Len returns the number of nodes.
func (graph *Graph) Len() int {
	return len(graph.names)
}

// Sort returns all nodes in dependency order using Kahn's algorithm. The
// ready set is kept ordered by node id so independent nodes keep their
// insertion order. A cycle yields a *CycleError.
func (graph *Graph) Sort() ([]string, error) {
	inDegree := make([]int, len(graph.inDegree))
	copy(inDegree, graph.inDegree)

	ready := make([]int, 0, len(graph.names))

	for nodeID, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, nodeID)
		}
	}

	sorted := make([]string, 0, len(graph.names))

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		sorted = append(sorted, graph.names[current])

		for _, next := range graph.edges[current] {
			inDegree[next]--

			if inDegree[next] == 0 {
				ready = insertSorted(ready, next)
			}
		}
	}

	if len(sorted) == len(graph.names) {
		return sorted, nil
	}

	for nodeID, degree := range inDegree {
		if degree > 0 {
			if cycle := graph.FindCycle(graph.names[nodeID]); len(cycle) > 0 {
				return nil, &CycleError{Cycle: cycle}
			}
		}
	}

	return nil, &CycleError{}
}

// FindCycle returns a cycle through seed, closing with seed again, or nil
// when seed is not on a cycle.
func (graph *Graph) FindCycle(seed string) []string {
	start, exists := graph.ids[seed]
	if !exists {
		return nil
	}

	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range graph.edges[current] {
			if next == start {
				return graph.unwindCycle(parent, current, start)
			}

			if _, seen := parent[next]; !seen {
				parent[next] = current
				queue = append(queue, next)
			}
		}
	}

	return nil
}

func (graph *Graph) unwindCycle(parent map[int]int, last, start int) []string {
	reversed := []int{start}

	for step := last; step != -1; step = parent[step] {
		reversed = append(reversed, step)
	}

	cycle := make([]string, 0, len(reversed))
	for idx := len(reversed) - 1; idx >= 0; idx-- {
		cycle = append(cycle, graph.names[reversed[idx]])
	}

	return cycle
}

func (graph *Graph) intern(name string) int {
	if nodeID, exists := graph.ids[name]; exists {
		return nodeID
	}

	nodeID := len(graph.names)
	graph.ids[name] = nodeID
	graph.names = append(graph.names, name)
	graph.edges = append(graph.edges, nil)
	graph.inDegree = append(graph.inDegree, 0)

	return nodeID
}

func insertSorted(ready []int, nodeID int) []int {
	idx := sort.SearchInts(ready, nodeID)
	ready = append(ready, 0)
	copy(ready[idx+1:], ready[idx:])
	ready[idx] = nodeID

	return ready
}
