// Package dag provides the directed graph used to validate step
// dependencies: cycle detection, a topological order that is stable with
// respect to insertion order and the downstream closure of a failed step.
package dag

import (
	"fmt"
	"slices"
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier (step name)
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph represents a directed graph. Edges point from a dependency to its
// dependent.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // insertion order
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing ID replaces its data.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// TopologicalSort returns node IDs with dependencies before dependents. Among
// nodes whose dependencies are satisfied the earliest inserted comes first,
// so an already valid insertion order is returned unchanged.
func (g *Graph) TopologicalSort() ([]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	pending := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		pending[id] = len(g.parents[id])
	}

	result := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(result) < len(g.order) {
		for _, id := range g.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			result = append(result, id)
			for _, child := range g.edges[id] {
				pending[child]--
			}
			break
		}
	}
	return result, nil
}

// GetDownstream returns every node that depends on id directly or
// transitively, in insertion order.
func (g *Graph) GetDownstream(id string) []string {
	affected := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, childID := range g.edges[nodeID] {
			if !affected[childID] {
				affected[childID] = true
				mark(childID)
			}
		}
	}
	mark(id)

	var result []string
	for _, nodeID := range g.order {
		if affected[nodeID] {
			result = append(result, nodeID)
		}
	}
	return result
}
