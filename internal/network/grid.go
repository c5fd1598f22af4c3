package network

import "fmt"

// Grid places items on topology nodes. Each node holds at most capacity
// items, kept in placement order so scans over a node are stable.
type Grid[T any] struct {
	topo     *Topology
	capacity int
	cells    [][]T
}

// NewGrid creates an empty grid over topo. A capacity below one is treated
// as one.
func NewGrid[T any](topo *Topology, capacity int) *Grid[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Grid[T]{
		topo:     topo,
		capacity: capacity,
		cells:    make([][]T, topo.Len()),
	}
}

// Topology returns the underlying graph.
func (g *Grid[T]) Topology() *Topology {
	return g.topo
}

// Capacity returns the per-node capacity.
func (g *Grid[T]) Capacity() int {
	return g.capacity
}

// Place puts item on node.
func (g *Grid[T]) Place(item T, node int64) error {
	if !g.topo.HasNode(node) {
		return fmt.Errorf("place on %d: %w", node, ErrUnknownNode)
	}
	if len(g.cells[node]) >= g.capacity {
		return fmt.Errorf("place on %d: %w", node, ErrNodeFull)
	}
	g.cells[node] = append(g.cells[node], item)
	return nil
}

// At returns the items on node in placement order. An empty or unknown node
// yields nil. The returned slice is shared and must not be modified.
func (g *Grid[T]) At(node int64) []T {
	if !g.topo.HasNode(node) {
		return nil
	}
	return g.cells[node]
}

// Empty reports whether node holds no items.
func (g *Grid[T]) Empty(node int64) bool {
	return len(g.At(node)) == 0
}
