// Package network provides the social graph agents live on and the
// placement grid that answers which agents occupy a node.
package network

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrSelfLoop    = errors.New("self loop")
	ErrNodeFull    = errors.New("node at capacity")
)

// Topology is an immutable undirected graph. Nodes are numbered 0..n-1 and
// neighbor lists are frozen in ascending order at build time, so every scan
// over them is reproducible.
type Topology struct {
	g         *simple.UndirectedGraph
	neighbors [][]int64
	edges     int
}

// Builder accumulates edges before freezing them into a Topology.
type Builder struct {
	g *simple.UndirectedGraph
	n int
}

// NewBuilder creates a builder holding n isolated nodes.
func NewBuilder(n int) *Builder {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	return &Builder{g: g, n: n}
}

// Connect adds the undirected edge u-v. Adding an existing edge is a no-op.
func (b *Builder) Connect(u, v int64) error {
	if !b.has(u) {
		return fmt.Errorf("connect %d-%d: %w", u, v, ErrUnknownNode)
	}
	if !b.has(v) {
		return fmt.Errorf("connect %d-%d: %w", u, v, ErrUnknownNode)
	}
	if u == v {
		return fmt.Errorf("connect %d-%d: %w", u, v, ErrSelfLoop)
	}
	if b.g.HasEdgeBetween(u, v) {
		return nil
	}
	b.g.SetEdge(b.g.NewEdge(simple.Node(u), simple.Node(v)))
	return nil
}

// Disconnect removes the edge u-v if present.
func (b *Builder) Disconnect(u, v int64) {
	b.g.RemoveEdge(u, v)
}

// Connected reports whether u and v share an edge.
func (b *Builder) Connected(u, v int64) bool {
	return b.g.HasEdgeBetween(u, v)
}

// Degree returns the current number of neighbors of u.
func (b *Builder) Degree(u int64) int {
	return b.g.From(u).Len()
}

func (b *Builder) has(id int64) bool {
	return id >= 0 && id < int64(b.n)
}

// Build freezes the graph. The builder must not be used afterwards.
func (b *Builder) Build() *Topology {
	t := &Topology{
		g:         b.g,
		neighbors: make([][]int64, b.n),
	}
	for u := 0; u < b.n; u++ {
		it := b.g.From(int64(u))
		ids := make([]int64, 0, it.Len())
		for it.Next() {
			ids = append(ids, it.Node().ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		t.neighbors[u] = ids
		t.edges += len(ids)
	}
	t.edges /= 2
	b.g = nil
	return t
}

// FromEdges builds a topology of n nodes with the given edge list.
func FromEdges(n int, edges [][2]int64) (*Topology, error) {
	b := NewBuilder(n)
	for _, e := range edges {
		if err := b.Connect(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Len returns the number of nodes.
func (t *Topology) Len() int {
	return len(t.neighbors)
}

// EdgeCount returns the number of undirected edges.
func (t *Topology) EdgeCount() int {
	return t.edges
}

// HasNode reports whether node is part of the graph.
func (t *Topology) HasNode(node int64) bool {
	return node >= 0 && node < int64(len(t.neighbors))
}

// Neighbors returns the nodes adjacent to node in ascending order. The
// returned slice is shared and must not be modified. Unknown nodes have no
// neighbors.
func (t *Topology) Neighbors(node int64) []int64 {
	if !t.HasNode(node) {
		return nil
	}
	return t.neighbors[node]
}

// Degree returns the number of neighbors of node.
func (t *Topology) Degree(node int64) int {
	return len(t.Neighbors(node))
}

// Adjacent reports whether u and v share an edge.
func (t *Topology) Adjacent(u, v int64) bool {
	if !t.HasNode(u) || !t.HasNode(v) {
		return false
	}
	return t.g.HasEdgeBetween(u, v)
}

// Edges returns every edge once as (low, high), ordered by low then high.
func (t *Topology) Edges() [][2]int64 {
	out := make([][2]int64, 0, t.edges)
	for u, ns := range t.neighbors {
		for _, v := range ns {
			if int64(u) < v {
				out = append(out, [2]int64{int64(u), v})
			}
		}
	}
	return out
}

// String returns a summary of the topology.
func (t *Topology) String() string {
	return fmt.Sprintf("Topology(nodes=%d, edges=%d)", t.Len(), t.EdgeCount())
}
