// ABOUTME: Graph interface, in-memory implementation and construction from a space
// ABOUTME: Edges are discovered through descriptor enumeration only, never by reading bodies

// Package analysis builds a reference graph of a space and answers
// retention questions about it: dominators, retained sizes, paths to roots
// and unreachable objects.
package analysis

import (
	"sort"
	"sync"

	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

// Graph is a heap reference graph.
type Graph interface {
	// AddNode adds a node, replacing any node at the same address
	AddNode(n *Node)

	// Node returns the node at addr, or nil
	Node(addr gc.Addr) *Node

	// NumNodes returns the total number of nodes
	NumNodes() int

	// ForEachNode iterates over all nodes in ascending address order
	ForEachNode(fn func(*Node))

	// SetRoots sets the roots
	SetRoots(roots []gc.Addr)

	// Roots returns the roots
	Roots() []gc.Addr
}

// MemGraph is an in-memory implementation of Graph.
type MemGraph struct {
	mu    sync.RWMutex
	nodes map[gc.Addr]*Node
	roots []gc.Addr
}

// NewMemGraph creates an empty graph.
func NewMemGraph() *MemGraph {
	return &MemGraph{nodes: make(map[gc.Addr]*Node)}
}

// Build snapshots the objects and roots of sp. Edges to addresses that name
// no object are dropped.
func Build(sp *space.Space) *MemGraph {
	g := NewMemGraph()
	ctx := gc.NewContext(sp.ID())

	var objs []*gc.Object
	sp.ForEachObject(func(obj *gc.Object) { objs = append(objs, obj) })
	present := make(map[gc.Addr]bool, len(objs))
	for _, obj := range objs {
		present[obj.Addr] = true
	}

	for _, obj := range objs {
		n := &Node{Addr: obj.Addr, Type: obj.Type.Name(), Size: uint64(obj.Size)}
		gc.Walk(ctx, obj.Type, obj.View(), func(_ int, ep gc.EnumPtr) bool {
			switch {
			case ep.Traced() && present[ep.Addr]:
				n.Strong = append(n.Strong, ep.Addr)
			case ep.Kind == gc.KindWeak && present[ep.Addr]:
				n.Weak = append(n.Weak, ep.Addr)
			}
			return true
		})
		g.AddNode(n)
	}
	g.SetRoots(sp.Roots())
	return g
}

// AddNode adds a node.
func (g *MemGraph) AddNode(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.Addr] = n
}

// Node retrieves a node by address.
func (g *MemGraph) Node(addr gc.Addr) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[addr]
}

// NumNodes returns the total number of nodes.
func (g *MemGraph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// ForEachNode iterates over all nodes in address order.
func (g *MemGraph) ForEachNode(fn func(*Node)) {
	g.mu.RLock()
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Addr < nodes[j].Addr })
	for _, n := range nodes {
		fn(n)
	}
}

// SetRoots sets the roots.
func (g *MemGraph) SetRoots(roots []gc.Addr) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = append([]gc.Addr(nil), roots...)
}

// Roots returns the roots.
func (g *MemGraph) Roots() []gc.Addr {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]gc.Addr(nil), g.roots...)
}
