// ABOUTME: Core data types for the heap reference graph
// ABOUTME: Nodes carry strong and weak edges separately; only strong edges retain

package analysis

import "github.com/prateek/gcdesc/gc"

// Node is one object of the graph.
type Node struct {
	Addr   gc.Addr   // Object address, never 0
	Type   string    // Descriptor name
	Size   uint64    // Size in bytes
	Strong []gc.Addr // Targets that keep this object's referents alive
	Weak   []gc.Addr // Back references, never followed for retention
}

// Path is a chain of addresses from an object to a root.
type Path struct {
	Addrs []gc.Addr
}
