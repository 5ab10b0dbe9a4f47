// ABOUTME: Calculates retained sizes from the dominator tree and lists unreachable objects
// ABOUTME: An object retains everything it dominates; weak references retain nothing
package analysis

import (
	"sort"

	"github.com/prateek/gcdesc/gc"
)

// RetainedSize computes, for each reachable object, the bytes that would be
// reclaimed if that object alone became unreachable.
func RetainedSize(g Graph) map[gc.Addr]uint64 {
	tree := DominatorTree(Dominators(g))
	retained := make(map[gc.Addr]uint64, len(tree))

	// Post-order over the dominator tree without recursion.
	type frame struct {
		addr gc.Addr
		next int
	}
	stack := []frame{{addr: SuperRoot}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := tree[top.addr]
		if top.next < len(kids) {
			child := kids[top.next]
			top.next++
			stack = append(stack, frame{addr: child})
			continue
		}
		var size uint64
		if n := g.Node(top.addr); n != nil {
			size = n.Size
		}
		for _, child := range kids {
			size += retained[child]
		}
		retained[top.addr] = size
		stack = stack[:len(stack)-1]
	}

	delete(retained, SuperRoot)
	return retained
}

// Retainer is an object with its retained size.
type Retainer struct {
	Addr     gc.Addr
	Type     string
	Retained uint64
}

// TopRetainers returns the n objects retaining the most bytes, largest first.
// Ties are broken by address.
func TopRetainers(g Graph, n int) []Retainer {
	var out []Retainer
	for addr, size := range RetainedSize(g) {
		out = append(out, Retainer{Addr: addr, Type: g.Node(addr).Type, Retained: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Retained != out[j].Retained {
			return out[i].Retained > out[j].Retained
		}
		return out[i].Addr < out[j].Addr
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Unreachable lists objects no strong path from the roots reaches, in
// address order. These are exactly the objects a collection would finalize.
func Unreachable(g Graph) []gc.Addr {
	idom := Dominators(g)
	var out []gc.Addr
	g.ForEachNode(func(n *Node) {
		if _, ok := idom[n.Addr]; !ok {
			out = append(out, n.Addr)
		}
	})
	return out
}
