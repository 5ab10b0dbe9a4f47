// ABOUTME: Utility functions for working with dominator trees
// ABOUTME: Depths, dominator chains and dominance queries
package analysis

import (
	"sort"

	"github.com/prateek/gcdesc/gc"
)

// DominatorDepth computes the depth of each node in the dominator tree.
// The super-root has depth 0.
func DominatorDepth(tree map[gc.Addr][]gc.Addr) map[gc.Addr]int {
	depth := map[gc.Addr]int{SuperRoot: 0}
	queue := []gc.Addr{SuperRoot}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, child := range tree[node] {
			depth[child] = depth[node] + 1
			queue = append(queue, child)
		}
	}
	return depth
}

// DominatorPath returns the chain of dominators from node up to and
// including the super-root.
func DominatorPath(idom map[gc.Addr]gc.Addr, node gc.Addr) []gc.Addr {
	path := []gc.Addr{node}
	for node != SuperRoot {
		dom, ok := idom[node]
		if !ok {
			break
		}
		path = append(path, dom)
		node = dom
	}
	return path
}

// IsDominated reports whether every strong path from the roots to node passes
// through dominator. A node dominates itself.
func IsDominated(idom map[gc.Addr]gc.Addr, node, dominator gc.Addr) bool {
	if node == dominator {
		return true
	}
	if _, ok := idom[node]; !ok {
		return false
	}
	for node != SuperRoot {
		node = idom[node]
		if node == dominator {
			return true
		}
	}
	return false
}

func sortAddrs(a []gc.Addr) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}
