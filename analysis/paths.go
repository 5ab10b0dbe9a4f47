// ABOUTME: BFS search for strong reference chains from objects to roots
// ABOUTME: Returns up to K shortest paths with cycle detection

package analysis

import (
	"slices"

	"github.com/prateek/gcdesc/gc"
)

// PathsToRoots finds up to maxPaths chains from the object at from back to a
// root, shortest first. Each path starts at from and ends at a root. Weak
// references never form part of a path.
func PathsToRoots(g Graph, from gc.Addr, maxPaths int) []Path {
	if maxPaths <= 0 || g.Node(from) == nil {
		return nil
	}

	reverse := BuildReverseEdges(g)

	rootSet := make(map[gc.Addr]bool)
	for _, r := range g.Roots() {
		rootSet[r] = true
	}

	if rootSet[from] {
		return []Path{{Addrs: []gc.Addr{from}}}
	}

	type searchNode struct {
		addr gc.Addr
		path []gc.Addr
	}

	var result []Path
	queue := []searchNode{{addr: from, path: []gc.Addr{from}}}

	for len(queue) > 0 && len(result) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		for _, ref := range reverse[cur.addr] {
			if slices.Contains(cur.path, ref) {
				continue
			}

			next := make([]gc.Addr, len(cur.path)+1)
			copy(next, cur.path)
			next[len(cur.path)] = ref

			if rootSet[ref] {
				result = append(result, Path{Addrs: next})
				if len(result) >= maxPaths {
					break
				}
				continue
			}
			queue = append(queue, searchNode{addr: ref, path: next})
		}
	}

	return result
}
