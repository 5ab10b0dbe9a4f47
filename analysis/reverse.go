// ABOUTME: Builds reverse strong edges for graph traversal
// ABOUTME: Maps objects to their referrers for paths-to-roots

package analysis

import "github.com/prateek/gcdesc/gc"

// ReverseEdges maps each object to the objects holding a strong reference to it.
type ReverseEdges map[gc.Addr][]gc.Addr

// BuildReverseEdges creates the reverse of every strong edge. Referrers are
// listed in address order.
func BuildReverseEdges(g Graph) ReverseEdges {
	reverse := make(ReverseEdges)

	g.ForEachNode(func(n *Node) {
		for _, target := range n.Strong {
			reverse[target] = append(reverse[target], n.Addr)
		}
	})

	return reverse
}
