// ABOUTME: Iterative dominator computation over the strong reference graph
// ABOUTME: A super-root at address 0 points at every root and dominates everything reachable

package analysis

import "github.com/prateek/gcdesc/gc"

// SuperRoot is the synthetic node that points at every root.
const SuperRoot gc.Addr = 0

// Dominators computes the immediate dominator of each object reachable
// through strong edges. Objects dominated only by the super-root map to
// SuperRoot; unreachable objects are absent.
//
// It uses the iterative algorithm of Cooper, Harvey and Kennedy over a
// reverse postorder of the graph.
func Dominators(g Graph) map[gc.Addr]gc.Addr {
	succ := func(a gc.Addr) []gc.Addr {
		if a == SuperRoot {
			return g.Roots()
		}
		if n := g.Node(a); n != nil {
			return n.Strong
		}
		return nil
	}

	// Iterative DFS assigning postorder numbers.
	type frame struct {
		addr gc.Addr
		next int
		kids []gc.Addr
	}
	post := make(map[gc.Addr]int)
	var order []gc.Addr
	seen := map[gc.Addr]bool{SuperRoot: true}
	stack := []frame{{addr: SuperRoot, kids: succ(SuperRoot)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.kids) {
			w := top.kids[top.next]
			top.next++
			if !seen[w] && g.Node(w) != nil {
				seen[w] = true
				stack = append(stack, frame{addr: w, kids: succ(w)})
			}
			continue
		}
		post[top.addr] = len(order)
		order = append(order, top.addr)
		stack = stack[:len(stack)-1]
	}

	preds := make(map[gc.Addr][]gc.Addr)
	for _, a := range order {
		for _, w := range succ(a) {
			if _, ok := post[w]; ok {
				preds[w] = append(preds[w], a)
			}
		}
	}

	idom := map[gc.Addr]gc.Addr{SuperRoot: SuperRoot}
	intersect := func(a, b gc.Addr) gc.Addr {
		for a != b {
			for post[a] < post[b] {
				a = idom[a]
			}
			for post[b] < post[a] {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		// Reverse postorder, skipping the super-root which comes last.
		for i := len(order) - 2; i >= 0; i-- {
			w := order[i]
			var nd gc.Addr
			found := false
			for _, p := range preds[w] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					nd, found = p, true
					continue
				}
				nd = intersect(p, nd)
			}
			if !found {
				continue
			}
			if cur, ok := idom[w]; !ok || cur != nd {
				idom[w] = nd
				changed = true
			}
		}
	}

	delete(idom, SuperRoot)
	return idom
}

// DominatorTree inverts immediate dominators into child lists. The
// super-root's children are the objects only it dominates.
func DominatorTree(idom map[gc.Addr]gc.Addr) map[gc.Addr][]gc.Addr {
	tree := map[gc.Addr][]gc.Addr{SuperRoot: {}}
	for node := range idom {
		if _, ok := tree[node]; !ok {
			tree[node] = []gc.Addr{}
		}
	}
	for node, dom := range idom {
		tree[dom] = append(tree[dom], node)
	}
	for _, kids := range tree {
		sortAddrs(kids)
	}
	return tree
}
