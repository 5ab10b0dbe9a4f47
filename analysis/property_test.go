// ABOUTME: Property-based tests over random heaps
// ABOUTME: Analysis must predict exactly what a collection reclaims, and compaction must preserve shape

package analysis

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/gcdesc/catalog"
	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

// randomHeap fills a space with nodes, pairs, weak boxes and labels wired at
// random, and picks a few roots.
func randomHeap(t *testing.T, rng *rand.Rand) *space.Space {
	t.Helper()
	sp, err := space.New(space.DefaultConfig(), space.WithLogger(testLogger()))
	require.NoError(t, err)

	var objs []*gc.Object
	pick := func() gc.Addr {
		if len(objs) == 0 || rng.Intn(4) == 0 {
			return 0
		}
		return objs[rng.Intn(len(objs))].Addr
	}

	n := 5 + rng.Intn(40)
	for i := 0; i < n; i++ {
		var obj *gc.Object
		switch rng.Intn(4) {
		case 0:
			obj, err = catalog.NewNode(sp, pick(), uint64(i))
		case 1:
			obj, err = catalog.NewPair(sp, pick(), pick())
		case 2:
			obj, err = catalog.NewWeakBox(sp, pick(), uint64(i))
		default:
			obj, err = catalog.NewLabel(sp, string(rune('a'+i%26)))
		}
		require.NoError(t, err)
		objs = append(objs, obj)
	}

	// Back edges make cycles.
	for i := 0; i < n/4; i++ {
		obj := objs[rng.Intn(len(objs))]
		if gc.Same(obj.Type, catalog.Node) {
			obj.View().SetPtr(catalog.NodeNext, objs[rng.Intn(len(objs))].Addr)
		}
	}

	var roots []gc.Addr
	for i := 0; i < 1+rng.Intn(3); i++ {
		roots = append(roots, objs[rng.Intn(len(objs))].Addr)
	}
	require.NoError(t, sp.SetRoots(roots...))
	return sp
}

// shape renames every surviving address to its rank so graphs before and
// after compaction can be compared.
func shape(g Graph, keep map[gc.Addr]bool) []Node {
	var addrs []gc.Addr
	g.ForEachNode(func(n *Node) {
		if keep == nil || keep[n.Addr] {
			addrs = append(addrs, n.Addr)
		}
	})
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	rank := make(map[gc.Addr]gc.Addr, len(addrs))
	for i, a := range addrs {
		rank[a] = gc.Addr(i + 1)
	}
	renamed := func(in []gc.Addr) []gc.Addr {
		var out []gc.Addr
		for _, a := range in {
			if r, ok := rank[a]; ok {
				out = append(out, r)
			}
		}
		return out
	}

	out := make([]Node, 0, len(addrs))
	for _, a := range addrs {
		n := g.Node(a)
		out = append(out, Node{Addr: rank[a], Type: n.Type, Size: n.Size, Strong: renamed(n.Strong), Weak: renamed(n.Weak)})
	}
	return out
}

func TestPropertyCollectionMatchesAnalysis(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		sp := randomHeap(t, rng)

		before := Build(sp)
		garbage := Unreachable(before)
		survivors := make(map[gc.Addr]bool)
		before.ForEachNode(func(n *Node) { survivors[n.Addr] = true })
		for _, a := range garbage {
			delete(survivors, a)
		}

		st, err := sp.Collect(context.Background())
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, len(garbage), st.Reclaimed, "seed %d", seed)
		assert.Equal(t, len(survivors), sp.NumObjects(), "seed %d", seed)

		after := Build(sp)
		assert.Equal(t, shape(before, survivors), shape(after, nil), "seed %d: compaction changed the graph", seed)
		assert.Empty(t, Unreachable(after), "seed %d", seed)

		again, err := sp.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, again.Moved, "seed %d", seed)
		assert.Equal(t, 0, again.Reclaimed, "seed %d", seed)
	}
}
