// ABOUTME: Tests for descriptor registration, identity and spec validation
// ABOUTME: Malformed specs must panic; lookups by name must respect collisions

package gc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsIdentity(t *testing.T) {
	r := NewRegistry()

	a := r.Register(NewLeaf("a", 8))
	b := r.Register(NewLeaf("b", 16))

	require.NotZero(t, a.ID())
	assert.Greater(t, b.ID(), a.ID())
	assert.Same(t, a, r.Lookup(a.ID()))
	assert.Same(t, b, r.Lookup(b.ID()))
	assert.Nil(t, r.Lookup(0))
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []*Descriptor{a, b}, r.Entries())
}

func TestIdentitiesNeverCollideAcrossRegistries(t *testing.T) {
	a := NewRegistry().Register(NewLeaf("same", 8))
	b := NewRegistry().Register(NewLeaf("same", 8))

	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, Same(a, b), "equal names and sizes must not make descriptors equal")
	assert.True(t, Same(a, a))
}

func TestNameCollisions(t *testing.T) {
	r := NewRegistry()
	first := r.Register(NewLeaf("gstate", 8))
	second := r.Register(NewLeaf("gstate", 24))
	only := r.Register(NewLeaf("path", 8))

	assert.Equal(t, []*Descriptor{first, second}, r.Named("gstate"))

	got, err := r.Unique("path")
	require.NoError(t, err)
	assert.Same(t, only, got)

	_, err = r.Unique("gstate")
	assert.ErrorIs(t, err, ErrAmbiguousType)

	_, err = r.Unique("missing")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestMalformedSpecsPanic(t *testing.T) {
	r := NewRegistry()
	node := r.Register(Spec{Name: "node", Size: 16, Family: Slots(PtrAt(0))})
	bytes := r.Register(Spec{Name: "bytes", Family: Blob{}})

	tests := []struct {
		name string
		spec Spec
	}{
		{name: "no name", spec: Spec{Size: 8}},
		{name: "zero size", spec: Spec{Name: "z"}},
		{name: "slot overruns", spec: Spec{Name: "s", Size: 8, Family: Slots(StringAt(0))}},
		{name: "misaligned slot", spec: Spec{Name: "s", Size: 16, Family: Slots(PtrAt(4))}},
		{name: "overlapping slots", spec: Spec{Name: "s", Size: 24, Family: Slots(RefAt(0), PtrAt(8))}},
		{name: "unknown slot kind", spec: Spec{Name: "s", Size: 8, Family: Slots(Slot{Off: 0})}},
		{name: "array without element", spec: Spec{Name: "a", Family: ElementsOf{}}},
		{name: "array of repeating element", spec: Spec{Name: "a", Family: ElementsOf{Elem: bytes}}},
		{name: "array size disagrees", spec: Spec{Name: "a", Size: 8, Family: ElementsOf{Elem: node}}},
		{name: "ref unit wrong", spec: Spec{Name: "r", Size: 8, Family: RefArray{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { r.Register(tt.spec) })
		})
	}
}

func TestFamiliesInstallSharedBundles(t *testing.T) {
	r := NewRegistry()
	node := r.Register(Spec{Name: "node", Size: 16, Family: Slots(PtrAt(0))})
	arr := r.Register(Spec{Name: "node[]", Family: ElementsOf{Elem: node}})
	refs := r.Register(Spec{Name: "refs", Family: RefArray{}})
	blob := r.Register(Spec{Name: "bytes", Family: Blob{}})
	flat := r.Register(Spec{Name: "flat", Size: 32, Family: Slots()})

	assert.Same(t, LayoutProcs, node.Shared())
	assert.Same(t, ElementProcs, arr.Shared())
	assert.Same(t, RefProcs, refs.Shared())
	assert.Nil(t, blob.Shared())
	assert.Nil(t, flat.Shared())

	assert.EqualValues(t, 16, arr.Size())
	assert.EqualValues(t, RefSize, refs.Size())
	assert.EqualValues(t, 1, blob.Size())
}

func TestCheckSize(t *testing.T) {
	r := NewRegistry()
	node := r.Register(Spec{Name: "node", Size: 16, Family: Slots(PtrAt(0))})
	arr := r.Register(Spec{Name: "node[]", Family: ElementsOf{Elem: node}})

	assert.NoError(t, node.CheckSize(16))
	assert.ErrorIs(t, node.CheckSize(24), ErrSizeMismatch)
	assert.NoError(t, arr.CheckSize(48))
	assert.ErrorIs(t, arr.CheckSize(40), ErrSizeMismatch)
	assert.ErrorIs(t, arr.CheckSize(0), ErrSizeMismatch)

	_, err := NewObject(0x1000, node, 8)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(NewLeaf("leaf", 8))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, r.Count())
	seen := make(map[ID]bool)
	for _, d := range r.Entries() {
		assert.False(t, seen[d.ID()], "duplicate id %d", d.ID())
		seen[d.ID()] = true
	}
}
