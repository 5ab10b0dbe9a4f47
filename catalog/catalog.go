// ABOUTME: Canonical descriptors for the common heap shapes, registered in the default registry
// ABOUTME: Snapshots and the CLI resolve object types against these by name

// Package catalog publishes one descriptor per common object shape and
// small constructors that allocate them in a space.
package catalog

import (
	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

// Field offsets of the catalog layouts.
const (
	NodeNext    = 0
	NodePayload = 8

	PairLeft  = 0
	PairRight = 8

	LabelText = 0

	WeakBoxTarget = 0
	WeakBoxValue  = 8

	CellRef = 0
)

var (
	// Bytes is pointer-free byte storage for string bodies.
	Bytes = gc.Register(gc.Spec{Name: "bytes", Family: gc.Blob{}})

	// Refs is an array of runtime-typed refs.
	Refs = gc.Register(gc.Spec{Name: "refs", Family: gc.RefArray{}})

	// Node is a list cell: an owning next pointer and a payload word.
	Node = gc.Register(gc.Spec{
		Name:   "node",
		Size:   16,
		Family: gc.Slots(gc.PtrAt(NodeNext)),
	})

	// Pair holds two owning pointers.
	Pair = gc.Register(gc.Spec{
		Name:   "pair",
		Size:   16,
		Family: gc.Slots(gc.PtrAt(PairLeft), gc.PtrAt(PairRight)),
	})

	// Label holds a string slot naming a Bytes body.
	Label = gc.Register(gc.Spec{
		Name:   "label",
		Size:   16,
		Family: gc.Slots(gc.StringAt(LabelText)),
	})

	// WeakBox holds a back reference and a payload word. The target is
	// cleared when nothing else keeps it alive.
	WeakBox = gc.Register(gc.Spec{
		Name:   "weakbox",
		Size:   16,
		Family: gc.Slots(gc.WeakAt(WeakBoxTarget)),
	})

	// Cell holds a single ref.
	Cell = gc.Register(gc.Spec{
		Name:   "cell",
		Size:   gc.RefSize,
		Family: gc.Slots(gc.RefAt(CellRef)),
	})

	// Nodes is an inline array of Node elements.
	Nodes = gc.Register(gc.Spec{Name: "nodes", Family: gc.ElementsOf{Elem: Node}})

	// Word is an opaque machine word.
	Word = gc.Register(gc.NewLeaf("word", gc.WordSize))
)

// NewNode allocates a node pointing at next.
func NewNode(sp *space.Space, next gc.Addr, payload uint64) (*gc.Object, error) {
	obj, err := sp.Alloc(Node, Node.Size())
	if err != nil {
		return nil, err
	}
	v := obj.View()
	v.SetPtr(NodeNext, next)
	v.SetWord(NodePayload, payload)
	return obj, nil
}

// NewPair allocates a pair of left and right.
func NewPair(sp *space.Space, left, right gc.Addr) (*gc.Object, error) {
	obj, err := sp.Alloc(Pair, Pair.Size())
	if err != nil {
		return nil, err
	}
	obj.View().SetPtr(PairLeft, left)
	obj.View().SetPtr(PairRight, right)
	return obj, nil
}

// NewString allocates the body of s. The empty string allocates nothing and
// returns a null address.
func NewString(sp *space.Space, s string) (gc.Addr, uint32, error) {
	if s == "" {
		return 0, 0, nil
	}
	obj, err := sp.AllocBytes(Bytes, []byte(s))
	if err != nil {
		return 0, 0, err
	}
	return obj.Addr, obj.Size, nil
}

// NewLabel allocates a label and its text body.
func NewLabel(sp *space.Space, text string) (*gc.Object, error) {
	addr, n, err := NewString(sp, text)
	if err != nil {
		return nil, err
	}
	obj, err := sp.Alloc(Label, Label.Size())
	if err != nil {
		return nil, err
	}
	obj.View().SetStringSlot(LabelText, addr, n)
	return obj, nil
}

// LabelString reads the text of a label through its string slot, clipped to
// the body it points at.
func LabelString(sp *space.Space, label *gc.Object) string {
	addr, n := label.View().StringSlot(LabelText)
	if addr == 0 {
		return ""
	}
	body := sp.Object(addr)
	if body == nil {
		return ""
	}
	if int(n) > len(body.Body) {
		n = uint32(len(body.Body))
	}
	return string(body.Body[:n])
}

// NewWeakBox allocates a box holding a back reference to target.
func NewWeakBox(sp *space.Space, target gc.Addr, value uint64) (*gc.Object, error) {
	obj, err := sp.Alloc(WeakBox, WeakBox.Size())
	if err != nil {
		return nil, err
	}
	obj.View().SetPtr(WeakBoxTarget, target)
	obj.View().SetWord(WeakBoxValue, value)
	return obj, nil
}

// NewCell allocates a cell holding a ref.
func NewCell(sp *space.Space, t gc.RefType, value uint64, length uint32) (*gc.Object, error) {
	obj, err := sp.Alloc(Cell, Cell.Size())
	if err != nil {
		return nil, err
	}
	obj.View().SetRef(CellRef, t, value, length)
	return obj, nil
}

// NewRefs allocates a ref array of n null refs.
func NewRefs(sp *space.Space, n int) (*gc.Object, error) {
	return sp.Alloc(Refs, uint32(n)*gc.RefSize)
}

// NewNodes allocates an inline array of n zeroed nodes.
func NewNodes(sp *space.Space, n int) (*gc.Object, error) {
	return sp.Alloc(Nodes, uint32(n)*Node.Size())
}
