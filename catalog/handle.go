// ABOUTME: Handle objects naming external resources closed when the handle becomes garbage
// ABOUTME: The resource table lives outside the space; finalizers only touch the table

package catalog

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

// HandleID is the offset of the resource number inside a handle.
const HandleID = 0

// Table holds the external resources named by handles.
type Table struct {
	mu       sync.Mutex
	next     uint64
	open     map[uint64]io.Closer
	released int
	errs     []error
}

// NewTable creates an empty resource table.
func NewTable() *Table {
	return &Table{open: make(map[uint64]io.Closer)}
}

// Resources is the table Handle finalizers release into.
var Resources = NewTable()

// Handle is a word-sized reference to an entry of Resources. It holds no
// heap pointers; its finalizer closes the resource.
var Handle = gc.Register(gc.Spec{
	Name:   "handle",
	Size:   gc.WordSize,
	Shared: gc.Leaf,
	Procs: gc.Procs{
		Finalize: func(_ *gc.Context, v gc.View, _ *gc.Descriptor) {
			Resources.Release(v.Word(HandleID))
		},
	},
})

// Add stores c and returns its resource number. Numbers start at 1.
func (t *Table) Add(c io.Closer) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.open[t.next] = c
	return t.next
}

// Release closes and forgets resource id. Unknown ids are ignored so a
// resource is closed at most once.
func (t *Table) Release(id uint64) {
	t.mu.Lock()
	c, ok := t.open[id]
	delete(t.open, id)
	t.mu.Unlock()
	if !ok {
		return
	}
	err := c.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.released++
	if err != nil {
		t.errs = append(t.errs, fmt.Errorf("resource %d: %w", id, err))
	}
}

// Open is the number of resources not yet released.
func (t *Table) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Released is the number of resources closed so far.
func (t *Table) Released() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Err returns the close errors collected so far, joined.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.errs...)
}

// NewHandle registers c in Resources and allocates a handle naming it.
func NewHandle(sp *space.Space, c io.Closer) (*gc.Object, error) {
	obj, err := sp.Alloc(Handle, Handle.Size())
	if err != nil {
		return nil, err
	}
	obj.View().SetWord(HandleID, Resources.Add(c))
	return obj, nil
}
