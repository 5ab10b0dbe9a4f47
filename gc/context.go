// ABOUTME: Collector context threaded through every descriptor procedure
// ABOUTME: Holds the active space identity, the cycle phase and the forwarding side table

package gc

import (
	"fmt"

	"github.com/google/uuid"
)

// Phase is the stage of a collection cycle a context is in.
type Phase uint8

const (
	// PhaseMark covers clearing, marking and address computation.
	PhaseMark Phase = iota
	PhaseRelocate
	PhaseFinalize
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseMark:
		return "mark"
	case PhaseRelocate:
		return "relocate"
	case PhaseFinalize:
		return "finalize"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

type slotKey struct {
	obj Addr
	off uint32
}

// Context is the cycle-scoped state of one collection. Descriptor procedures
// never hold collector state of their own; whatever they need flows through here.
type Context struct {
	space     uuid.UUID
	phase     Phase
	forward   map[Addr]Addr
	fixed     map[slotKey]struct{}
	finalized map[Addr]struct{}
}

// NewContext starts a cycle over the space identified by space.
func NewContext(space uuid.UUID) *Context {
	return &Context{
		space:     space,
		forward:   make(map[Addr]Addr),
		fixed:     make(map[slotKey]struct{}),
		finalized: make(map[Addr]struct{}),
	}
}

// Space identifies the space being collected.
func (c *Context) Space() uuid.UUID { return c.space }

// Phase returns the current phase.
func (c *Context) Phase() Phase { return c.phase }

// SetForward records that the object at old survives and moves to to. The
// table is filled before relocation starts and is frozen afterwards.
func (c *Context) SetForward(old, to Addr) {
	c.mustBe(PhaseMark, "forward %#x", uint64(old))
	if old == 0 || to == 0 {
		violation(ErrMalformed, "forwarding null address %#x -> %#x", uint64(old), uint64(to))
	}
	c.forward[old] = to
}

// Survives reports whether the object at old has a forwarding entry.
func (c *Context) Survives(old Addr) bool {
	_, ok := c.forward[old]
	return ok
}

// Survivors is the number of forwarding entries.
func (c *Context) Survivors() int { return len(c.forward) }

// Lookup returns the forwarded address of old.
func (c *Context) Lookup(old Addr) (Addr, bool) {
	c.mustBe(PhaseRelocate, "lookup %#x", uint64(old))
	to, ok := c.forward[old]
	return to, ok
}

// Forward returns the forwarded address of a strong target. A strong
// reference to an object that did not survive means the mark phase and the
// descriptors disagree, which is fatal.
func (c *Context) Forward(old Addr) Addr {
	to, ok := c.Lookup(old)
	if !ok {
		violation(ErrDangling, "no forwarding entry for %#x", uint64(old))
	}
	return to
}

// BeginRelocate freezes the forwarding table and enters the relocate phase.
func (c *Context) BeginRelocate() { c.advance(PhaseMark, PhaseRelocate) }

// BeginFinalize enters the finalize phase; relocation must be complete.
func (c *Context) BeginFinalize() { c.advance(PhaseRelocate, PhaseFinalize) }

// Finish ends the cycle.
func (c *Context) Finish() { c.advance(PhaseFinalize, PhaseDone) }

func (c *Context) advance(from, to Phase) {
	c.mustBe(from, "enter %s", to)
	c.phase = to
}

func (c *Context) mustBe(p Phase, format string, args ...any) {
	if c.phase != p {
		violation(ErrPhase, "%s during %s phase, want %s", fmt.Sprintf(format, args...), c.phase, p)
	}
}

// claim reports whether the slot at off of v is being relocated for the
// first time this cycle.
func (c *Context) claim(v View, off uint32) bool {
	k := slotKey{obj: v.Addr(), off: v.Offset() + off}
	if _, done := c.fixed[k]; done {
		return false
	}
	c.fixed[k] = struct{}{}
	return true
}

func (c *Context) finalizeOnce(a Addr) bool {
	if _, done := c.finalized[a]; done {
		return false
	}
	c.finalized[a] = struct{}{}
	return true
}

// Finalized is the number of objects finalized so far this cycle.
func (c *Context) Finalized() int { return len(c.finalized) }
