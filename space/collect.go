// ABOUTME: Stop-the-world collection cycle driving the descriptor protocol
// ABOUTME: Clear, mark, verify, compute, relocate, finalize, reclaim

package space

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prateek/gcdesc/gc"
)

var (
	// ErrUnstableEnumeration is returned when a verification pass sees a
	// different enumeration than the mark pass. Nothing has been mutated yet.
	ErrUnstableEnumeration = errors.New("enumeration differs between passes")

	// ErrBlobHasChildren is returned when a byte range targets an object whose
	// descriptor enumerates references; byte ranges are never scanned.
	ErrBlobHasChildren = errors.New("byte range target has references")
)

// Stats summarizes one cycle.
type Stats struct {
	Cycle       int
	Marked      int
	Finalized   int
	Reclaimed   int
	Moved       int
	BytesBefore uint64
	BytesAfter  uint64
	Duration    time.Duration
}

func (st Stats) String() string {
	return fmt.Sprintf("cycle %d: %d live, %d moved, %d finalized, %d reclaimed, %d -> %d bytes in %s",
		st.Cycle, st.Marked, st.Moved, st.Finalized, st.Reclaimed, st.BytesBefore, st.BytesAfter, st.Duration)
}

// Collect runs one full cycle. The cycle cannot be cancelled once started;
// ctx is only checked before it begins. Errors are reported only for
// corruption detected before any object has been modified.
func (s *Space) Collect(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collecting.Store(true)
	defer s.collecting.Store(false)

	start := time.Now()
	st := Stats{Cycle: s.cycles + 1, BytesBefore: s.used}
	gcx := gc.NewContext(s.id)
	objs := s.sorted()

	s.log.Debugf("cycle %d: start, %d objects, %d roots", st.Cycle, len(objs), len(s.roots))

	for _, obj := range objs {
		obj.State = gc.Unmarked
		obj.Type.ClearMarks(obj.View())
	}

	live, err := s.mark(gcx)
	if err != nil {
		return Stats{}, err
	}
	st.Marked = len(live)
	if err := s.verify(gcx, live); err != nil {
		return Stats{}, err
	}

	// Sliding compaction: survivors keep their order and pack down from Base.
	next := gc.Addr(s.cfg.Base)
	var used uint64
	for _, obj := range objs {
		if obj.State != gc.Marked {
			continue
		}
		gcx.SetForward(obj.Addr, next)
		if next != obj.Addr {
			st.Moved++
		}
		span := gc.Align(uint64(obj.Size))
		next += gc.Addr(span)
		used += span
	}
	s.log.Debugf("cycle %d: %d marked, %d moving", st.Cycle, st.Marked, st.Moved)

	gcx.BeginRelocate()
	for _, obj := range objs {
		if obj.State == gc.Marked {
			obj.Type.Relocate(gcx, obj.View())
			obj.State = gc.Relocated
		}
	}
	for i, r := range s.roots {
		s.roots[i] = gcx.Forward(r)
	}
	moved := make(map[gc.Addr]*gc.Object, st.Marked)
	for _, obj := range objs {
		if obj.State == gc.Relocated {
			moved[gcx.Forward(obj.Addr)] = obj
		}
	}

	gcx.BeginFinalize()
	for _, obj := range objs {
		if obj.State == gc.Unmarked {
			if obj.Type.Finalize(gcx, obj.View()) {
				st.Finalized++
			}
			obj.State = gc.Finalized
		}
	}

	gcx.Finish()

	for _, obj := range objs {
		if obj.State == gc.Finalized {
			obj.State = gc.Reclaimed
			obj.Body = nil
			st.Reclaimed++
		}
	}
	for to, obj := range moved {
		obj.Addr = to
		obj.State = gc.Retained
	}

	s.objects = moved
	s.next = next
	s.used = used
	s.cycles++

	st.BytesAfter = used
	st.Duration = time.Since(start)
	s.log.Infof("%s", st)
	return st, nil
}

// mark traces from the roots. Weak slots are not followed and byte-range
// targets are marked without being scanned.
func (s *Space) mark(gcx *gc.Context) ([]*gc.Object, error) {
	var live []*gc.Object
	var stack []*gc.Object

	// visit marks the object at a, reached from slot i of from or from the
	// roots when from is nil, and reports whether it was newly marked.
	visit := func(from *gc.Object, i int, a gc.Addr) (*gc.Object, bool, error) {
		obj, ok := s.objects[a]
		if !ok {
			if from == nil {
				return nil, false, fmt.Errorf("%w: root -> %#x", gc.ErrDangling, uint64(a))
			}
			return nil, false, fmt.Errorf("%w: %s[%d] -> %#x", gc.ErrDangling, from, i, uint64(a))
		}
		if obj.State == gc.Marked {
			return obj, false, nil
		}
		obj.State = gc.Marked
		live = append(live, obj)
		return obj, true, nil
	}

	for _, r := range s.roots {
		obj, fresh, err := visit(nil, 0, r)
		if err != nil {
			return nil, err
		}
		if fresh {
			stack = append(stack, obj)
		}
	}

	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var err error
		gc.Walk(gcx, obj.Type, obj.View(), func(i int, ep gc.EnumPtr) bool {
			if !ep.Traced() {
				return true
			}
			var target *gc.Object
			var fresh bool
			target, fresh, err = visit(obj, i, ep.Addr)
			if err != nil {
				return false
			}
			if !ep.Leaf() {
				if fresh {
					stack = append(stack, target)
				}
				return true
			}
			if ep.Size > target.Size {
				err = fmt.Errorf("%w: %s[%d] -> %d bytes of %s", gc.ErrSizeMismatch, obj, i, ep.Size, target)
				return false
			}
			if !target.Type.Childless(gcx, target.View()) {
				err = fmt.Errorf("%w: %s[%d] -> %s", ErrBlobHasChildren, obj, i, target)
				return false
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return live, nil
}

// verify re-enumerates every live object and compares the results with a
// reference pass, and with the static slot count where the family knows it.
func (s *Space) verify(gcx *gc.Context, live []*gc.Object) error {
	if s.cfg.VerifyPasses == 0 {
		return nil
	}
	for _, obj := range live {
		ref := enumerateAll(gcx, obj)
		if want := obj.Type.SlotCount(obj.Size); want >= 0 && want != len(ref) {
			return fmt.Errorf("%w: %s enumerated %d slots, layout has %d", ErrUnstableEnumeration, obj, len(ref), want)
		}
		for pass := 0; pass < s.cfg.VerifyPasses; pass++ {
			again := enumerateAll(gcx, obj)
			if len(again) != len(ref) {
				return fmt.Errorf("%w: %s pass %d: %d results, want %d", ErrUnstableEnumeration, obj, pass+1, len(again), len(ref))
			}
			for i := range ref {
				if again[i] != ref[i] {
					return fmt.Errorf("%w: %s pass %d index %d: %s, want %s", ErrUnstableEnumeration, obj, pass+1, i, again[i], ref[i])
				}
			}
		}
	}
	return nil
}

func enumerateAll(gcx *gc.Context, obj *gc.Object) []gc.EnumPtr {
	var out []gc.EnumPtr
	gc.Walk(gcx, obj.Type, obj.View(), func(_ int, ep gc.EnumPtr) bool {
		out = append(out, ep)
		return true
	})
	return out
}
