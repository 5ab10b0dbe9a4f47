// ABOUTME: Reference allocation space owning object storage and roots
// ABOUTME: Bump allocation between collections; the collector compacts it back down

// Package space is a small allocation space and collector that drives the
// descriptor protocol of package gc: it allocates objects against
// descriptors, keeps roots, and runs stop-the-world mark, relocate, finalize
// and reclaim cycles. It is a test bed for descriptors, not a general-purpose
// allocator.
package space

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"

	"github.com/prateek/gcdesc/gc"
)

var (
	// ErrOutOfSpace is returned when an allocation would exceed the configured limit.
	ErrOutOfSpace = errors.New("space limit exceeded")

	// ErrUnknownAddr is returned when an address names no object in the space.
	ErrUnknownAddr = errors.New("no object at address")

	// ErrOverlap is returned when placing an object over existing storage.
	ErrOverlap = errors.New("object overlaps existing storage")
)

// Space owns the storage of a set of objects.
type Space struct {
	mu         sync.RWMutex
	id         uuid.UUID
	cfg        Config
	log        logger.Logger
	objects    map[gc.Addr]*gc.Object
	roots      []gc.Addr
	next       gc.Addr
	used       uint64
	collecting atomic.Bool
	cycles     int
}

// Option configures a Space.
type Option func(*Space)

// WithLogger sets the logger used for cycle reporting.
func WithLogger(log logger.Logger) Option {
	return func(s *Space) { s.log = log }
}

// WithID sets the space identity instead of a random one.
func WithID(id uuid.UUID) Option {
	return func(s *Space) { s.id = id }
}

// New creates an empty space.
func New(cfg Config, opts ...Option) (*Space, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Space{
		id:      uuid.New(),
		cfg:     cfg,
		objects: make(map[gc.Addr]*gc.Object),
		next:    gc.Addr(cfg.Base),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = defaultLogger(cfg.LogLevel)
	}
	return s, nil
}

func defaultLogger(level string) logger.Logger {
	if logger.Sugar == nil {
		logger.New(level)
	}
	return logger.Sugar.WithServiceName("gcdesc")
}

// ID identifies the space.
func (s *Space) ID() uuid.UUID { return s.id }

// Config returns the configuration the space was created with.
func (s *Space) Config() Config { return s.cfg }

// Collecting reports whether a cycle is in progress. It never blocks, so
// finalizers and other code running inside a cycle may call it. ID and
// Config are safe there too; every other method panics with gc.ErrPhase
// while a cycle runs.
func (s *Space) Collecting() bool {
	return s.collecting.Load()
}

// Cycles returns the number of completed collections.
func (s *Space) Cycles() int {
	s.mustNotCollect("cycles")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}

// Used returns the bytes occupied by objects, alignment included.
func (s *Space) Used() uint64 {
	s.mustNotCollect("used")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Alloc allocates a zeroed object of size bytes described by d.
func (s *Space) Alloc(d *gc.Descriptor, size uint32) (*gc.Object, error) {
	s.mustNotCollect("alloc %s", d)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.place(s.next, d, size)
}

// AllocBytes allocates a blob-typed object holding a copy of data.
func (s *Space) AllocBytes(d *gc.Descriptor, data []byte) (*gc.Object, error) {
	obj, err := s.Alloc(d, uint32(len(data)))
	if err != nil {
		return nil, err
	}
	copy(obj.Body, data)
	return obj, nil
}

// place installs a new object at addr. Callers hold the write lock.
func (s *Space) place(addr gc.Addr, d *gc.Descriptor, size uint32) (*gc.Object, error) {
	if uint64(addr)%gc.WordSize != 0 || uint64(addr) < s.cfg.Base {
		return nil, fmt.Errorf("%w: %#x is outside the space or misaligned", ErrOverlap, uint64(addr))
	}
	if addr < s.next {
		return nil, fmt.Errorf("%w: %#x is below the allocation pointer %#x", ErrOverlap, uint64(addr), uint64(s.next))
	}
	span := gc.Align(uint64(size))
	if s.cfg.Limit != 0 && s.used+span > s.cfg.Limit {
		return nil, fmt.Errorf("%w: %d bytes in use, %d requested, limit %d", ErrOutOfSpace, s.used, span, s.cfg.Limit)
	}
	obj, err := gc.NewObject(addr, d, size)
	if err != nil {
		return nil, err
	}
	s.objects[addr] = obj
	s.used += span
	s.next = addr + gc.Addr(span)
	return obj, nil
}

// mustNotCollect rejects mutation and locked queries from inside a cycle,
// such as from a finalizer. It runs before the lock is taken because the
// cycle holds it for its whole duration.
func (s *Space) mustNotCollect(format string, args ...any) {
	if s.collecting.Load() {
		panic(fmt.Errorf("%w: %s while collecting", gc.ErrPhase, fmt.Sprintf(format, args...)))
	}
}

// Object returns the object at addr, or nil.
func (s *Space) Object(addr gc.Addr) *gc.Object {
	s.mustNotCollect("object %#x", uint64(addr))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[addr]
}

// NumObjects returns the number of objects.
func (s *Space) NumObjects() int {
	s.mustNotCollect("num objects")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ForEachObject calls fn for every object in ascending address order.
func (s *Space) ForEachObject(fn func(*gc.Object)) {
	s.mustNotCollect("for each object")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obj := range s.sorted() {
		fn(obj)
	}
}

func (s *Space) sorted() []*gc.Object {
	objs := make([]*gc.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Addr < objs[j].Addr })
	return objs
}

// SetRoots replaces the root set. Every root must name an object.
func (s *Space) SetRoots(roots ...gc.Addr) error {
	s.mustNotCollect("set roots")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range roots {
		if _, ok := s.objects[r]; !ok {
			return fmt.Errorf("%w: root %#x", ErrUnknownAddr, uint64(r))
		}
	}
	s.roots = append([]gc.Addr(nil), roots...)
	return nil
}

// AddRoot appends a root.
func (s *Space) AddRoot(addr gc.Addr) error {
	s.mustNotCollect("add root")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[addr]; !ok {
		return fmt.Errorf("%w: root %#x", ErrUnknownAddr, uint64(addr))
	}
	s.roots = append(s.roots, addr)
	return nil
}

// Roots returns the current root set.
func (s *Space) Roots() []gc.Addr {
	s.mustNotCollect("roots")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]gc.Addr(nil), s.roots...)
}
