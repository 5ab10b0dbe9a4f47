// ABOUTME: Portable image of a space used by snapshot codecs
// ABOUTME: Types travel by name because descriptor IDs are process local

package space

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/prateek/gcdesc/gc"
)

// Image is a space flattened into plain data.
type Image struct {
	Space   uuid.UUID     `json:"space" cbor:"1,keyasint"`
	Base    uint64        `json:"base" cbor:"2,keyasint"`
	Roots   []gc.Addr     `json:"roots" cbor:"3,keyasint"`
	Objects []ImageObject `json:"objects" cbor:"4,keyasint"`
}

// ImageObject is one object of an image.
type ImageObject struct {
	Addr gc.Addr `json:"addr" cbor:"1,keyasint"`
	Type string  `json:"type" cbor:"2,keyasint"`
	Body []byte  `json:"body" cbor:"3,keyasint"`
}

// Image captures the current objects and roots.
func (s *Space) Image() *Image {
	s.mustNotCollect("image")
	s.mu.RLock()
	defer s.mu.RUnlock()

	img := &Image{
		Space: s.id,
		Base:  s.cfg.Base,
		Roots: append([]gc.Addr{}, s.roots...),
	}
	for _, obj := range s.sorted() {
		img.Objects = append(img.Objects, ImageObject{
			Addr: obj.Addr,
			Type: obj.Type.Name(),
			Body: append([]byte(nil), obj.Body...),
		})
	}
	return img
}

// FromImage rebuilds a space from img, resolving type names in reg. The
// image base overrides cfg.Base when set.
func FromImage(img *Image, reg *gc.Registry, cfg Config, opts ...Option) (*Space, error) {
	if img.Base != 0 {
		cfg.Base = img.Base
	}
	if img.Space != uuid.Nil {
		opts = append([]Option{WithID(img.Space)}, opts...)
	}
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	objs := append([]ImageObject(nil), img.Objects...)
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].Addr < objs[j].Addr })

	// s is not shared yet, so place runs without the lock.
	for _, rec := range objs {
		d, err := reg.Unique(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("object %#x: %w", uint64(rec.Addr), err)
		}
		size, err := bodySize(uint64(len(rec.Body)))
		if err != nil {
			return nil, fmt.Errorf("object %#x: %w", uint64(rec.Addr), err)
		}
		obj, err := s.place(rec.Addr, d, size)
		if err != nil {
			return nil, fmt.Errorf("object %#x: %w", uint64(rec.Addr), err)
		}
		copy(obj.Body, rec.Body)
	}
	if err := s.SetRoots(img.Roots...); err != nil {
		return nil, err
	}
	return s, nil
}

// bodySize is the header size of an image body. Object sizes are 32-bit.
func bodySize(n uint64) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d-byte body exceeds the object size limit", gc.ErrSizeMismatch, n)
	}
	return uint32(n), nil
}
