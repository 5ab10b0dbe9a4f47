// ABOUTME: Tests for flattening a space into an image and rebuilding it
// ABOUTME: Types are resolved by unique name in a registry on the way back

package space

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/gcdesc/gc"
)

func TestImageRoundTrip(t *testing.T) {
	ty := newTypes()
	s := newSpace(t, DefaultConfig())

	text, err := s.AllocBytes(ty.bytes, []byte("abc"))
	require.NoError(t, err)
	node := alloc(t, s, ty.node, 16)
	node.View().SetPtr(0, text.Addr)
	require.NoError(t, s.SetRoots(node.Addr))

	img := s.Image()
	assert.Equal(t, s.ID(), img.Space)
	assert.Equal(t, uint64(0x1000), img.Base)
	require.Len(t, img.Objects, 2)
	assert.Equal(t, ImageObject{Addr: 0x1000, Type: "bytes", Body: []byte("abc")}, img.Objects[0])

	back, err := FromImage(img, ty.reg, DefaultConfig(), WithLogger(s.log))
	require.NoError(t, err)
	assert.Equal(t, s.ID(), back.ID())
	assert.Equal(t, s.Roots(), back.Roots())
	assert.Equal(t, s.Used(), back.Used())

	got := back.Object(node.Addr)
	require.NotNil(t, got)
	assert.True(t, gc.Same(ty.node, got.Type))
	assert.Equal(t, node.Body, got.Body)

	// The image is a copy.
	img.Objects[0].Body[0] = 'x'
	assert.Equal(t, "abc", string(text.Body))
}

func TestFromImageErrors(t *testing.T) {
	ty := newTypes()
	ty.reg.Register(gc.NewLeaf("word", 8))

	tests := []struct {
		name    string
		img     Image
		wantErr error
	}{
		{
			name:    "unknown type",
			img:     Image{Objects: []ImageObject{{Addr: 0x1000, Type: "nope", Body: make([]byte, 8)}}},
			wantErr: gc.ErrUnknownType,
		},
		{
			name:    "ambiguous type",
			img:     Image{Objects: []ImageObject{{Addr: 0x1000, Type: "word", Body: make([]byte, 8)}}},
			wantErr: gc.ErrAmbiguousType,
		},
		{
			name:    "wrong size",
			img:     Image{Objects: []ImageObject{{Addr: 0x1000, Type: "node", Body: make([]byte, 8)}}},
			wantErr: gc.ErrSizeMismatch,
		},
		{
			name: "overlap",
			img: Image{Objects: []ImageObject{
				{Addr: 0x1000, Type: "node", Body: make([]byte, 16)},
				{Addr: 0x1008, Type: "node", Body: make([]byte, 16)},
			}},
			wantErr: ErrOverlap,
		},
		{
			name:    "below base",
			img:     Image{Base: 0x2000, Objects: []ImageObject{{Addr: 0x1000, Type: "node", Body: make([]byte, 16)}}},
			wantErr: ErrOverlap,
		},
		{
			name:    "bad root",
			img:     Image{Roots: []gc.Addr{0x1000}},
			wantErr: ErrUnknownAddr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromImage(&tt.img, ty.reg, DefaultConfig())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFromImageKeepsUnorderedObjects(t *testing.T) {
	ty := newTypes()
	id := uuid.New()
	img := &Image{
		Space: id,
		Base:  0x4000,
		Roots: []gc.Addr{0x4010},
		Objects: []ImageObject{
			{Addr: 0x4010, Type: "node", Body: make([]byte, 16)},
			{Addr: 0x4000, Type: "word", Body: make([]byte, 8)},
		},
	}

	s, err := FromImage(img, ty.reg, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, id, s.ID())
	assert.Equal(t, uint64(0x4000), s.Config().Base)
	assert.Equal(t, 2, s.NumObjects())
	assert.Equal(t, uint64(24), s.Used())
}

func TestBodySizeLimit(t *testing.T) {
	n, err := bodySize(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), n)

	_, err = bodySize(uint64(math.MaxUint32) + 1)
	assert.ErrorIs(t, err, gc.ErrSizeMismatch)
}
