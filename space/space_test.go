// ABOUTME: Tests for allocation, root management and configuration loading
// ABOUTME: Descriptors come from a private registry so tests stay independent

package space

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/gcdesc/gc"
)

type types struct {
	reg   *gc.Registry
	node  *gc.Descriptor
	bytes *gc.Descriptor
	weak  *gc.Descriptor
	word  *gc.Descriptor
}

func newTypes() types {
	r := gc.NewRegistry()
	return types{
		reg:   r,
		node:  r.Register(gc.Spec{Name: "node", Size: 16, Family: gc.Slots(gc.PtrAt(0))}),
		bytes: r.Register(gc.Spec{Name: "bytes", Family: gc.Blob{}}),
		weak:  r.Register(gc.Spec{Name: "weak", Size: 8, Family: gc.Slots(gc.WeakAt(0))}),
		word:  r.Register(gc.NewLeaf("word", 8)),
	}
}

func newSpace(t *testing.T, cfg Config) *Space {
	t.Helper()
	logger.New("NOOP")
	s, err := New(cfg, WithLogger(logger.Sugar.WithServiceName("space")))
	require.NoError(t, err)
	return s
}

func alloc(t *testing.T, s *Space, d *gc.Descriptor, size uint32) *gc.Object {
	t.Helper()
	obj, err := s.Alloc(d, size)
	require.NoError(t, err)
	return obj
}

func TestAllocBumpsAndAligns(t *testing.T) {
	ty := newTypes()
	s := newSpace(t, DefaultConfig())

	a := alloc(t, s, ty.bytes, 3)
	b := alloc(t, s, ty.node, 16)
	c, err := s.AllocBytes(ty.bytes, []byte("hello world"))
	require.NoError(t, err)

	assert.Equal(t, gc.Addr(0x1000), a.Addr)
	assert.Equal(t, gc.Addr(0x1008), b.Addr)
	assert.Equal(t, gc.Addr(0x1018), c.Addr)
	assert.Equal(t, "hello world", string(c.Body))
	assert.Equal(t, uint64(8+16+16), s.Used())
	assert.Equal(t, 3, s.NumObjects())

	var seen []gc.Addr
	s.ForEachObject(func(o *gc.Object) { seen = append(seen, o.Addr) })
	assert.Equal(t, []gc.Addr{0x1000, 0x1008, 0x1018}, seen)
}

func TestAllocRejectsBadSizes(t *testing.T) {
	ty := newTypes()
	s := newSpace(t, DefaultConfig())

	_, err := s.Alloc(ty.node, 24)
	assert.ErrorIs(t, err, gc.ErrSizeMismatch)
	_, err = s.Alloc(ty.bytes, 0)
	assert.ErrorIs(t, err, gc.ErrSizeMismatch)
	assert.Equal(t, 0, s.NumObjects())
}

func TestAllocHonoursLimit(t *testing.T) {
	ty := newTypes()
	cfg := DefaultConfig()
	cfg.Limit = 32
	s := newSpace(t, cfg)

	alloc(t, s, ty.node, 16)
	alloc(t, s, ty.node, 16)
	_, err := s.Alloc(ty.word, 8)
	assert.ErrorIs(t, err, ErrOutOfSpace)
}

func TestRoots(t *testing.T) {
	ty := newTypes()
	s := newSpace(t, DefaultConfig())
	a := alloc(t, s, ty.word, 8)

	assert.ErrorIs(t, s.SetRoots(0x4000), ErrUnknownAddr)
	assert.ErrorIs(t, s.AddRoot(0x4000), ErrUnknownAddr)
	require.NoError(t, s.SetRoots(a.Addr))
	require.NoError(t, s.AddRoot(a.Addr))
	assert.Equal(t, []gc.Addr{a.Addr, a.Addr}, s.Roots())
}

func TestWithID(t *testing.T) {
	logger.New("NOOP")
	id := uuid.New()
	s, err := New(DefaultConfig(), WithID(id), WithLogger(logger.Sugar))
	require.NoError(t, err)
	assert.Equal(t, id, s.ID())
	assert.False(t, s.Collecting())
	assert.Equal(t, 0, s.Cycles())
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Config
		wantErr error
	}{
		{
			name: "empty uses defaults",
			yaml: "",
			want: DefaultConfig(),
		},
		{
			name: "overrides",
			yaml: "base: 0x2000\nlimit: 4096\nverify_passes: 3\nlog_level: DEBUG\n",
			want: Config{Base: 0x2000, Limit: 4096, VerifyPasses: 3, LogLevel: "DEBUG"},
		},
		{
			name: "verification off",
			yaml: "verify_passes: 0\n",
			want: Config{Base: 0x1000, VerifyPasses: 0, LogLevel: "INFO"},
		},
		{
			name:    "zero base",
			yaml:    "base: 0\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "misaligned base",
			yaml:    "base: 0x1004\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative passes",
			yaml:    "verify_passes: -1\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "empty level",
			yaml:    "log_level: \"\"\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConfigRejectsGarbage(t *testing.T) {
	_, err := ParseConfig([]byte("base: [1, 2"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limit: 1024\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), cfg.Limit)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
