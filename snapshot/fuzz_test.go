// ABOUTME: Fuzz tests for snapshot decoding
// ABOUTME: Decoding and rebuilding must fail cleanly on any input, never panic

package snapshot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte(listFixture))
	f.Add([]byte(`{"objects": []}`))
	f.Add([]byte(`{"objects": [{"addr": 1, "type": "word", "words": [1]}]}`))
	f.Add(cborMagic)
	f.Add(zstdMagic)

	sp, err := Open(strings.NewReader(listFixture), gc.Default(), space.DefaultConfig(), options()...)
	if err != nil {
		f.Fatal(err)
	}
	for _, name := range []string{"cbor", "cbor+zstd"} {
		var buf bytes.Buffer
		if err := Write(&buf, name, sp); err != nil {
			f.Fatal(err)
		}
		f.Add(buf.Bytes())
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		img, _, err := Decode(bytes.NewReader(data))
		if err != nil {
			return
		}
		back, err := space.FromImage(img, gc.Default(), space.DefaultConfig(), options()...)
		if err != nil {
			return
		}
		if back.NumObjects() != len(img.Objects) {
			t.Errorf("rebuilt %d objects from %d", back.NumObjects(), len(img.Objects))
		}
	})
}
