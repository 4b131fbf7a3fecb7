package codec

import (
	"bytes"
	"math"
	"sort"
	"testing"
)

func TestUint64KeyOrder(t *testing.T) {
	keys := []uint64{0, 1, 2, 255, 256, 1 << 32, math.MaxUint64}

	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		encoded[i] = Uint64Key{}.EncodeKey(k)
	}

	if !sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}) {
		t.Errorf("byte order does not match numeric order")
	}

	for i, b := range encoded {
		k, err := Uint64Key{}.DecodeKey(b)
		if err != nil || k != keys[i] {
			t.Errorf("DecodeKey(%x) = %d, %v; want %d", b, k, err, keys[i])
		}
	}

	if _, err := (Uint64Key{}).DecodeKey([]byte{1, 2}); err == nil {
		t.Errorf("expected short key to fail")
	}
}

func TestStringKey(t *testing.T) {
	for _, s := range []string{"", "alice", "ünïcode"} {
		k, err := StringKey{}.DecodeKey(StringKey{}.EncodeKey(s))
		if err != nil || k != s {
			t.Errorf("round trip of %q failed: %q, %v", s, k, err)
		}
	}
}

type sample struct {
	Name  string
	Tags  []uint32
	Owner string
	Count uint64
}

func TestValueCodecs(t *testing.T) {
	in := sample{Name: "Alice", Tags: []uint32{1, 2}, Owner: "abc", Count: 7}

	codecs := map[string]Codec[sample]{
		"msgpack": Msgpack[sample]{},
		"json":    JSON[sample]{},
	}

	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			out, err := c.Unmarshal(b)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if out.Name != in.Name || out.Owner != in.Owner || out.Count != in.Count || len(out.Tags) != 2 {
				t.Errorf("got %+v, want %+v", out, in)
			}
		})
	}

	if _, err := (Msgpack[sample]{}).Unmarshal([]byte{0xc1}); err == nil {
		t.Errorf("expected invalid msgpack to fail")
	}
}
