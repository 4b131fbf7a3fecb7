package util

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func snapshotHeader(count uint64) *bytes.Buffer {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	buf.WriteByte(snapshotVersion)
	binary.Write(&buf, binary.LittleEndian, count)
	return &buf
}

func TestSnapshotRoundTrip(t *testing.T) {
	entries := [][2][]byte{
		{[]byte("a"), []byte("1")},
		{[]byte("b"), {}},
		{{}, []byte("empty key")},
	}

	var buf bytes.Buffer
	err := WriteSnapshot(&buf, uint64(len(entries)), func(emit func(key, value []byte) error) error {
		for _, e := range entries {
			if err := emit(e[0], e[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	var got [][2][]byte
	if err := ReadSnapshot(&buf, func(key, value []byte) error {
		got = append(got, [2][]byte{key, value})
		return nil
	}); err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if !bytes.Equal(got[i][0], entries[i][0]) || !bytes.Equal(got[i][1], entries[i][1]) {
			t.Errorf("entry %d: got %q, want %q", i, got[i], entries[i])
		}
	}
}

func TestSnapshotCountMismatch(t *testing.T) {
	err := WriteSnapshot(io.Discard, 2, func(emit func(key, value []byte) error) error {
		return emit([]byte("only"), []byte("one"))
	})
	if err == nil {
		t.Errorf("expected error when fewer entries than announced are written")
	}
}

func TestSnapshotCorruptLength(t *testing.T) {
	// one key that claims to be 4 GiB long, followed by three bytes
	buf := snapshotHeader(1)
	binary.Write(buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	buf.WriteString("abc")

	err := ReadSnapshot(buf, func(key, value []byte) error {
		t.Errorf("callback must not run for a corrupt entry")
		return nil
	})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected truncated chunk error, got %v", err)
	}
}

func TestSnapshotInvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"WrongMagic", []byte("NOTASNAP\x01")},
		{"WrongVersion", append([]byte(snapshotMagic), 9)},
		{"MissingCount", append([]byte(snapshotMagic), snapshotVersion)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ReadSnapshot(bytes.NewReader(tt.data), func(_, _ []byte) error { return nil }); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		current  []byte
		present  bool
		expected []byte
		want     bool
	}{
		{"AbsentExpectedAbsent", nil, false, nil, true},
		{"PresentExpectedAbsent", []byte("v"), true, nil, false},
		{"AbsentExpectedValue", nil, false, []byte("v"), false},
		{"Equal", []byte("v"), true, []byte("v"), true},
		{"Different", []byte("v"), true, []byte("w"), false},
		{"EmptyValue", []byte{}, true, []byte{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.current, tt.present, tt.expected); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
