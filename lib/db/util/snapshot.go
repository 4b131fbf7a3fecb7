package util

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Snapshot Format
// --------------------------------------------------------------------------

// Every engine writes the same stream so a snapshot taken from one engine
// can be loaded into another:
//
//	magic (8 bytes) | version (uint8) | count (uint64)
//	count x [ keyLen (uint32) | key | valueLen (uint32) | value ]
//
// All integers are little endian.
const (
	snapshotMagic   = "TKVSNAP\x00"
	snapshotVersion = 1
)

// WriteSnapshot writes count entries produced by iterate to w.
// iterate must call emit exactly count times. Map snapshots emit in
// ascending key order.
func WriteSnapshot(w io.Writer, count uint64, iterate func(emit func(key, value []byte) error) error) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(snapshotMagic); err != nil {
		return fmt.Errorf("failed to write magic number: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("failed to write entry count: %w", err)
	}

	var written uint64
	err := iterate(func(key, value []byte) error {
		if err := writeChunk(bw, key); err != nil {
			return fmt.Errorf("failed to write key: %w", err)
		}
		if err := writeChunk(bw, value); err != nil {
			return fmt.Errorf("failed to write value: %w", err)
		}
		written++
		return nil
	})
	if err != nil {
		return err
	}
	if written != count {
		return fmt.Errorf("snapshot entry count mismatch: announced %d, wrote %d", count, written)
	}

	return bw.Flush()
}

// ReadSnapshot reads a stream written by WriteSnapshot and calls fn for every entry.
func ReadSnapshot(r io.Reader, fn func(key, value []byte) error) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("failed to read magic number: %w", err)
	}
	if string(magic) != snapshotMagic {
		return fmt.Errorf("invalid snapshot format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", version)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read entry count: %w", err)
	}

	for i := uint64(0); i < count; i++ {
		key, err := readChunk(br)
		if err != nil {
			return fmt.Errorf("failed to read key %d: %w", i, err)
		}
		value, err := readChunk(br)
		if err != nil {
			return fmt.Errorf("failed to read value %d: %w", i, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readChunk reads one length-prefixed chunk. The buffer grows with the data
// that actually arrives, so a corrupt length cannot force a huge allocation.
func readChunk(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	read, err := io.CopyN(&buf, r, int64(n))
	if err == io.EOF {
		return nil, fmt.Errorf("chunk truncated: announced %d bytes, got %d: %w", n, read, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CopyBytes returns a copy of b that does not share memory with it.
// A nil input yields an empty, non-nil slice.
func CopyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
