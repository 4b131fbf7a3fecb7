package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	frameHeaderSize = 20
	maxFrameSize    = 256 << 20 // 256 MB
)

// writeFrame writes a frame to w with the format:
// - 8 bytes: shardId (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(w io.Writer, shardID uint64, requestID uint64, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds the limit of %d bytes", len(data), maxFrameSize)
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	// net.Buffers uses writev where possible
	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads a frame from r using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(r io.Reader, buf []byte) (uint64, uint64, []byte, error) {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err := io.ReadFull(r, buf[:frameHeaderSize]); err != nil {
		return 0, 0, nil, err
	}

	shardID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := int(binary.BigEndian.Uint32(buf[16:20]))

	if contentLength == 0 {
		return shardID, requestID, []byte{}, nil
	}
	if contentLength > maxFrameSize {
		return 0, 0, nil, fmt.Errorf("frame of %d bytes exceeds the limit of %d bytes", contentLength, maxFrameSize)
	}

	if len(buf) < contentLength {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return 0, 0, nil, err
	}
	return shardID, requestID, buf[:contentLength], nil
}
