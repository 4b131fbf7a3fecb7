package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/typedkv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	MsgType (1) | flags (1) | for every flagged field: length (4, BE) | data
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasPayload   byte = 1 << 0
	hasErrKind   byte = 1 << 1
	hasErr       byte = 1 << 2
	hasErrInfo   byte = 1 << 3
	hasErrMethod byte = 1 << 4
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags byte

	if msg.Payload != nil {
		flags |= hasPayload
		result = appendField(result, msg.Payload)
	}
	if msg.ErrKind != "" {
		flags |= hasErrKind
		result = appendField(result, []byte(msg.ErrKind))
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendField(result, []byte(msg.Err))
	}
	if msg.ErrInfo != "" {
		flags |= hasErrInfo
		result = appendField(result, []byte(msg.ErrInfo))
	}
	if msg.ErrMethod != "" {
		flags |= hasErrMethod
		result = appendField(result, []byte(msg.ErrMethod))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	pos := 2

	// Read Payload if present, an empty payload stays non nil
	msg.Payload = nil
	if flags&hasPayload != 0 {
		field, next, err := readField(data, pos, "payload")
		if err != nil {
			return err
		}
		msg.Payload = make([]byte, len(field))
		copy(msg.Payload, field)
		pos = next
	}

	// Read the error fields
	fields := []struct {
		flag byte
		name string
		dst  *string
	}{
		{hasErrKind, "error kind", &msg.ErrKind},
		{hasErr, "error", &msg.Err},
		{hasErrInfo, "error info", &msg.ErrInfo},
		{hasErrMethod, "error method", &msg.ErrMethod},
	}
	for _, s := range fields {
		*s.dst = ""
		if flags&s.flag == 0 {
			continue
		}
		field, next, err := readField(data, pos, s.name)
		if err != nil {
			return err
		}
		*s.dst = string(field)
		pos = next
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// appendField appends the length of field and field itself to buf
func appendField(buf, field []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(field)))
	return append(buf, field...)
}

// readField reads a length prefixed field starting at pos and returns it
// together with the position after it
func readField(data []byte, pos int, name string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s length", name)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if pos+n > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s data", name)
	}
	return data[pos : pos+n], pos + n, nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Payload != nil {
		size += 4 + len(msg.Payload)
	}
	for _, s := range []string{msg.ErrKind, msg.Err, msg.ErrInfo, msg.ErrMethod} {
		if s != "" {
			size += 4 + len(s)
		}
	}
	return size
}
