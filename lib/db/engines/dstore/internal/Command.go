package internal

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/typedkv/lib/db/util"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTInsert CommandType = iota // Insert or replace an entry.
	CommandTRemove                    // Remove an entry.
	CommandTClear                     // Remove all entries.
	CommandTLoad                      // Replace all entries with a snapshot (the value).

	// Conditional writes, the state machine checks and writes in one step
	CommandTInsertIfAbsent // Insert only if the key is absent.
	CommandTReplace        // Replace only if the key exists.
	CommandTReplaceAll     // Replace all entries of the batch (the value) or none.
	CommandTCompareAndSwap // Write if the current value matches (see EncodeSwap).
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTInsert:
		return "Insert"
	case CommandTRemove:
		return "Remove"
	case CommandTClear:
		return "Clear"
	case CommandTLoad:
		return "Load"
	case CommandTInsertIfAbsent:
		return "InsertIfAbsent"
	case CommandTReplace:
		return "Replace"
	case CommandTReplaceAll:
		return "ReplaceAll"
	case CommandTCompareAndSwap:
		return "CompareAndSwap"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// Result codes stored in sm.Result.Value
const (
	ResultAbsent  uint64 = iota // no previous entry
	ResultPresent               // a previous entry existed, its value is in sm.Result.Data
	ResultError                 // the command failed, the message is in sm.Result.Data
	ResultRejected              // the condition did not hold, nothing was written
)

// headerSize is Type (1) + KeyLen (4)
const headerSize = 1 + 4

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type  CommandType
	Key   []byte
	Value []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Key) + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 4 bytes for key length (big endian),
// N bytes for key data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint32(result[1:headerSize], uint32(len(command.Key)))
	copy(result[headerSize:headerSize+len(command.Key)], command.Key)
	copy(result[headerSize+len(command.Key):], command.Value)

	return result
}

// Deserialize extracts all Command fields from a byte array.
// Key and Value are copied, data may be reused by the caller afterwards.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	keyLen := int(binary.BigEndian.Uint32(data[1:headerSize]))

	if len(data) < headerSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}

	command.Key = make([]byte, keyLen)
	copy(command.Key, data[headerSize:headerSize+keyLen])

	if rest := data[headerSize+keyLen:]; len(rest) > 0 {
		command.Value = make([]byte, len(rest))
		copy(command.Value, rest)
	} else {
		command.Value = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Conditional Write Arguments
// --------------------------------------------------------------------------

const (
	swapExpectAbsent  byte = 0
	swapExpectPresent byte = 1
)

// EncodeSwap packs the arguments of a CompareAndSwap command into its value:
// 1 byte flag (expected present), 4 bytes expected length (big endian),
// the expected value, then the new value.
func EncodeSwap(expected, value []byte) []byte {
	out := make([]byte, 1+4+len(expected)+len(value))
	out[0] = swapExpectAbsent
	if expected != nil {
		out[0] = swapExpectPresent
	}
	binary.BigEndian.PutUint32(out[1:5], uint32(len(expected)))
	copy(out[5:], expected)
	copy(out[5+len(expected):], value)
	return out
}

// DecodeSwap is the inverse of EncodeSwap. expected is nil if the key must
// be absent.
func DecodeSwap(data []byte) (expected, value []byte, err error) {
	if len(data) < 5 {
		return nil, nil, fmt.Errorf("data too short for swap arguments")
	}
	n := int(binary.BigEndian.Uint32(data[1:5]))
	if len(data) < 5+n {
		return nil, nil, fmt.Errorf("data too short for expected value of length %d", n)
	}
	if data[0] == swapExpectPresent {
		expected = util.CopyBytes(data[5 : 5+n])
	}
	return expected, util.CopyBytes(data[5+n:]), nil
}

// EncodeBatch packs the entries of a ReplaceAll command in the snapshot format.
func EncodeBatch(keys, values [][]byte) ([]byte, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("%d keys but %d values", len(keys), len(values))
	}
	var buf bytes.Buffer
	err := util.WriteSnapshot(&buf, uint64(len(keys)), func(emit func(key, value []byte) error) error {
		for i := range keys {
			if err := emit(keys[i], values[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return buf.Bytes(), err
}

// DecodeBatch is the inverse of EncodeBatch.
func DecodeBatch(data []byte) (keys, values [][]byte, err error) {
	err = util.ReadSnapshot(bytes.NewReader(data), func(key, value []byte) error {
		keys = append(keys, key)
		values = append(values, value)
		return nil
	})
	return keys, values, err
}
