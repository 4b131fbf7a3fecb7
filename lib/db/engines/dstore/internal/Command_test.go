package internal

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name: "Command with key and value",
			command: Command{
				Type:  CommandTInsert,
				Key:   []byte("testkey"),
				Value: []byte("testvalue"),
			},
			expected: 1 + 4 + 7 + 9, // Type + KeyLen + Key + Value
		},
		{
			name: "Command with empty key and value",
			command: Command{
				Type:  CommandTInsert,
				Key:   nil,
				Value: []byte("testvalue"),
			},
			expected: 1 + 4 + 0 + 9,
		},
		{
			name:     "Clear command",
			command:  Command{Type: CommandTClear},
			expected: 1 + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name: "Insert with value",
			command: Command{
				Type:  CommandTInsert,
				Key:   []byte("testkey"),
				Value: []byte("testvalue"),
			},
		},
		{
			name: "Remove without value",
			command: Command{
				Type: CommandTRemove,
				Key:  []byte("testkey"),
			},
		},
		{
			name: "Binary key and value",
			command: Command{
				Type:  CommandTInsert,
				Key:   []byte{0, 0, 0, 0, 0, 0, 0, 42},
				Value: []byte{0, 1, 2, 3, 254, 255},
			},
		},
		{
			name: "Command with Unicode key",
			command: Command{
				Type:  CommandTInsert,
				Key:   []byte("你好世界"),
				Value: []byte("unicode test"),
			},
		},
		{
			name: "Load with snapshot",
			command: Command{
				Type:  CommandTLoad,
				Value: bytes.Repeat([]byte{7}, 4096),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var newCommand Command
			if err := newCommand.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if !bytes.Equal(newCommand.Key, tt.command.Key) {
				t.Errorf("Key mismatch: got %q, want %q", newCommand.Key, tt.command.Key)
			}
			if !bytes.Equal(newCommand.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", newCommand.Value, tt.command.Value)
			}

			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3},
			expectedErr: "data too short for command",
		},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTInsert)
				binary.BigEndian.PutUint32(data[1:5], 1000)
				return data
			}(),
			expectedErr: "data too short for key of length 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:  CommandTInsert,
		Key:   []byte("testkey"),
		Value: []byte("testvalue"),
	}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTInsert)
	binary.BigEndian.PutUint32(expected[1:5], 7)
	copy(expected[5:12], "testkey")
	copy(expected[12:], "testvalue")

	serialized := cmd.Serialize()
	if !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestDeserializeCopies makes sure the command does not alias the raft entry
func TestDeserializeCopies(t *testing.T) {
	data := (&Command{Type: CommandTInsert, Key: []byte("k"), Value: []byte("v")}).Serialize()

	var cmd Command
	if err := cmd.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	for i := range data {
		data[i] = 0
	}

	if string(cmd.Key) != "k" || string(cmd.Value) != "v" {
		t.Errorf("Command aliases the input buffer: key=%q value=%q", cmd.Key, cmd.Value)
	}
}

func TestSwapArguments(t *testing.T) {
	tests := []struct {
		name     string
		expected []byte
		value    []byte
	}{
		{"expect absent", nil, []byte("new")},
		{"expect value", []byte("old"), []byte("new")},
		{"expect empty value", []byte{}, []byte("new")},
		{"empty new value", []byte("old"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected, value, err := DecodeSwap(EncodeSwap(tt.expected, tt.value))
			if err != nil {
				t.Fatalf("DecodeSwap failed: %v", err)
			}
			if (expected == nil) != (tt.expected == nil) || !bytes.Equal(expected, tt.expected) {
				t.Errorf("expected = %v, want %v", expected, tt.expected)
			}
			if !bytes.Equal(value, tt.value) {
				t.Errorf("value = %q, want %q", value, tt.value)
			}
		})
	}

	if _, _, err := DecodeSwap([]byte{1, 0, 0, 0, 9, 'a'}); err == nil {
		t.Errorf("expected error for truncated expected value")
	}
}

func TestBatchArguments(t *testing.T) {
	keys := [][]byte{[]byte("b"), []byte("a")}
	values := [][]byte{[]byte("2"), {}}

	data, err := EncodeBatch(keys, values)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	gotKeys, gotValues, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if len(gotKeys) != 2 || !bytes.Equal(gotKeys[0], keys[0]) || !bytes.Equal(gotKeys[1], keys[1]) {
		t.Errorf("keys = %q, want %q", gotKeys, keys)
	}
	if len(gotValues) != 2 || !bytes.Equal(gotValues[0], values[0]) || len(gotValues[1]) != 0 {
		t.Errorf("values = %q, want %q", gotValues, values)
	}

	if _, err := EncodeBatch(keys, values[:1]); err == nil {
		t.Errorf("expected error for mismatched batch")
	}
}
