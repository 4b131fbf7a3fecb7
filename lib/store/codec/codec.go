package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// --------------------------------------------------------------------------
// Key Codecs
// --------------------------------------------------------------------------

// KeyCodec encodes keys so that the byte order of the encoding equals the
// order of the keys. The ordered map primitive compares keys bytewise.
type KeyCodec[K any] interface {
	EncodeKey(key K) []byte
	DecodeKey(b []byte) (K, error)
}

// Uint64Key encodes uint64 keys as 8 byte big endian
type Uint64Key struct{}

func (Uint64Key) EncodeKey(key uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, key)
	return b
}

func (Uint64Key) DecodeKey(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid uint64 key length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// StringKey encodes string keys as their raw UTF-8 bytes
type StringKey struct{}

func (StringKey) EncodeKey(key string) []byte {
	return []byte(key)
}

func (StringKey) DecodeKey(b []byte) (string, error) {
	return string(b), nil
}

// --------------------------------------------------------------------------
// Value Codecs
// --------------------------------------------------------------------------

// Codec serializes values
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(b []byte) (T, error)
}

// MsgpackHandle is the handle shared by the value codec and the rpc payloads
func MsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}

var mh = MsgpackHandle()

// Msgpack is the default value codec
type Msgpack[T any] struct{}

func (Msgpack[T]) Marshal(v T) ([]byte, error) {
	return EncodeMsgpack(v)
}

func (Msgpack[T]) Unmarshal(b []byte) (T, error) {
	var v T
	err := DecodeMsgpack(b, &v)
	return v, err
}

// EncodeMsgpack encodes any value with the shared msgpack handle
func EncodeMsgpack(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, mh).Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack encode failed: %w", err)
	}
	return out, nil
}

// DecodeMsgpack decodes b into the value pointed to by v
func DecodeMsgpack(b []byte, v any) error {
	if err := codec.NewDecoderBytes(b, mh).Decode(v); err != nil {
		return fmt.Errorf("msgpack decode failed: %w", err)
	}
	return nil
}

// JSON is a human readable value codec, used where stored values should be
// inspectable (e.g. the cli state cell)
type JSON[T any] struct{}

func (JSON[T]) Marshal(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON[T]) Unmarshal(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
