package serializer

import (
	"fmt"

	"github.com/ValentinKolb/typedkv/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}

// New returns the serializer registered under name
// (binary, msgpack, json or gob).
func New(name string) (IRPCSerializer, error) {
	switch name {
	case "binary":
		return NewBinarySerializer(), nil
	case "msgpack":
		return NewMsgpackSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer: %s (must be one of binary, msgpack, json, gob)", name)
	}
}
