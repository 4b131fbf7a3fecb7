package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/typedkv/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding. Message
// types are written as their wire names and payloads as base64.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json: failed to encode %s message: %w", msg.MsgType, err)
	}
	return data, nil
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json: failed to decode message: %w", err)
	}
	return nil
}
