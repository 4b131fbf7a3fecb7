package serializer

import (
	"github.com/ValentinKolb/typedkv/lib/store/codec"
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// NewMsgpackSerializer creates a new serializer using msgpack encoding,
// the same encoding used for the message payloads
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using msgpack
type msgpackSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return codec.EncodeMsgpack(msg)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return codec.DecodeMsgpack(b, msg)
}
