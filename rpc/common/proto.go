package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// The arguments of a request and the result of a response are msgpack
// encoded into Payload, so the message itself does not depend on the key
// and value types of a store.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Encoded arguments (request) or result (response)
	Payload []byte `json:"payload,omitempty"`

	// Response only fields, set if the operation failed
	ErrKind   string `json:"err_kind,omitempty"`   // store.Kind of the failure
	Err       string `json:"err,omitempty"`        // store.Error message
	ErrInfo   string `json:"err_info,omitempty"`   // store.Error info
	ErrMethod string `json:"err_method,omitempty"` // store.Error method
}

// Failed reports whether the message carries an error
func (m *Message) Failed() bool {
	return m.MsgType == MsgTError || m.ErrKind != ""
}

// Error rebuilds the *store.Error carried by the message, or nil
func (m *Message) Error() *store.Error {
	if !m.Failed() {
		return nil
	}
	e := store.NewError(store.Kind(m.ErrKind))
	e.Message = m.Err
	e.Info = m.ErrInfo
	e.Method = m.ErrMethod
	return e
}

// Decode decodes the payload into v
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", m.MsgType)
	}
	return codec.DecodeMsgpack(m.Payload, v)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request of type t. args may be nil for operations
// without arguments.
func NewRequest(t MessageType, args any) (*Message, error) {
	msg := &Message{MsgType: t}
	if args == nil {
		return msg, nil
	}
	payload, err := codec.EncodeMsgpack(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", t, err)
	}
	msg.Payload = payload
	return msg, nil
}

// NewResponse creates the response of type t. A non nil err turns the
// response into an error response and result is ignored.
func NewResponse(t MessageType, result any, err error) *Message {
	if err != nil {
		msg := NewErrorResponse(err)
		msg.MsgType = t
		return msg
	}
	msg := &Message{MsgType: t}
	if result == nil {
		return msg
	}
	payload, encErr := codec.EncodeMsgpack(result)
	if encErr != nil {
		msg := NewErrorResponse(store.Unexpected().WithMethod(t.String()).WithMessagef("failed to encode result: %v", encErr))
		msg.MsgType = t
		return msg
	}
	msg.Payload = payload
	return msg
}

// NewErrorResponse creates an error response. Errors that are not
// *store.Error are sent as Unexpected.
func NewErrorResponse(err error) *Message {
	e := store.AsError(err)
	if e == nil {
		e = store.Unexpected()
	}
	return &Message{
		MsgType:   MsgTError,
		ErrKind:   string(e.Kind),
		Err:       e.Message,
		ErrInfo:   e.Info,
		ErrMethod: e.Method,
	}
}

// --------------------------------------------------------------------------
// Payloads
// --------------------------------------------------------------------------

// KeyArgs is the payload of get and remove requests
type KeyArgs[K any] struct {
	Key K `codec:"key" json:"key"`
}

// KeysArgs is the payload of get_many and remove_many requests
type KeysArgs[K any] struct {
	Keys []K `codec:"keys" json:"keys"`
}

// PageArgs is the payload of get_paginated requests
type PageArgs[S any] struct {
	Limit uint64 `codec:"limit" json:"limit"`
	Page  uint64 `codec:"page" json:"page"`
	Sort  S      `codec:"sort" json:"sort"`
}

// FilterArgs is the payload of find and filter requests
type FilterArgs[F any] struct {
	Filters []F `codec:"filters" json:"filters"`
}

// FilterPageArgs is the payload of filter_paginated requests
type FilterPageArgs[F, S any] struct {
	Limit   uint64 `codec:"limit" json:"limit"`
	Page    uint64 `codec:"page" json:"page"`
	Sort    S      `codec:"sort" json:"sort"`
	Filters []F    `codec:"filters" json:"filters"`
}

// EntryArgs is the payload of keyed insert and update requests
type EntryArgs[K, V any] struct {
	Key   K `codec:"key" json:"key"`
	Value V `codec:"value" json:"value"`
}

// ValueArgs is the payload of auto-keyed insert requests
type ValueArgs[V any] struct {
	Value V `codec:"value" json:"value"`
}

// EntriesArgs is the payload of update_many requests
type EntriesArgs[K, V any] struct {
	Entries []EntryArgs[K, V] `codec:"entries" json:"entries"`
}

// FindResult is the result of a find request
type FindResult[K, V any] struct {
	Found bool `codec:"found" json:"found"`
	Key   K    `codec:"key" json:"key"`
	Value V    `codec:"value" json:"value"`
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:         "success",
	MsgTError:           "error",
	MsgTSize:            "size",
	MsgTGet:             "get",
	MsgTGetMany:         "get_many",
	MsgTGetAll:          "get_all",
	MsgTGetPaginated:    "get_paginated",
	MsgTFind:            "find",
	MsgTFilter:          "filter",
	MsgTFilterPaginated: "filter_paginated",
	MsgTInsert:          "insert",
	MsgTUpdate:          "update",
	MsgTUpdateMany:      "update_many",
	MsgTRemove:          "remove",
	MsgTRemoveMany:      "remove_many",
}

// String returns the wire method name of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseMessageType returns the MessageType for a wire method name
func ParseMessageType(s string) (MessageType, error) {
	for t, name := range messageTypeNames {
		if name == s {
			return t, nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Queries

	MsgTSize            // Number of entries
	MsgTGet             // Entry by key
	MsgTGetMany         // Entries by keys
	MsgTGetAll          // All entries
	MsgTGetPaginated    // One page of all entries
	MsgTFind            // First entry matching filters
	MsgTFilter          // All entries matching filters
	MsgTFilterPaginated // One page of the entries matching filters

	// Updates

	MsgTInsert     // Insert (auto keyed or by key)
	MsgTUpdate     // Update an existing entry
	MsgTUpdateMany // Update existing entries, all or nothing
	MsgTRemove     // Remove an existing entry
	MsgTRemoveMany // Remove entries, absent keys are skipped
)
