package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":    NewJSONSerializer,
	"GOB":     NewGOBSerializer,
	"Binary":  NewBinarySerializer,
	"Msgpack": NewMsgpackSerializer,
}

// groupFilterRequest builds the kind of request the group client sends most
func groupFilterRequest(t *testing.T) (*common.Message, common.FilterPageArgs[entities.GroupFilter, entities.GroupSort]) {
	t.Helper()
	args := common.FilterPageArgs[entities.GroupFilter, entities.GroupSort]{
		Limit: 20,
		Page:  2,
		Sort:  entities.GroupSort{Field: entities.GroupSortName, Direction: store.Desc},
		Filters: []entities.GroupFilter{
			entities.GroupByName("ali"),
			entities.GroupByIDs(3, 5, 8),
		},
	}
	msg, err := common.NewRequest(common.MsgTFilterPaginated, args)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return msg, args
}

func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			req, args := groupFilterRequest(t)

			tests := []struct {
				name string
				msg  common.Message
			}{
				{"Empty", common.Message{MsgType: common.MsgTSize}},
				{"FilterRequest", *req},
				{"Response", *common.NewResponse(common.MsgTSize, uint64(7), nil)},
				{"ErrorResponse", *common.NewResponse(common.MsgTGet, nil, store.NotFound().
					WithMethod("get").
					WithInfo("groups").
					WithMessage("key 7 not found"))},
				{"AllFields", common.Message{
					MsgType:   common.MsgTFilterPaginated,
					Payload:   []byte("payload"),
					ErrKind:   string(store.KindUnexpected),
					Err:       "boom",
					ErrInfo:   "info",
					ErrMethod: "filter_paginated",
				}},
			}

			for _, tt := range tests {
				data, err := serializer.Serialize(tt.msg)
				if err != nil {
					t.Errorf("%s: serialize failed: %v", tt.name, err)
					continue
				}
				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("%s: deserialize failed: %v", tt.name, err)
					continue
				}
				if !reflect.DeepEqual(tt.msg, result) {
					t.Errorf("%s: mismatch after round trip:\nOriginal: %+v\nResult: %+v", tt.name, tt.msg, result)
				}
			}

			// the payload must survive unchanged, so the server decodes the same arguments
			data, err := serializer.Serialize(*req)
			if err != nil {
				t.Fatalf("serialize failed: %v", err)
			}
			var received common.Message
			if err := serializer.Deserialize(data, &received); err != nil {
				t.Fatalf("deserialize failed: %v", err)
			}
			var decoded common.FilterPageArgs[entities.GroupFilter, entities.GroupSort]
			if err := received.Decode(&decoded); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(args, decoded) {
				t.Errorf("arguments changed in transit:\nsent: %+v\ngot:  %+v", args, decoded)
			}

			// error responses rebuild the same store error
			data, _ = serializer.Serialize(*common.NewResponse(common.MsgTUpdate, nil, store.Duplicate().WithInfo("profiles")))
			var failed common.Message
			if err := serializer.Deserialize(data, &failed); err != nil {
				t.Fatalf("deserialize failed: %v", err)
			}
			if e := failed.Error(); e == nil || e.Kind != store.KindDuplicate || e.Info != "profiles" {
				t.Errorf("expected Duplicate (profiles), got %v", e)
			}
		})
	}
}

func TestEveryMessageType(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTRemoveMany; msgType++ {
				data, err := serializer.Serialize(common.Message{MsgType: msgType})
				if err != nil {
					t.Errorf("%s: serialize failed: %v", msgType, err)
					continue
				}
				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("%s: deserialize failed: %v", msgType, err)
					continue
				}
				if result.MsgType != msgType {
					t.Errorf("expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage checks that reused messages carry no stale fields
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTSize, Payload: []byte{0x05}})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := common.Message{ErrKind: "NotFound", Err: "stale", ErrMethod: "get"}
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Failed() || msg.Err != "" || msg.ErrMethod != "" {
				t.Errorf("stale error fields survived: %+v", msg)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty payload slice but not nil",
			msg:  common.Message{MsgType: common.MsgTInsert, Payload: []byte{}},
		},
		{
			name: "Only error kind",
			msg:  common.Message{MsgType: common.MsgTError, ErrKind: "Duplicate"},
		},
		{
			name: "Only error method",
			msg:  common.Message{MsgType: common.MsgTError, ErrMethod: "insert"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// nil and empty payloads are distinct in the binary format
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("round trip mismatch:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for payload",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Missing length for error",
			data:        []byte{1, 4, 0, 0}, // Error flag set, length truncated
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"binary", "msgpack", "json", "gob"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Errorf("New(xml) must fail")
	}
}
