package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/store"
)

func TestParsePeerAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    PeerAddress
		wantErr bool
	}{
		{"localhost:8080#100", PeerAddress{Endpoint: "localhost:8080", Shard: 100}, false},
		{"http://a#b#7", PeerAddress{Endpoint: "http://a#b", Shard: 7}, false},
		{"localhost:8080", PeerAddress{}, true},
		{"#100", PeerAddress{}, true},
		{"localhost#", PeerAddress{}, true},
		{"localhost#x", PeerAddress{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeerAddress(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestMessageTypeNames(t *testing.T) {
	for mt, name := range messageTypeNames {
		parsed, err := ParseMessageType(name)
		if err != nil || parsed != mt {
			t.Errorf("ParseMessageType(%q) = %v, %v", name, parsed, err)
		}
	}
	if MsgTRemoveMany.String() != "remove_many" {
		t.Errorf("MsgTRemoveMany.String() = %q", MsgTRemoveMany.String())
	}
	if MessageType(200).String() != "unknown" {
		t.Errorf("unknown types must print as unknown")
	}

	data, err := json.Marshal(MsgTFilterPaginated)
	if err != nil || string(data) != `"filter_paginated"` {
		t.Fatalf("Marshal = %s, %v", data, err)
	}
	var mt MessageType
	if err := json.Unmarshal([]byte(`"bogus"`), &mt); err == nil {
		t.Errorf("unknown name must fail")
	}
}

func TestErrorResponse(t *testing.T) {
	src := store.Duplicate().WithMethod("insert").WithInfo("groups").WithMessage("key 1 already exists")

	resp := NewResponse(MsgTInsert, KeyArgs[uint64]{Key: 1}, src)
	if !resp.Failed() || len(resp.Payload) != 0 {
		t.Fatalf("expected an error response without payload, got %+v", resp)
	}
	if resp.MsgType != MsgTInsert {
		t.Errorf("MsgType = %s, want insert", resp.MsgType)
	}
	if got := resp.Error(); *got != *src {
		t.Errorf("Error() = %+v, want %+v", got, src)
	}

	plain := NewErrorResponse(errors.New("boom"))
	if e := plain.Error(); e.Kind != store.KindUnexpected || e.Message != "boom" {
		t.Errorf("plain errors must become Unexpected, got %+v", e)
	}
}

func TestRequestPayload(t *testing.T) {
	req, err := NewRequest(MsgTGetMany, KeysArgs[string]{Keys: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	var args KeysArgs[string]
	if err := req.Decode(&args); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(args.Keys) != 2 || args.Keys[1] != "b" {
		t.Errorf("decoded %+v", args)
	}

	empty, _ := NewRequest(MsgTSize, nil)
	if err := empty.Decode(&args); err == nil {
		t.Errorf("decoding an empty payload must fail")
	}
	if empty.Failed() {
		t.Errorf("a request is not failed")
	}
}
