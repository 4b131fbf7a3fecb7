package server

import (
	"context"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
)

const (
	groupsShard   = 100
	profilesShard = 101
)

// nopTransport records the handler and returns from Listen immediately
type nopTransport struct {
	handler transport.ServerHandleFunc
}

func (n *nopTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	n.handler = handler
}

func (n *nopTransport) Listen(context.Context, common.ServerConfig) error {
	return nil
}

func newTestServer(t *testing.T) *RPCServer {
	t.Helper()
	stores, err := entities.Open(store.NewRegistry(maple.NewFactory(nil)), entities.DefaultLayout())
	if err != nil {
		t.Fatalf("failed to open stores: %v", err)
	}
	s := NewRPCServer(common.ServerConfig{}, &nopTransport{}, serializer.NewBinarySerializer())
	err = RegisterEntityShards(s, stores, []common.ServerShard{
		{ShardID: groupsShard, Store: entities.KindGroups},
		{ShardID: profilesShard, Store: entities.KindProfiles},
	})
	if err != nil {
		t.Fatalf("failed to register shards: %v", err)
	}
	return s
}

// call sends one request through Handle and returns the decoded response
func call(t *testing.T, s *RPCServer, shard uint64, mt common.MessageType, args any) *common.Message {
	t.Helper()
	req, err := common.NewRequest(mt, args)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	ser := serializer.NewBinarySerializer()
	data, err := ser.Serialize(*req)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	var resp common.Message
	if err := ser.Deserialize(s.Handle(shard, data), &resp); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	return &resp
}

func TestAutoStoreRoundTrip(t *testing.T) {
	s := newTestServer(t)

	resp := call(t, s, groupsShard, common.MsgTInsert, common.ValueArgs[entities.Group]{Value: entities.Group{Name: "chess", Owner: "alice"}})
	if resp.Failed() {
		t.Fatalf("insert failed: %v", resp.Error())
	}
	var inserted store.Entry[uint64, entities.Group]
	if err := resp.Decode(&inserted); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inserted.Key != 1 {
		t.Errorf("first key = %d, want 1", inserted.Key)
	}

	resp = call(t, s, groupsShard, common.MsgTGet, common.KeyArgs[uint64]{Key: inserted.Key})
	var got store.Entry[uint64, entities.Group]
	if err := resp.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Value.Name != "chess" || got.Value.Owner != "alice" {
		t.Errorf("get returned %+v", got.Value)
	}

	resp = call(t, s, groupsShard, common.MsgTSize, nil)
	var n uint64
	if err := resp.Decode(&n); err != nil || n != 1 {
		t.Errorf("size = %d (%v), want 1", n, err)
	}
}

func TestFilterOverRPC(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Alice", "Bob", "Malice"} {
		call(t, s, groupsShard, common.MsgTInsert, common.ValueArgs[entities.Group]{Value: entities.Group{Name: name}})
	}

	resp := call(t, s, groupsShard, common.MsgTFilter, common.FilterArgs[entities.GroupFilter]{
		Filters: []entities.GroupFilter{entities.GroupByName("ali"), entities.GroupByIDs(1, 2)},
	})
	var entries []store.Entry[uint64, entities.Group]
	if err := resp.Decode(&entries); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Value.Name != "Alice" {
		t.Errorf("filter returned %+v, want only Alice", entries)
	}

	resp = call(t, s, groupsShard, common.MsgTFind, common.FilterArgs[entities.GroupFilter]{
		Filters: []entities.GroupFilter{entities.GroupByName("nobody")},
	})
	var found common.FindResult[uint64, entities.Group]
	if err := resp.Decode(&found); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if found.Found {
		t.Errorf("find matched %+v", found.Value)
	}
}

func TestKeyedStoreErrors(t *testing.T) {
	s := newTestServer(t)
	args := common.EntryArgs[string, entities.Profile]{Key: "p-1", Value: entities.Profile{Username: "alice"}}

	if resp := call(t, s, profilesShard, common.MsgTInsert, args); resp.Failed() {
		t.Fatalf("insert failed: %v", resp.Error())
	}

	tests := []struct {
		name string
		mt   common.MessageType
		args any
		kind store.Kind
	}{
		{"duplicate insert", common.MsgTInsert, args, store.KindDuplicate},
		{"update absent", common.MsgTUpdate, common.EntryArgs[string, entities.Profile]{Key: "p-2"}, store.KindNotFound},
		{"remove absent", common.MsgTRemove, common.KeyArgs[string]{Key: "p-2"}, store.KindNotFound},
		{"missing arguments", common.MsgTGet, nil, store.KindUnexpected},
		{"unsupported type", common.MsgTSuccess, nil, store.KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, profilesShard, tt.mt, tt.args)
			err := resp.Error()
			if err == nil {
				t.Fatalf("expected %s, got success", tt.kind)
			}
			if err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", err.Kind, tt.kind, err)
			}
		})
	}
}

func TestUnknownShard(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, 999, common.MsgTSize, nil)
	err := resp.Error()
	if err == nil || err.Kind != store.KindUnexpected {
		t.Fatalf("expected Unexpected, got %v", err)
	}
	if err.Method != "size" {
		t.Errorf("method = %q, want size", err.Method)
	}
}

func TestMalformedRequest(t *testing.T) {
	s := newTestServer(t)
	var resp common.Message
	if err := serializer.NewBinarySerializer().Deserialize(s.Handle(groupsShard, []byte{0xff}), &resp); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if resp.MsgType != common.MsgTError || resp.ErrKind != string(store.KindUnexpected) {
		t.Errorf("got %+v, want Unexpected error response", resp)
	}
}

func TestRegistration(t *testing.T) {
	s := newTestServer(t)

	if err := s.Register(groupsShard, "again", nil); err == nil {
		t.Errorf("registering shard %d twice must fail", groupsShard)
	}
	if err := RegisterEntityShards(s, nil, []common.ServerShard{{ShardID: 7, Store: "bogus"}}); err == nil {
		t.Errorf("unknown store must fail")
	}

	shards := s.Shards()
	if shards[groupsShard] != entities.KindGroups || shards[profilesShard] != entities.KindProfiles {
		t.Errorf("Shards() = %v", shards)
	}
}

func TestServe(t *testing.T) {
	empty := NewRPCServer(common.ServerConfig{}, &nopTransport{}, serializer.NewBinarySerializer())
	if err := empty.Serve(context.Background()); err == nil {
		t.Errorf("Serve without shards must fail")
	}

	tr := &nopTransport{}
	s := newTestServer(t)
	s.transport = tr
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if tr.handler == nil {
		t.Errorf("Serve did not register the handler")
	}
}
