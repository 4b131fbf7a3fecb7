package dstore

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db/engines/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

func newTestStateMachine() *KVStateMachine {
	return CreateStateMachineFactory()(1, 1).(*KVStateMachine)
}

func propose(t *testing.T, fsm *KVStateMachine, cmds ...internal.Command) []sm.Result {
	t.Helper()
	entries := make([]sm.Entry, len(cmds))
	for i, cmd := range cmds {
		entries[i] = sm.Entry{Index: uint64(i + 1), Cmd: cmd.Serialize()}
	}
	applied, err := fsm.Update(entries)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	results := make([]sm.Result, len(applied))
	for i, e := range applied {
		results[i] = e.Result
	}
	return results
}

func TestStateMachineInsertRemove(t *testing.T) {
	fsm := newTestStateMachine()
	defer fsm.Close()

	results := propose(t, fsm,
		internal.Command{Type: internal.CommandTInsert, Key: []byte("a"), Value: []byte("1")},
		internal.Command{Type: internal.CommandTInsert, Key: []byte("a"), Value: []byte("2")},
		internal.Command{Type: internal.CommandTRemove, Key: []byte("a")},
		internal.Command{Type: internal.CommandTRemove, Key: []byte("a")},
	)

	expected := []sm.Result{
		{Value: internal.ResultAbsent},
		{Value: internal.ResultPresent, Data: []byte("1")},
		{Value: internal.ResultPresent, Data: []byte("2")},
		{Value: internal.ResultAbsent},
	}
	for i, want := range expected {
		if results[i].Value != want.Value || !bytes.Equal(results[i].Data, want.Data) {
			t.Errorf("result %d: got %+v, want %+v", i, results[i], want)
		}
	}
}

func TestStateMachineInvalidCommands(t *testing.T) {
	fsm := newTestStateMachine()
	defer fsm.Close()

	applied, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: nil},
		{Index: 2, Cmd: []byte{1}},
		{Index: 3, Cmd: (&internal.Command{Type: 99}).Serialize()},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	for i, e := range applied {
		if e.Result.Value != internal.ResultError {
			t.Errorf("entry %d: expected error result, got %+v", i, e.Result)
		}
	}
}

func TestStateMachineLookup(t *testing.T) {
	fsm := newTestStateMachine()
	defer fsm.Close()

	propose(t, fsm,
		internal.Command{Type: internal.CommandTInsert, Key: []byte{2}, Value: []byte("two")},
		internal.Command{Type: internal.CommandTInsert, Key: []byte{1}, Value: []byte("one")},
		internal.Command{Type: internal.CommandTInsert, Key: []byte{3}, Value: []byte("three")},
	)

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: []byte{1}})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if r := res.(internal.QueryResult); !r.Ok || string(r.Value) != "one" {
		t.Errorf("unexpected get result: %+v", r)
	}

	res, _ = fsm.Lookup(internal.Query{Type: internal.QueryTLen})
	if n := res.(uint64); n != 3 {
		t.Errorf("expected len 3, got %d", n)
	}

	res, _ = fsm.Lookup(internal.Query{Type: internal.QueryTLast})
	if r := res.(internal.QueryResult); !r.Ok || !bytes.Equal(r.Key, []byte{3}) {
		t.Errorf("unexpected last result: %+v", r)
	}

	res, _ = fsm.Lookup(internal.Query{Type: internal.QueryTEntries})
	entries := res.([]internal.Entry)
	if len(entries) != 3 || entries[0].Key[0] != 1 || entries[2].Key[0] != 3 {
		t.Errorf("entries not in ascending order: %+v", entries)
	}

	res, _ = fsm.Lookup(internal.Query{Type: internal.QueryTHas, Key: []byte{9}})
	if res.(bool) {
		t.Errorf("expected Has to be false for absent key")
	}

	if _, err := fsm.Lookup("not a query"); err == nil {
		t.Errorf("expected invalid query type to fail")
	}
}

func TestStateMachineSnapshot(t *testing.T) {
	fsm := newTestStateMachine()
	defer fsm.Close()

	propose(t, fsm,
		internal.Command{Type: internal.CommandTInsert, Key: []byte("k1"), Value: []byte("v1")},
		internal.Command{Type: internal.CommandTInsert, Key: []byte("k2"), Value: []byte("v2")},
	)

	ctx, err := fsm.PrepareSnapshot()
	if err != nil {
		t.Fatalf("PrepareSnapshot failed: %v", err)
	}

	// writes after PrepareSnapshot must not leak into the snapshot
	propose(t, fsm, internal.Command{Type: internal.CommandTInsert, Key: []byte("k3"), Value: []byte("v3")})

	var buf bytes.Buffer
	if err := fsm.SaveSnapshot(ctx, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored := newTestStateMachine()
	defer restored.Close()
	if err := restored.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}

	res, _ := restored.Lookup(internal.Query{Type: internal.QueryTLen})
	if n := res.(uint64); n != 2 {
		t.Errorf("expected 2 entries after recovery, got %d", n)
	}
	res, _ = restored.Lookup(internal.Query{Type: internal.QueryTHas, Key: []byte("k3")})
	if res.(bool) {
		t.Errorf("snapshot is not a consistent cut")
	}
}

func TestStateMachineLoadAndClear(t *testing.T) {
	source := newTestStateMachine()
	defer source.Close()
	propose(t, source, internal.Command{Type: internal.CommandTInsert, Key: []byte("x"), Value: []byte("y")})
	snap, _ := source.PrepareSnapshot()

	fsm := newTestStateMachine()
	defer fsm.Close()

	results := propose(t, fsm,
		internal.Command{Type: internal.CommandTInsert, Key: []byte("old"), Value: []byte("old")},
		internal.Command{Type: internal.CommandTLoad, Value: snap.([]byte)},
		internal.Command{Type: internal.CommandTLoad, Value: []byte("garbage")},
	)
	if results[1].Value != internal.ResultAbsent {
		t.Errorf("expected load to succeed, got %+v", results[1])
	}
	if results[2].Value != internal.ResultError {
		t.Errorf("expected load of garbage to fail, got %+v", results[2])
	}

	res, _ := fsm.Lookup(internal.Query{Type: internal.QueryTHas, Key: []byte("old")})
	if res.(bool) {
		t.Errorf("load did not replace previous contents")
	}

	propose(t, fsm, internal.Command{Type: internal.CommandTClear})
	res, _ = fsm.Lookup(internal.Query{Type: internal.QueryTLen})
	if n := res.(uint64); n != 0 {
		t.Errorf("expected empty map after clear, got %d", n)
	}
}

func TestStateMachineConditionalCommands(t *testing.T) {
	fsm := newTestStateMachine()
	defer fsm.Close()

	batch, err := internal.EncodeBatch(
		[][]byte{[]byte("a"), []byte("missing")},
		[][]byte{[]byte("x"), []byte("y")},
	)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	okBatch, _ := internal.EncodeBatch([][]byte{[]byte("a")}, [][]byte{[]byte("3")})

	results := propose(t, fsm,
		internal.Command{Type: internal.CommandTInsertIfAbsent, Key: []byte("a"), Value: []byte("1")},
		internal.Command{Type: internal.CommandTInsertIfAbsent, Key: []byte("a"), Value: []byte("other")},
		internal.Command{Type: internal.CommandTReplace, Key: []byte("b"), Value: []byte("1")},
		internal.Command{Type: internal.CommandTReplace, Key: []byte("a"), Value: []byte("2")},
		internal.Command{Type: internal.CommandTReplaceAll, Value: batch},
		internal.Command{Type: internal.CommandTReplaceAll, Value: okBatch},
		internal.Command{Type: internal.CommandTCompareAndSwap, Key: []byte("a"), Value: internal.EncodeSwap([]byte("2"), []byte("4"))},
		internal.Command{Type: internal.CommandTCompareAndSwap, Key: []byte("a"), Value: internal.EncodeSwap([]byte("3"), []byte("4"))},
		internal.Command{Type: internal.CommandTCompareAndSwap, Key: []byte("c"), Value: internal.EncodeSwap(nil, []byte("1"))},
	)

	expected := []sm.Result{
		{Value: internal.ResultAbsent},
		{Value: internal.ResultRejected, Data: []byte("1")},
		{Value: internal.ResultRejected},
		{Value: internal.ResultPresent, Data: []byte("1")},
		{Value: internal.ResultRejected, Data: []byte{0, 0, 0, 1}},
		{Value: internal.ResultAbsent},
		{Value: internal.ResultRejected},
		{Value: internal.ResultAbsent},
		{Value: internal.ResultAbsent},
	}
	for i, want := range expected {
		if results[i].Value != want.Value || !bytes.Equal(results[i].Data, want.Data) {
			t.Errorf("result %d: got %+v, want %+v", i, results[i], want)
		}
	}

	for key, want := range map[string]string{"a": "4", "c": "1"} {
		v, ok, _ := fsm.database.Get([]byte(key))
		if !ok || string(v) != want {
			t.Errorf("%s = %q (ok=%v), want %q", key, v, ok, want)
		}
	}
	if ok, _ := fsm.database.Has([]byte("b")); ok {
		t.Errorf("Replace created an absent key")
	}
}
