package dstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/dstore/internal"
	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT.
// It holds one in-memory ordered map per raft shard.
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB // the actual dataStorage
}

// CreateStateMachineFactory returns a function that can be used by dragonboat
// to create a new state machine for a node host
func CreateStateMachineFactory() func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  maple.NewMapleDB(nil),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding KVDB method.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, fmt.Errorf("invalid query type: %T", itf)
	}

	switch q.Type {
	case internal.QueryTGet:
		val, ok, err := fsm.database.Get(q.Key)
		if err != nil {
			return nil, err
		}
		return internal.QueryResult{Ok: ok, Value: val}, nil
	case internal.QueryTHas:
		return fsm.database.Has(q.Key)
	case internal.QueryTLen:
		return fsm.database.Len()
	case internal.QueryTLast:
		key, val, ok, err := fsm.database.Last()
		if err != nil {
			return nil, err
		}
		return internal.QueryResult{Ok: ok, Key: key, Value: val}, nil
	case internal.QueryTEntries:
		var entries []internal.Entry
		err := fsm.database.Iterate(func(key, value []byte) bool {
			entries = append(entries, internal.Entry{Key: key, Value: value})
			return true
		})
		return entries, err
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, fmt.Errorf("unknown query operation: %d", q.Type)
	}
}

// Update handles write commands on the KVDB instance
// All write operations are serialized into []byte and are accessible via the entries struct
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e.Cmd)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("state machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

func failed(format string, args ...any) sm.Result {
	return sm.Result{Value: internal.ResultError, Data: []byte(fmt.Sprintf(format, args...))}
}

func rejected(current []byte) sm.Result {
	return sm.Result{Value: internal.ResultRejected, Data: current}
}

func previous(prev []byte, existed bool) sm.Result {
	if !existed {
		return sm.Result{Value: internal.ResultAbsent}
	}
	return sm.Result{Value: internal.ResultPresent, Data: prev}
}

func (fsm *KVStateMachine) apply(data []byte) sm.Result {
	if len(data) == 0 {
		return failed("empty command ignored")
	}

	cmd := internal.Command{}
	if err := cmd.Deserialize(data); err != nil {
		return failed("failed to deserialize command: %v", err)
	}

	switch cmd.Type {
	case internal.CommandTInsert:
		prev, replaced, err := fsm.database.Insert(cmd.Key, cmd.Value)
		if err != nil {
			return failed("insert failed: %v", err)
		}
		return previous(prev, replaced)
	case internal.CommandTRemove:
		prev, removed, err := fsm.database.Remove(cmd.Key)
		if err != nil {
			return failed("remove failed: %v", err)
		}
		return previous(prev, removed)
	case internal.CommandTClear:
		if err := fsm.database.Clear(); err != nil {
			return failed("clear failed: %v", err)
		}
		return sm.Result{Value: internal.ResultAbsent}
	case internal.CommandTLoad:
		if err := fsm.database.Load(bytes.NewReader(cmd.Value)); err != nil {
			return failed("load failed: %v", err)
		}
		return sm.Result{Value: internal.ResultAbsent}
	case internal.CommandTInsertIfAbsent:
		existing, inserted, err := fsm.database.InsertIfAbsent(cmd.Key, cmd.Value)
		if err != nil {
			return failed("insert if absent failed: %v", err)
		}
		if !inserted {
			return rejected(existing)
		}
		return sm.Result{Value: internal.ResultAbsent}
	case internal.CommandTReplace:
		prev, replaced, err := fsm.database.Replace(cmd.Key, cmd.Value)
		if err != nil {
			return failed("replace failed: %v", err)
		}
		if !replaced {
			return rejected(nil)
		}
		return previous(prev, true)
	case internal.CommandTReplaceAll:
		keys, values, err := internal.DecodeBatch(cmd.Value)
		if err != nil {
			return failed("failed to decode batch: %v", err)
		}
		missing, err := fsm.database.ReplaceAll(keys, values)
		if err != nil {
			return failed("replace all failed: %v", err)
		}
		if missing >= 0 {
			return rejected(binary.BigEndian.AppendUint32(nil, uint32(missing)))
		}
		return sm.Result{Value: internal.ResultAbsent}
	case internal.CommandTCompareAndSwap:
		expected, value, err := internal.DecodeSwap(cmd.Value)
		if err != nil {
			return failed("failed to decode swap: %v", err)
		}
		swapped, err := fsm.database.CompareAndSwap(cmd.Key, expected, value)
		if err != nil {
			return failed("compare and swap failed: %v", err)
		}
		if !swapped {
			return rejected(nil)
		}
		return sm.Result{Value: internal.ResultAbsent}
	default:
		return failed("unknown command operation: %s", cmd.Type)
	}
}

// PrepareSnapshot captures the map while dragonboat holds back updates, so
// the snapshot is a consistent cut of the applied log.
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	var buf bytes.Buffer
	if err := fsm.database.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveSnapshot writes the data captured by PrepareSnapshot
func (fsm *KVStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	data, ok := ctx.([]byte)
	if !ok {
		return fmt.Errorf("invalid snapshot context: %T", ctx)
	}
	_, err := writer.Write(data)
	return err
}

// RecoverFromSnapshot replaces the map with the snapshot contents.
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return fsm.database.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	return fsm.database.Close()
}
