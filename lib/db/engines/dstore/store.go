package dstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/dstore/internal"
	"github.com/ValentinKolb/typedkv/lib/db/util"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/config"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("db")

const (
	defaultRetries     = 5
	defaultTimeout     = 5 * time.Second
	defaultShardOffset = 1
)

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Options configures the dstore engine
type Options struct {
	// InitialMembers maps replica ids to raft addresses. Empty when Join is set.
	InitialMembers map[uint64]string
	// Join starts the replicas as new members of existing shards
	Join bool
	// RaftConfig returns the dragonboat config for a raft shard
	RaftConfig func(shardID uint64) config.Config
	// ShardOffset is added to the segment id to get the raft shard id
	ShardOffset uint64
	// Timeout bounds every single propose or read attempt
	Timeout time.Duration
	// Retries is the number of attempts when the shard is busy or not ready
	Retries int
}

// Engine starts one raft shard per segment on a shared NodeHost.
type Engine struct {
	nh       *dragonboat.NodeHost
	opts     Options
	mu       sync.Mutex // serializes replica start-up
	segments *xsync.MapOf[db.SegmentID, *storeImpl]
}

// NewEngine creates a dstore engine on top of nh.
func NewEngine(nh *dragonboat.NodeHost, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.ShardOffset == 0 {
		opts.ShardOffset = defaultShardOffset
	}
	return &Engine{
		nh:       nh,
		opts:     opts,
		segments: xsync.NewMapOf[db.SegmentID, *storeImpl](),
	}
}

// ShardID returns the raft shard id that replicates segment
func (e *Engine) ShardID(segment db.SegmentID) uint64 {
	return e.opts.ShardOffset + uint64(segment)
}

// Segment opens the map bound to segment and starts its raft replica on
// first use. It has the signature of db.Factory.
func (e *Engine) Segment(segment db.SegmentID) (db.KVDB, error) {
	if err := segment.Validate(); err != nil {
		return nil, err
	}
	if s, ok := e.segments.Load(segment); ok {
		return s, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.segments.Load(segment); ok {
		return s, nil
	}

	shardID := e.ShardID(segment)
	cfg := config.Config{ShardID: shardID}
	if e.opts.RaftConfig != nil {
		cfg = e.opts.RaftConfig(shardID)
	}

	if err := e.nh.StartConcurrentReplica(e.opts.InitialMembers, e.opts.Join, CreateStateMachineFactory(), cfg); err != nil {
		return nil, fmt.Errorf("dstore: failed to start shard %d for segment %d: %w", shardID, segment, err)
	}
	log.Infof("started raft shard %d for segment %d", shardID, segment)

	s := &storeImpl{
		nh:      e.nh,
		segment: segment,
		shardID: shardID,
		cs:      e.nh.GetNoOPSession(shardID),
		timeout: e.opts.Timeout,
		retries: e.opts.Retries,
	}
	e.segments.Store(segment, s)
	return s, nil
}

// Close stops the NodeHost and with it all shards.
func (e *Engine) Close() error {
	e.nh.Close()
	return nil
}

// --------------------------------------------------------------------------
// Segment map
// --------------------------------------------------------------------------

// storeImpl implements db.KVDB by proposing commands to and reading from
// one raft shard.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	segment db.SegmentID
	shardID uint64
	cs      *client.Session
	timeout time.Duration
	retries int
}

// retryable reports whether err is transient
func retryable(err error) bool {
	return errors.Is(err, dragonboat.ErrSystemBusy) || errors.Is(err, dragonboat.ErrShardNotReady)
}

// propose serializes a Command and sends it via SyncPropose.
// It returns the result code and data of the state machine.
func (s *storeImpl) propose(cmd internal.Command) (uint64, []byte, error) {
	data := cmd.Serialize()
	for i := 0; i < s.retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncPropose(ctx, s.cs, data)
		cancel()

		if retryable(err) {
			log.Infof("SyncPropose: shard %d busy, retrying (%d/%d)...", s.shardID, i+1, s.retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return 0, nil, fmt.Errorf("dstore: %s on shard %d failed: %w", cmd.Type, s.shardID, err)
		}
		if res.Value == internal.ResultError {
			return 0, nil, fmt.Errorf("dstore: %s on shard %d failed: %s", cmd.Type, s.shardID, res.Data)
		}
		return res.Value, res.Data, nil
	}
	return 0, nil, fmt.Errorf("dstore: %s on shard %d failed: timeout", cmd.Type, s.shardID)
}

// write proposes an unconditional command and returns the previous value
// reported by the state machine.
func (s *storeImpl) write(cmd internal.Command) ([]byte, bool, error) {
	code, data, err := s.propose(cmd)
	if err != nil {
		return nil, false, err
	}
	switch code {
	case internal.ResultAbsent:
		return nil, false, nil
	case internal.ResultPresent:
		return data, true, nil
	default:
		return nil, false, fmt.Errorf("dstore: %s on shard %d: unexpected result %d", cmd.Type, s.shardID, code)
	}
}

// read is a generic helper function that queries the state machine with
// SyncRead (linearizable) and converts the response into the expected type R.
// If linearizability is not required, stale can be set to use StaleRead.
func read[R any](s *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < s.retries; i++ {

		var res interface{}
		var err error

		if stale {
			res, err = s.nh.StaleRead(s.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			res, err = s.nh.SyncRead(ctx, s.shardID, q)
			cancel()
		}

		if retryable(err) {
			log.Infof("SyncRead: shard %d busy, retrying (%d/%d)...", s.shardID, i+1, s.retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("dstore: %s on shard %d failed: %w", q.Type, s.shardID, err)
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, fmt.Errorf("dstore: unexpected type: received %T, expected %T", res, zero)
		}
		return casted, nil
	}
	return zero, fmt.Errorf("dstore: %s on shard %d failed: timeout", q.Type, s.shardID)
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *storeImpl) Insert(key, value []byte) ([]byte, bool, error) {
	return s.write(internal.Command{
		Type:  internal.CommandTInsert,
		Key:   key,
		Value: value,
	})
}

func (s *storeImpl) Remove(key []byte) ([]byte, bool, error) {
	return s.write(internal.Command{
		Type: internal.CommandTRemove,
		Key:  key,
	})
}

func (s *storeImpl) Clear() error {
	_, _, err := s.write(internal.Command{Type: internal.CommandTClear})
	return err
}

// --------------------------------------------------------------------------
// Interface Methods - Conditional Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *storeImpl) InsertIfAbsent(key, value []byte) ([]byte, bool, error) {
	code, data, err := s.propose(internal.Command{
		Type:  internal.CommandTInsertIfAbsent,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return nil, false, err
	}
	if code == internal.ResultRejected {
		return data, false, nil
	}
	return nil, true, nil
}

func (s *storeImpl) Replace(key, value []byte) ([]byte, bool, error) {
	code, data, err := s.propose(internal.Command{
		Type:  internal.CommandTReplace,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return nil, false, err
	}
	if code == internal.ResultRejected {
		return nil, false, nil
	}
	return data, true, nil
}

// ReplaceAll proposes the whole batch as one command, so the presence check
// and the writes share a single log index.
func (s *storeImpl) ReplaceAll(keys, values [][]byte) (int, error) {
	batch, err := internal.EncodeBatch(keys, values)
	if err != nil {
		return -1, fmt.Errorf("dstore: failed to encode batch: %w", err)
	}
	code, data, err := s.propose(internal.Command{
		Type:  internal.CommandTReplaceAll,
		Value: batch,
	})
	if err != nil {
		return -1, err
	}
	if code != internal.ResultRejected {
		return -1, nil
	}
	if len(data) != 4 {
		return -1, fmt.Errorf("dstore: malformed replace all result on shard %d", s.shardID)
	}
	return int(binary.BigEndian.Uint32(data)), nil
}

func (s *storeImpl) CompareAndSwap(key, expected, value []byte) (bool, error) {
	code, _, err := s.propose(internal.Command{
		Type:  internal.CommandTCompareAndSwap,
		Key:   key,
		Value: internal.EncodeSwap(expected, value),
	})
	if err != nil {
		return false, err
	}
	return code != internal.ResultRejected, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Query Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *storeImpl) Len() (uint64, error) {
	return read[uint64](s, internal.Query{Type: internal.QueryTLen}, false)
}

func (s *storeImpl) Get(key []byte) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTGet,
		Key:  key,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) Has(key []byte) (bool, error) {
	return read[bool](s, internal.Query{
		Type: internal.QueryTHas,
		Key:  key,
	}, false)
}

// Iterate reads all entries in one linearizable query and then calls fn,
// so fn never runs inside the state machine.
func (s *storeImpl) Iterate(fn func(key, value []byte) bool) error {
	entries, err := read[[]internal.Entry](s, internal.Query{Type: internal.QueryTEntries}, false)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !fn(e.Key, e.Value) {
			break
		}
	}
	return nil
}

func (s *storeImpl) Last() ([]byte, []byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{Type: internal.QueryTLast}, false)
	if err != nil {
		return nil, nil, false, err
	}
	return res.Key, res.Value, res.Ok, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Persistence Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *storeImpl) Save(w io.Writer) error {
	entries, err := read[[]internal.Entry](s, internal.Query{Type: internal.QueryTEntries}, false)
	if err != nil {
		return err
	}
	return util.WriteSnapshot(w, uint64(len(entries)), func(emit func(key, value []byte) error) error {
		for _, e := range entries {
			if err := emit(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load proposes the whole snapshot as a single command, so every replica
// replaces its contents at the same log index.
func (s *storeImpl) Load(r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("dstore: failed to read snapshot: %w", err)
	}
	_, _, err := s.write(internal.Command{
		Type:  internal.CommandTLoad,
		Value: buf.Bytes(),
	})
	return err
}

func (s *storeImpl) GetInfo() db.DatabaseInfo {
	// Note: allow for stale reads
	info, err := read[db.DatabaseInfo](s, internal.Query{Type: internal.QueryTGetDBInfo}, true)
	if err != nil {
		log.Warningf("failed to read info of shard %d: %v", s.shardID, err)
	}
	info.Segment = s.segment
	info.DbType = db.ImplDStore
	info.Durable = true
	return info
}

// Close is a no-op. The raft shard keeps running until Engine.Close.
func (s *storeImpl) Close() error {
	return nil
}
