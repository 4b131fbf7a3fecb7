package dstore

import (
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/typedkv/lib/db"
	dbtesting "github.com/ValentinKolb/typedkv/lib/db/testing"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/config"
)

// startSingleNode starts a one-replica NodeHost on a free local port
func startSingleNode(t *testing.T) *Engine {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	dir := t.TempDir()
	nh, err := dragonboat.NewNodeHost(config.NodeHostConfig{
		NodeHostDir:    filepath.Join(dir, "nh"),
		WALDir:         filepath.Join(dir, "wal"),
		RTTMillisecond: 5,
		RaftAddress:    addr,
	})
	if err != nil {
		t.Fatalf("failed to create node host: %v", err)
	}

	engine := NewEngine(nh, Options{
		InitialMembers: map[uint64]string{1: addr},
		RaftConfig: func(shardID uint64) config.Config {
			return config.Config{
				ReplicaID:    1,
				ShardID:      shardID,
				ElectionRTT:  10,
				HeartbeatRTT: 1,
				CheckQuorum:  true,
			}
		},
		Timeout: 3 * time.Second,
		Retries: 20,
	})
	t.Cleanup(func() {
		engine.Close()
	})
	return engine
}

func TestDistributedEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a raft node host")
	}

	engine := startSingleNode(t)

	// every factory call gets its own raft shard so the maps start empty
	var next atomic.Uint32
	dbtesting.RunKVDBTests(t, "DStore", func() db.KVDB {
		database, err := engine.Segment(db.SegmentID(next.Add(1)))
		if err != nil {
			t.Fatalf("failed to open segment: %v", err)
		}
		return database
	})
}

func TestEngineSegmentIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a raft node host")
	}

	engine := startSingleNode(t)

	a, err := engine.Segment(9)
	if err != nil {
		t.Fatalf("failed to open segment: %v", err)
	}
	b, err := engine.Segment(9)
	if err != nil {
		t.Fatalf("failed to reopen segment: %v", err)
	}
	if a != b {
		t.Errorf("expected the same map for the same segment")
	}
	if engine.ShardID(9) != 10 {
		t.Errorf("expected shard id 10 for segment 9, got %d", engine.ShardID(9))
	}
	if _, err := engine.Segment(255); err == nil {
		t.Errorf("expected reserved segment to be rejected")
	}
}
