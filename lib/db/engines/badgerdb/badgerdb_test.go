package badgerdb

import (
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db"
	dbtesting "github.com/ValentinKolb/typedkv/lib/db/testing"
)

// inMemoryFactory opens a fresh in-memory engine per call and closes all of
// them when the test ends
func inMemoryFactory(tb testing.TB, segment db.SegmentID) dbtesting.DBFactory {
	return func() db.KVDB {
		engine, err := Open(Options{InMemory: true})
		if err != nil {
			tb.Fatalf("failed to open badger: %v", err)
		}
		tb.Cleanup(func() {
			engine.Close()
		})
		database, err := engine.Segment(segment)
		if err != nil {
			tb.Fatalf("failed to open segment: %v", err)
		}
		return database
	}
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BadgerDB", inMemoryFactory(t, 0))
}

// the highest segment has no successor prefix inside the valid range
func TestHighestSegment(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BadgerDB/254", inMemoryFactory(t, db.MaxSegmentID))
}

func TestSegmentsAreIsolated(t *testing.T) {
	engine, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	defer engine.Close()

	a, _ := engine.Segment(3)
	b, _ := engine.Segment(4)

	a.Insert([]byte("x"), []byte("from-a"))
	a.Insert([]byte{0xFF, 0xFF}, []byte("a-high"))
	b.Insert([]byte{}, []byte("b-empty-key"))
	b.Insert([]byte("x"), []byte("from-b"))

	if n, _ := a.Len(); n != 2 {
		t.Errorf("Expected segment 3 to hold 2 entries, got %d", n)
	}

	key, value, ok, err := a.Last()
	if err != nil || !ok {
		t.Fatalf("Last failed: ok=%v err=%v", ok, err)
	}
	if string(value) != "a-high" || len(key) != 2 {
		t.Errorf("Last leaked into the next segment: key=%x value=%s", key, value)
	}

	if err := a.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := b.Len(); n != 2 {
		t.Errorf("Clear of segment 3 touched segment 4, len=%d", n)
	}

	again, _ := engine.Segment(4)
	if v, ok, _ := again.Get([]byte("x")); !ok || string(v) != "from-b" {
		t.Errorf("Expected reopened segment to share contents, got %q", v)
	}

	if info := again.GetInfo(); !info.Durable || info.DbType != db.ImplBadger {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	engine, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	seg, _ := engine.Segment(7)
	seg.Insert([]byte("persisted"), []byte("yes"))
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	engine, err = Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("failed to reopen badger: %v", err)
	}
	defer engine.Close()

	seg, _ = engine.Segment(7)
	if v, ok, _ := seg.Get([]byte("persisted")); !ok || string(v) != "yes" {
		t.Errorf("Expected value to survive a restart, got %q (ok=%v)", v, ok)
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BadgerDB", inMemoryFactory(b, 0))
}
