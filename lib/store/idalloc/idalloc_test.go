package idalloc

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
)

func TestNextStartsAtOne(t *testing.T) {
	a := New(maple.NewMapleDB(nil))

	for want := uint64(1); want <= 3; want++ {
		got, err := a.Next("groups")
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("Next = %d, want %d", got, want)
		}
	}

	// kinds are independent
	if got, _ := a.Next("notifications"); got != 1 {
		t.Errorf("first id of a new kind = %d, want 1", got)
	}

	last, ok, err := a.Get("groups")
	if err != nil || !ok || last != 3 {
		t.Errorf("Get = %d, %v, %v", last, ok, err)
	}
	if _, ok, _ := a.Get("unknown"); ok {
		t.Errorf("Get on unknown kind reported ok")
	}

	all, err := a.GetAll()
	if err != nil || len(all) != 2 || all["groups"] != 3 || all["notifications"] != 1 {
		t.Errorf("GetAll = %v, %v", all, err)
	}
}

func TestBootstrapFromSource(t *testing.T) {
	data := maple.NewMapleDB(nil)
	for _, k := range []uint64{4, 17, 9} {
		if _, _, err := data.Insert(codec.Uint64Key{}.EncodeKey(k), []byte("x")); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	a := New(maple.NewMapleDB(nil))
	a.Register("groups", data)

	if got, _ := a.Next("groups"); got != 18 {
		t.Errorf("Next after bootstrap = %d, want 18", got)
	}

	// the persisted counter wins over the source afterwards
	data.Clear()
	if got, _ := a.Next("groups"); got != 19 {
		t.Errorf("Next after clearing the source = %d, want 19", got)
	}
}

func TestCountersSurviveRestart(t *testing.T) {
	counters := maple.NewMapleDB(nil)

	first := New(counters)
	first.Next("profiles")
	first.Next("profiles")

	second := New(counters)
	if got, _ := second.Next("profiles"); got != 3 {
		t.Errorf("Next on a new allocator = %d, want 3", got)
	}
}

func TestExhausted(t *testing.T) {
	a := New(maple.NewMapleDB(nil))
	if _, err := a.counters.Upsert("groups", math.MaxUint64); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	_, err := a.Next("groups")
	if !errors.Is(err, store.ErrUnexpected) {
		t.Fatalf("Next at MaxUint64 = %v, want Unexpected", err)
	}
	if e := store.AsError(err); e.Info != "groups" || e.Message != "id space exhausted" {
		t.Errorf("unexpected error context %+v", e)
	}

	// the counter is not wrapped
	if last, _, _ := a.Get("groups"); last != math.MaxUint64 {
		t.Errorf("counter changed to %d", last)
	}
}

func TestConcurrentNext(t *testing.T) {
	a := New(maple.NewMapleDB(nil))

	const workers, perWorker = 10, 100
	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := a.Next("groups")
				if err != nil {
					t.Errorf("Next failed: %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("id %d issued twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if last, _, _ := a.Get("groups"); last != workers*perWorker {
		t.Errorf("last id = %d, want %d", last, workers*perWorker)
	}
}

// slowReads delays every Get, like a linearizable read on a raft shard, so
// concurrent allocators read the same counter before either writes
type slowReads struct {
	db.KVDB
}

func (s slowReads) Get(key []byte) ([]byte, bool, error) {
	time.Sleep(2 * time.Millisecond)
	return s.KVDB.Get(key)
}

func TestAllocatorsSharingCounters(t *testing.T) {
	counters := maple.NewMapleDB(nil)
	replicas := []*Allocator{
		New(slowReads{counters}),
		New(slowReads{counters}),
	}

	const perReplica, workers = 25, 3
	var mu sync.Mutex
	seen := make(map[uint64]int)

	var wg sync.WaitGroup
	for r, a := range replicas {
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perReplica; i++ {
					id, err := a.Next("groups")
					if err != nil {
						t.Errorf("replica %d: Next failed: %v", r, err)
						return
					}
					mu.Lock()
					if prev, dup := seen[id]; dup {
						t.Errorf("id %d issued by replica %d and replica %d", id, prev, r)
					}
					seen[id] = r
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()

	total := uint64(len(replicas) * workers * perReplica)
	if uint64(len(seen)) != total {
		t.Errorf("issued %d distinct ids, want %d", len(seen), total)
	}
	for _, a := range replicas {
		if last, _, _ := a.Get("groups"); last != total {
			t.Errorf("last id = %d, want %d", last, total)
		}
	}
}

func TestFirstIdRace(t *testing.T) {
	// both allocators see no counter and seed from the same source
	data := maple.NewMapleDB(nil)
	data.Insert(codec.Uint64Key{}.EncodeKey(41), []byte("x"))

	counters := maple.NewMapleDB(nil)
	a, b := New(slowReads{counters}), New(slowReads{counters})
	a.Register("groups", data)
	b.Register("groups", data)

	ids := make(chan uint64, 2)
	var wg sync.WaitGroup
	for _, alloc := range []*Allocator{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := alloc.Next("groups")
			if err != nil {
				t.Errorf("Next failed: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	got := map[uint64]bool{}
	for id := range ids {
		got[id] = true
	}
	if len(got) != 2 || !got[42] || !got[43] {
		t.Errorf("expected ids 42 and 43, got %v", got)
	}
}
