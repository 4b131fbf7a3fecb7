package testing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db"
)

// DBFactory is a function that creates a new, empty instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Get", func(t *testing.T) {
			testInsertGet(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Len", func(t *testing.T) {
			testLen(t, factory())
		})

		t.Run("IterateOrder", func(t *testing.T) {
			testIterateOrder(t, factory())
		})

		t.Run("IterateStop", func(t *testing.T) {
			testIterateStop(t, factory())
		})

		t.Run("Last", func(t *testing.T) {
			testLast(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("ConditionalWrites", func(t *testing.T) {
			testConditionalWrites(t, factory())
		})

		t.Run("ReplaceAll", func(t *testing.T) {
			testReplaceAll(t, factory())
		})

		t.Run("CompareAndSwapCounter", func(t *testing.T) {
			testCompareAndSwapCounter(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustInsert(t testing.TB, database db.KVDB, key, value []byte) {
	t.Helper()
	if _, _, err := database.Insert(key, value); err != nil {
		t.Fatalf("Insert(%q) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, database db.KVDB, key []byte) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

func mustLen(t testing.TB, database db.KVDB) uint64 {
	t.Helper()
	n, err := database.Len()
	if err != nil {
		t.Fatalf("Len() failed: %v", err)
	}
	return n
}

// u64 encodes i big endian so byte order equals numeric order
func u64(i uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return b
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	prev, replaced, err := database.Insert(testKey, testValue1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if replaced || prev != nil {
		t.Errorf("Expected no previous value on first insert, got %q", prev)
	}

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Insert", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	prev, replaced, err = database.Insert(testKey, testValue2)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !replaced || !bytes.Equal(prev, testValue1) {
		t.Errorf("Expected previous value %s, got %s (replaced=%v)", testValue1, prev, replaced)
	}

	result, _ = mustGet(t, database, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, database, []byte("nonexistent-key")); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := mustGet(t, database, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// the caller may reuse its buffer after Insert
	buf := []byte("buffer-value")
	mustInsert(t, database, []byte("buffer-key"), buf)
	buf[0] = 'X'
	stored, _ := mustGet(t, database, []byte("buffer-key"))
	if !bytes.Equal(stored, []byte("buffer-value")) {
		t.Errorf("Insert should copy the value, got %s", stored)
	}
}

func testRemove(t *testing.T, database db.KVDB) {
	defer database.Close()

	testKey := []byte("remove-key")
	testValue := []byte("remove-value")

	prev, removed, err := database.Remove(testKey)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed || prev != nil {
		t.Errorf("Expected Remove of absent key to report removed=false")
	}

	mustInsert(t, database, testKey, testValue)

	prev, removed, err = database.Remove(testKey)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed || !bytes.Equal(prev, testValue) {
		t.Errorf("Expected removed value %s, got %s (removed=%v)", testValue, prev, removed)
	}

	if _, exists := mustGet(t, database, testKey); exists {
		t.Errorf("Expected key %s to be gone after Remove", testKey)
	}

	_, removed, _ = database.Remove(testKey)
	if removed {
		t.Errorf("Expected second Remove to report removed=false")
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	testKey := []byte("has-key")

	if ok, err := database.Has(testKey); err != nil || ok {
		t.Errorf("Expected Has to be false for absent key (err=%v)", err)
	}

	mustInsert(t, database, testKey, []byte("v"))

	if ok, err := database.Has(testKey); err != nil || !ok {
		t.Errorf("Expected Has to be true after Insert (err=%v)", err)
	}

	if _, _, err := database.Remove(testKey); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if ok, _ := database.Has(testKey); ok {
		t.Errorf("Expected Has to be false after Remove")
	}
}

func testLen(t *testing.T, database db.KVDB) {
	defer database.Close()

	if n := mustLen(t, database); n != 0 {
		t.Fatalf("Expected empty database, got len %d", n)
	}

	for i := uint64(0); i < 100; i++ {
		mustInsert(t, database, u64(i), []byte("v"))
	}
	// overwriting must not change the length
	mustInsert(t, database, u64(5), []byte("w"))

	if n := mustLen(t, database); n != 100 {
		t.Errorf("Expected len 100, got %d", n)
	}

	for i := uint64(0); i < 100; i += 2 {
		if _, _, err := database.Remove(u64(i)); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}

	if n := mustLen(t, database); n != 50 {
		t.Errorf("Expected len 50, got %d", n)
	}
}

func testIterateOrder(t *testing.T, database db.KVDB) {
	defer database.Close()

	// insert in a scrambled order
	ids := []uint64{42, 7, 1000, 1, 256, 255, 3, 65536}
	for _, id := range ids {
		mustInsert(t, database, u64(id), []byte(fmt.Sprintf("value-%d", id)))
	}

	var seen []uint64
	err := database.Iterate(func(key, value []byte) bool {
		id := binary.BigEndian.Uint64(key)
		if !bytes.Equal(value, []byte(fmt.Sprintf("value-%d", id))) {
			t.Errorf("Unexpected value %s for key %d", value, id)
		}
		seen = append(seen, id)
		return true
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}

	if len(seen) != len(ids) {
		t.Fatalf("Expected %d entries, got %d", len(ids), len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Errorf("Iterate is not ascending: %v", seen)
			break
		}
	}
}

func testIterateStop(t *testing.T, database db.KVDB) {
	defer database.Close()

	for i := uint64(0); i < 10; i++ {
		mustInsert(t, database, u64(i), []byte("v"))
	}

	count := 0
	err := database.Iterate(func(key, value []byte) bool {
		count++
		return count < 3
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected iteration to stop after 3 entries, got %d", count)
	}
}

func testLast(t *testing.T, database db.KVDB) {
	defer database.Close()

	if _, _, ok, err := database.Last(); err != nil || ok {
		t.Errorf("Expected Last on empty database to report ok=false (err=%v)", err)
	}

	for _, id := range []uint64{5, 300, 2, 299} {
		mustInsert(t, database, u64(id), []byte(fmt.Sprintf("value-%d", id)))
	}

	key, value, ok, err := database.Last()
	if err != nil || !ok {
		t.Fatalf("Last failed: ok=%v err=%v", ok, err)
	}
	if binary.BigEndian.Uint64(key) != 300 {
		t.Errorf("Expected last key 300, got %d", binary.BigEndian.Uint64(key))
	}
	if !bytes.Equal(value, []byte("value-300")) {
		t.Errorf("Expected last value value-300, got %s", value)
	}

	if _, _, err := database.Remove(u64(300)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	key, _, _, _ = database.Last()
	if binary.BigEndian.Uint64(key) != 299 {
		t.Errorf("Expected last key 299 after remove, got %d", binary.BigEndian.Uint64(key))
	}
}

func testClear(t *testing.T, database db.KVDB) {
	defer database.Close()

	for i := uint64(0); i < 20; i++ {
		mustInsert(t, database, u64(i), []byte("v"))
	}

	if err := database.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if n := mustLen(t, database); n != 0 {
		t.Errorf("Expected len 0 after Clear, got %d", n)
	}
	if _, _, ok, _ := database.Last(); ok {
		t.Errorf("Expected Last to report ok=false after Clear")
	}

	// the map stays usable
	mustInsert(t, database, u64(1), []byte("again"))
	if v, ok := mustGet(t, database, u64(1)); !ok || !bytes.Equal(v, []byte("again")) {
		t.Errorf("Expected database to be usable after Clear")
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	defer database.Close()

	numKeys := 500
	for i := 0; i < numKeys; i++ {
		mustInsert(t, database, u64(uint64(i)), []byte(fmt.Sprintf("value-%d", i)))
	}

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := factory()
	defer restored.Close()

	// pre-existing entries must be replaced by the snapshot
	mustInsert(t, restored, []byte("stale"), []byte("stale"))

	if err := restored.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if n := mustLen(t, restored); n != uint64(numKeys) {
		t.Errorf("Expected %d entries after Load, got %d", numKeys, n)
	}
	if ok, _ := restored.Has([]byte("stale")); ok {
		t.Errorf("Expected Load to replace previous contents")
	}
	for i := 0; i < numKeys; i++ {
		v, ok := mustGet(t, restored, u64(uint64(i)))
		if !ok || !bytes.Equal(v, []byte(fmt.Sprintf("value-%d", i))) {
			t.Errorf("Key %d not restored correctly: %s (ok=%v)", i, v, ok)
		}
	}

	if err := restored.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of invalid data to fail")
	}
}

func testConditionalWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	key := []byte("cond")

	// Replace on an absent key writes nothing
	if _, replaced, err := database.Replace(key, []byte("v0")); err != nil || replaced {
		t.Fatalf("Replace on absent key = %v, %v", replaced, err)
	}
	if _, ok := mustGet(t, database, key); ok {
		t.Fatalf("Replace created an absent key")
	}

	// InsertIfAbsent writes once
	if _, inserted, err := database.InsertIfAbsent(key, []byte("v1")); err != nil || !inserted {
		t.Fatalf("InsertIfAbsent on absent key = %v, %v", inserted, err)
	}
	existing, inserted, err := database.InsertIfAbsent(key, []byte("v2"))
	if err != nil || inserted || !bytes.Equal(existing, []byte("v1")) {
		t.Fatalf("InsertIfAbsent on present key = %q, %v, %v", existing, inserted, err)
	}

	prev, replaced, err := database.Replace(key, []byte("v3"))
	if err != nil || !replaced || !bytes.Equal(prev, []byte("v1")) {
		t.Fatalf("Replace on present key = %q, %v, %v", prev, replaced, err)
	}

	// CompareAndSwap with a stale value, a matching value and the absent marker
	if swapped, err := database.CompareAndSwap(key, []byte("v1"), []byte("x")); err != nil || swapped {
		t.Errorf("CompareAndSwap with stale value = %v, %v", swapped, err)
	}
	if swapped, err := database.CompareAndSwap(key, nil, []byte("x")); err != nil || swapped {
		t.Errorf("CompareAndSwap expecting absence of a present key = %v, %v", swapped, err)
	}
	if swapped, err := database.CompareAndSwap(key, []byte("v3"), []byte("v4")); err != nil || !swapped {
		t.Errorf("CompareAndSwap with current value = %v, %v", swapped, err)
	}
	if v, _ := mustGet(t, database, key); !bytes.Equal(v, []byte("v4")) {
		t.Errorf("expected v4 after swap, got %q", v)
	}

	fresh := []byte("fresh")
	if swapped, err := database.CompareAndSwap(fresh, nil, []byte("1")); err != nil || !swapped {
		t.Errorf("CompareAndSwap creating a key = %v, %v", swapped, err)
	}
	if n := mustLen(t, database); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}

func testReplaceAll(t *testing.T, database db.KVDB) {
	defer database.Close()

	mustInsert(t, database, []byte("a"), []byte("A"))
	mustInsert(t, database, []byte("b"), []byte("B"))

	missing, err := database.ReplaceAll(
		[][]byte{[]byte("a"), []byte("b"), []byte("c")},
		[][]byte{[]byte("A2"), []byte("B2"), []byte("C2")},
	)
	if err != nil || missing != 2 {
		t.Fatalf("ReplaceAll with absent key = %d, %v; want 2", missing, err)
	}
	if v, _ := mustGet(t, database, []byte("a")); !bytes.Equal(v, []byte("A")) {
		t.Errorf("ReplaceAll wrote %q although a key was missing", v)
	}
	if _, ok := mustGet(t, database, []byte("c")); ok {
		t.Errorf("ReplaceAll created the missing key")
	}

	missing, err = database.ReplaceAll(
		[][]byte{[]byte("b"), []byte("a")},
		[][]byte{[]byte("B2"), []byte("A2")},
	)
	if err != nil || missing != -1 {
		t.Fatalf("ReplaceAll = %d, %v; want -1", missing, err)
	}
	if v, _ := mustGet(t, database, []byte("a")); !bytes.Equal(v, []byte("A2")) {
		t.Errorf("expected A2, got %q", v)
	}
	if v, _ := mustGet(t, database, []byte("b")); !bytes.Equal(v, []byte("B2")) {
		t.Errorf("expected B2, got %q", v)
	}

	if missing, err := database.ReplaceAll(nil, nil); err != nil || missing != -1 {
		t.Errorf("empty ReplaceAll = %d, %v", missing, err)
	}
}

// testCompareAndSwapCounter increments one counter from many goroutines with
// read and swap retries. No increment may be lost.
func testCompareAndSwapCounter(t *testing.T, database db.KVDB) {
	defer database.Close()

	const workers, perWorker = 4, 10
	key := []byte("counter")

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				for {
					current, ok, err := database.Get(key)
					if err != nil {
						t.Errorf("Get failed: %v", err)
						return
					}
					var last uint64
					if ok {
						last = binary.BigEndian.Uint64(current)
					} else {
						current = nil
					}
					swapped, err := database.CompareAndSwap(key, current, u64(last+1))
					if err != nil {
						t.Errorf("CompareAndSwap failed: %v", err)
						return
					}
					if swapped {
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	v, ok := mustGet(t, database, key)
	if !ok || binary.BigEndian.Uint64(v) != workers*perWorker {
		t.Errorf("expected counter %d, got %x (ok=%v)", workers*perWorker, v, ok)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	// empty value
	mustInsert(t, database, []byte("empty-value"), []byte{})
	v, ok := mustGet(t, database, []byte("empty-value"))
	if !ok || len(v) != 0 {
		t.Errorf("Expected empty value to be stored, got %q (ok=%v)", v, ok)
	}

	// large value
	large := bytes.Repeat([]byte{0xAB}, 1<<20)
	mustInsert(t, database, []byte("large"), large)
	v, _ = mustGet(t, database, []byte("large"))
	if !bytes.Equal(v, large) {
		t.Errorf("Large value was not stored correctly")
	}

	// keys that are prefixes of each other
	mustInsert(t, database, []byte("a"), []byte("1"))
	mustInsert(t, database, []byte("ab"), []byte("2"))
	mustInsert(t, database, []byte("abc"), []byte("3"))
	for key, want := range map[string]string{"a": "1", "ab": "2", "abc": "3"} {
		got, _ := mustGet(t, database, []byte(key))
		if string(got) != want {
			t.Errorf("Key %s: expected %s, got %s", key, want, got)
		}
	}

	// binary keys with high bytes
	high := []byte{0xFF, 0xFF, 0xFF}
	mustInsert(t, database, high, []byte("high"))
	key, _, _, _ := database.Last()
	if !bytes.Equal(key, high) {
		t.Errorf("Expected last key %x, got %x", high, key)
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	type operation struct {
		op    string
		key   []byte
		value []byte
	}

	numOperations := 10_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5, 6:
			op = "insert"
		case 7, 8:
			op = "get"
		case 9:
			op = "remove"
		}

		var key []byte
		if i%5 == 0 {
			key = []byte(fmt.Sprintf("hot-key-%d", i%50))
		} else {
			key = []byte(fmt.Sprintf("key-%d", i))
		}

		var value []byte
		if op == "insert" {
			value = []byte(fmt.Sprintf("value-%d", i))
		}

		operations[i] = operation{op, key, value}
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var errorCount int32

	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				var err error
				switch op.op {
				case "insert":
					_, _, err = database.Insert(op.key, op.value)
				case "get":
					_, _, err = database.Get(op.key)
				case "remove":
					_, _, err = database.Remove(op.key)
				}
				if err != nil {
					atomic.AddInt32(&errorCount, 1)
				}
			}
		}(w)
	}

	wg.Wait()

	if atomic.LoadInt32(&errorCount) > 0 {
		t.Fatalf("Test had %d errors during parallel operations", errorCount)
	}

	// Len and Iterate must agree after the dust settled
	var iterated uint64
	var prev []byte
	err := database.Iterate(func(key, value []byte) bool {
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			t.Errorf("Iterate is not ascending: %q before %q", prev, key)
		}
		prev = key
		iterated++
		return true
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}

	if n := mustLen(t, database); n != iterated {
		t.Errorf("Len (%d) and Iterate (%d) disagree", n, iterated)
	}
}
