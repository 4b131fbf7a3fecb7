package testing

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Insert", func(b *testing.B) {
		benchmarkInsert(b, factory())
	})

	b.Run("InsertExisting", func(b *testing.B) {
		benchmarkInsertExisting(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Remove", func(b *testing.B) {
		benchmarkRemove(b, factory())
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory())
	})

	b.Run("Last", func(b *testing.B) {
		benchmarkLast(b, factory())
	})

	b.Run("Iterate", func(b *testing.B) {
		benchmarkIterate(b, factory())
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func prepare(b *testing.B, database db.KVDB, numKeys int) {
	b.Helper()
	for i := 0; i < numKeys; i++ {
		if _, _, err := database.Insert(u64(uint64(i)), []byte(fmt.Sprintf("test-value-%d", i))); err != nil {
			b.Fatalf("prepare failed: %v", err)
		}
	}
}

// Benchmark for Insert operation
func benchmarkInsert(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	var counter uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddUint64(&counter, 1)
			database.Insert(u64(i), []byte("test-value"))
		}
	})
}

// Benchmark for Insert operation with existing keys
func benchmarkInsertExisting(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 10000
	prepare(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Insert(u64(uint64(counter%numKeys)), []byte("test-value-updated"))
			counter++
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 10000
	prepare(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Get(u64(uint64(counter % numKeys)))
			counter++
		}
	})
}

// Parallel benchmarking for Remove operation
func benchmarkRemove(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}
	prepare(b, database, numKeys)

	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)-1) % numKeys
			database.Remove(u64(uint64(idx)))
		}
	})
}

// Parallel benchmarking for Has operation (with key miss)
func benchmarkHasNot(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	key := []byte("test-key")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Has(key)
		}
	})
}

// Benchmark for Last, which bootstraps id counters
func benchmarkLast(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	prepare(b, database, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Last()
		}
	})
}

// Benchmark for a full scan, the building block of filter and get_all
func benchmarkIterate(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	prepare(b, database, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Iterate(func(key, value []byte) bool {
			return true
		})
	}
}

// Benchmark for Save and Load operations
// For these operations, parallelization is not meaningful as they typically
// lock the entire database
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {

	database := factory()

	b.Cleanup(func() {
		database.Close()
	})

	prepare(b, database, 10000)

	b.Run("Save", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			database.Save(&buf)
		}
	})

	var loadBuf bytes.Buffer
	database.Save(&loadBuf)
	data := loadBuf.Bytes()

	b.Run("Load", func(b *testing.B) {
		loadDB := factory()
		defer loadDB.Close()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			loadDB.Load(bytes.NewReader(data))
		}
	})
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}
	prepare(b, database, numKeys)

	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		localCounter := 0

		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)-1) % numKeys

			// For every 10th operation, use a completely new key
			var key []byte
			if localCounter%10 == 0 {
				key = []byte(fmt.Sprintf("new-key-%d", localCounter))
			} else {
				key = u64(uint64(idx))
			}

			switch localCounter % 4 {
			case 0:
				database.Get(key)
			case 1:
				database.Insert(key, []byte("mixed-value"))
			case 2:
				database.Remove(key)
			case 3:
				database.Has(key)
			}

			localCounter++
		}
	})
}
