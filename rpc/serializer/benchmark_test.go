package serializer

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// benchmarkMessages returns requests and responses as the store clients send them
func benchmarkMessages(b *testing.B) map[string]common.Message {
	group := func(i int) entities.Group {
		return entities.Group{
			Name:      fmt.Sprintf("group-%d", i),
			Owner:     "alice",
			Tags:      []string{"books", "reading"},
			Members:   []string{"alice", "bob", "carol"},
			CreatedOn: uint64(i),
			UpdatedOn: uint64(i),
		}
	}
	page := func(n int) store.Page[store.Entry[uint64, entities.Group]] {
		entries := make([]store.Entry[uint64, entities.Group], n)
		for i := range entries {
			entries[i] = store.Entry[uint64, entities.Group]{Key: uint64(i + 1), Value: group(i)}
		}
		return store.Paginate(entries, uint64(n), 0)
	}

	get, err := common.NewRequest(common.MsgTGet, common.KeyArgs[uint64]{Key: 42})
	if err != nil {
		b.Fatalf("failed to build request: %v", err)
	}
	filter, err := common.NewRequest(common.MsgTFilterPaginated, common.FilterPageArgs[entities.GroupFilter, entities.GroupSort]{
		Limit:   20,
		Filters: []entities.GroupFilter{entities.GroupByName("book"), entities.GroupByOwner("alice")},
	})
	if err != nil {
		b.Fatalf("failed to build request: %v", err)
	}

	return map[string]common.Message{
		"Empty":         {MsgType: common.MsgTSize},
		"GetRequest":    *get,
		"GetResponse":   *common.NewResponse(common.MsgTGet, store.Entry[uint64, entities.Group]{Key: 42, Value: group(42)}, nil),
		"FilterRequest": *filter,
		"Page20":        *common.NewResponse(common.MsgTFilterPaginated, page(20), nil),
		"Page500":       *common.NewResponse(common.MsgTGetPaginated, page(500), nil),
		"ErrorMessage": *common.NewResponse(common.MsgTUpdate, nil, store.NotFound().
			WithMethod("update").
			WithInfo("groups").
			WithMessage("key 42 not found")),
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages(b)

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages(b)
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages(b)

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
