package server

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is one store served under a shard id
type serverShard struct {
	Name    string
	Adapter IRPCServerAdapter
}

// RPCServer routes requests from a transport to the adapters of its shards.
//
// Usage:
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	server.RegisterAutoStore[entities.Group, entities.GroupFilter, entities.GroupSort](s, 100, "groups", groups, ids.Next)
//	if err := s.Serve(ctx); err != nil {
//		...
//	}
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

// NewRPCServer creates a new RPC server without shards
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// --------------------------------------------------------------------------
// Shard registration
// --------------------------------------------------------------------------

// Register serves adapter under shardID. A shard id can be registered once.
func (s *RPCServer) Register(shardID uint64, name string, adapter IRPCServerAdapter) error {
	if _, loaded := s.shards.LoadOrStore(shardID, serverShard{Name: name, Adapter: adapter}); loaded {
		return fmt.Errorf("shard %d is already registered", shardID)
	}
	Logger.Infof("registered store %q as shard %d", name, shardID)
	return nil
}

// RegisterAutoStore serves an auto-keyed store under shardID
func RegisterAutoStore[V any, F store.Filter[uint64, V], S store.Sorter[uint64, V]](s *RPCServer, shardID uint64, name string, st store.AutoKeyed[V], next store.KeyGenerator) error {
	return s.Register(shardID, name, NewAutoStoreAdapter[V, F, S](st, next))
}

// RegisterKeyedStore serves an externally keyed store under shardID
func RegisterKeyedStore[K, V any, F store.Filter[K, V], S store.Sorter[K, V]](s *RPCServer, shardID uint64, name string, st store.Keyed[K, V]) error {
	return s.Register(shardID, name, NewKeyedStoreAdapter[K, V, F, S](st))
}

// Shards returns the registered shard ids with their store names
func (s *RPCServer) Shards() map[uint64]string {
	shards := make(map[uint64]string)
	s.shards.Range(func(id uint64, shard serverShard) bool {
		shards[id] = shard.Name
		return true
	})
	return shards
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

// Handle processes one serialized request for shardId and returns the
// serialized response. It is the handler registered at the transport.
func (s *RPCServer) Handle(shardId uint64, req []byte) []byte {
	start := time.Now()

	var msg common.Message
	resp := s.dispatch(shardId, req, &msg)

	data, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize %s response for shard %d: %v", msg.MsgType, shardId, err)
		data, _ = s.serializer.Serialize(*common.NewErrorResponse(store.Unexpected().
			WithMethod(msg.MsgType.String()).
			WithMessagef("failed to serialize response: %v", err)))
	}

	observe(shardId, msg.MsgType, resp, start)
	return data
}

func (s *RPCServer) dispatch(shardId uint64, req []byte, msg *common.Message) *common.Message {
	if err := s.serializer.Deserialize(req, msg); err != nil {
		return common.NewErrorResponse(store.Unexpected().
			WithMessagef("failed to deserialize request: %v", err).
			WithInfof("shard: %d", shardId))
	}

	shard, ok := s.shards.Load(shardId)
	if !ok {
		return common.NewResponse(msg.MsgType, nil, store.Unexpected().
			WithMethod(msg.MsgType.String()).
			WithMessage("shard not found").
			WithInfof("shard: %d", shardId))
	}

	return shard.Adapter.Handle(msg)
}

// observe records request count, failures and duration per method
func observe(shardId uint64, t common.MessageType, resp *common.Message, start time.Time) {
	method := t.String()
	metrics.GetOrCreateCounter(fmt.Sprintf(`typedkv_requests_total{shard="%d",method="%s"}`, shardId, method)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`typedkv_request_duration_seconds{method="%s"}`, method)).UpdateDuration(start)
	if resp.Failed() {
		metrics.GetOrCreateCounter(fmt.Sprintf(`typedkv_request_errors_total{method="%s",kind="%s"}`, method, resp.ErrKind)).Inc()
	}
}

// Serve registers the handler at the transport and listens until ctx is done
func (s *RPCServer) Serve(ctx context.Context) error {
	if s.shards.Size() == 0 {
		return fmt.Errorf("no shards registered")
	}
	Logger.Infof("%s", s.config.String())

	s.transport.RegisterHandler(s.Handle)
	return s.transport.Listen(ctx, s.config)
}
