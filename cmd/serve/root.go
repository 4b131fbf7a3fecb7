package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/badgerdb"
	"github.com/ValentinKolb/typedkv/lib/db/engines/dstore"
	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
	"github.com/ValentinKolb/typedkv/lib/db/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	log = logger.GetLogger("server")

	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a typedkv storage peer",
		Long: `Start a typedkv storage peer with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TKV_<flag> (e.g. TKV_DATA_DIR=/var/lib/tkv)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=groups,101=profiles,102=notifications", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=STORE where STORE is one of: groups, profiles, notifications"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, common.EngineMaple, cmdUtil.WrapString("Storage engine of the ordered maps: maple (in memory), badger (on disk) or dstore (replicated with RAFT)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory of the badger database or of the RAFT logs and snapshots"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(dstore) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. Other raft configuration parameters (ElectionRTT, HeartbeatRTT) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(dstore) SnapshotEntries defines how often the state machine should be snapshotted automatically, in applied RAFT log entries. 0 disables automatic snapshots (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 50, cmdUtil.WrapString("(dstore) CompactionOverhead is the number of log entries kept after a snapshot. Recommended value is about 1/2 of SnapshotEntries"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ReplicaID is the unique name of this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "join"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("(dstore) Join existing shards as a new member instead of bootstrapping them"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds of a single request (and of a RAFT proposal)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/tkv.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address of a separate HTTP listener for GET /metrics (the http transport always serves /metrics)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Concurrent requests per connection (tcp and unix)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Size of the pooled request buffers in KB (tcp and unix)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (tcp only)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// parseShards parses the ID=STORE list of the shards flag
func parseShards(s string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	for _, shardConfig := range strings.Split(s, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=STORE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		name := strings.TrimSpace(parts[1])
		switch name {
		case entities.KindGroups, entities.KindProfiles, entities.KindNotifications:
		default:
			return nil, fmt.Errorf("invalid store: %s (expected one of: groups, profiles, notifications)", name)
		}

		shards = append(shards, common.ServerShard{ShardID: shardID, Store: name})
	}
	return shards, nil
}

// parseClusterMembers parses the name=address list of the cluster-members flag
func parseClusterMembers(s string) (map[uint64]string, error) {
	members := make(map[uint64]string)
	for _, member := range strings.Split(s, ",") {
		parts := strings.Split(member, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
		}
		members[util.HashString(strings.TrimSpace(parts[0]), 0)] = strings.TrimSpace(parts[1])
	}
	return members, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	shards, err := parseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}
	serveCmdConfig.Shards = shards

	serveCmdConfig.Engine = viper.GetString("engine")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.TransportType = viper.GetString("transport")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		TimeoutSecond:   viper.GetInt64("timeout"),
		BufferSize:      viper.GetInt("buffer-size") * 1024,
		WorkersPerConn:  viper.GetInt("workers-per-conn"),
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
	}
	serveCmdConfig.Raft = common.RaftConfig{
		RTTMillisecond:     viper.GetUint64("rtt-millisecond"),
		SnapshotEntries:    viper.GetUint64("snapshot-entries"),
		CompactionOverhead: viper.GetUint64("compaction-overhead"),
		Join:               viper.GetBool("join"),
	}

	switch serveCmdConfig.Engine {
	case common.EngineMaple, common.EngineBadger:
		return nil
	case common.EngineDStore:
	default:
		return fmt.Errorf("invalid engine: %s (expected one of: maple, badger, dstore)", serveCmdConfig.Engine)
	}

	// the remaining checks only apply to the replicated engine
	id := viper.GetString("replica-id")
	if id == "" {
		return fmt.Errorf("replica-id is required for the dstore engine")
	}
	serveCmdConfig.Raft.ReplicaID = util.HashString(id, 0)

	members := viper.GetString("cluster-members")
	if members == "" {
		return fmt.Errorf("cluster-members is required for the dstore engine")
	}
	if serveCmdConfig.Raft.ClusterMembers, err = parseClusterMembers(members); err != nil {
		return err
	}
	if _, ok := serveCmdConfig.Raft.ClusterMembers[serveCmdConfig.Raft.ReplicaID]; !ok {
		return fmt.Errorf("no address found for replica %s in cluster members", id)
	}
	return nil
}

// openEngine returns the segment factory of the configured engine and a
// function that closes it
func openEngine(config *common.ServerConfig) (db.Factory, func() error, error) {
	switch config.Engine {
	case common.EngineBadger:
		engine, err := badgerdb.Open(badgerdb.Options{Dir: config.DataDir})
		if err != nil {
			return nil, nil, err
		}
		return engine.Segment, engine.Close, nil

	case common.EngineDStore:
		nh, err := dragonboat.NewNodeHost(config.ToNodeHostConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create node host: %w", err)
		}
		members := config.Raft.ClusterMembers
		if config.Raft.Join {
			members = nil
		}
		engine := dstore.NewEngine(nh, dstore.Options{
			InitialMembers: members,
			Join:           config.Raft.Join,
			RaftConfig:     config.ToDragonboatConfig,
			Timeout:        time.Duration(config.Transport.TimeoutSecond) * time.Second,
		})
		return engine.Segment, engine.Close, nil

	default:
		return maple.NewFactory(nil), func() error { return nil }, nil
	}
}

// serveMetrics exposes the VictoriaMetrics registry on endpoint until ctx is done
func serveMetrics(ctx context.Context, endpoint string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{Addr: endpoint, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Infof("metrics listening on %s", endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// run starts the typedkv storage peer
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	s, err := serializer.New(serveCmdConfig.Serializer)
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport(serveCmdConfig.TransportType)
	if err != nil {
		return err
	}

	// open the storage engine and bind the entity stores
	factory, closeEngine, err := openEngine(serveCmdConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEngine(); err != nil {
			log.Errorf("failed to close engine: %v", err)
		}
	}()

	stores, err := entities.Open(store.NewRegistry(factory), entities.DefaultLayout())
	if err != nil {
		return fmt.Errorf("failed to open entity stores: %w", err)
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)
	if err := server.RegisterEntityShards(serv, stores, serveCmdConfig.Shards); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serv.Serve(ctx)
	})
	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		g.Go(func() error {
			return serveMetrics(ctx, endpoint)
		})
	}

	err = g.Wait()
	log.Infof("storage peer stopped")
	return err
}
