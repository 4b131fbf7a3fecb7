package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the dstore engine)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.Raft.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.Raft.SnapshotEntries,
		CompactionOverhead: c.Raft.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.Raft.RTTMillisecond,
		RaftAddress:    c.Raft.ClusterMembers[c.Raft.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// Storage engines
const (
	EngineMaple  = "maple"
	EngineBadger = "badger"
	EngineDStore = "dstore"
)

// ServerShard exposes one store under a shard id
type ServerShard struct {
	// ShardID is the id clients address
	ShardID uint64
	// Store is the name of the served store (e.g. "groups")
	Store string
}

// RaftConfig holds the parameters of the dstore engine
type RaftConfig struct {
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	ReplicaID          uint64
	ClusterMembers     map[uint64]string
	Join               bool
}

// ServerTransportConfig holds the parameters of the server transports
type ServerTransportConfig struct {
	Endpoint        string
	TimeoutSecond   int64
	BufferSize      int
	WorkersPerConn  int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	ReadBufferSize  int
	WriteBufferSize int
}

// ServerConfig holds all configuration parameters of a storage peer.
type ServerConfig struct {
	// Shards served by this peer
	Shards []ServerShard

	// Storage engine and its directory (badger and dstore)
	Engine  string
	DataDir string

	// Dragonboat parameters (dstore only)
	Raft RaftConfig

	// Transport settings
	TransportType string
	Transport     ServerTransportConfig
	Serializer    string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", c.TransportType)
	addField("Endpoint", c.Transport.Endpoint)
	addField("Serializer", c.Serializer)
	addField("Timeout", fmt.Sprintf("%d sec", c.Transport.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	addField("Engine", c.Engine)
	if c.Engine != EngineMaple {
		addField("Data Directory", c.DataDir)
	}

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), shard.Store)
	}

	if c.Engine == EngineDStore {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.Raft.ClusterMembers[c.Raft.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.Raft.ReplicaID, 10))
		addField("Join", strconv.FormatBool(c.Raft.Join))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.Raft.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.Raft.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.Raft.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.Raft.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.Raft.CompactionOverhead))

		// Cluster
		addSection("Cluster")
		sb.WriteString("  Initial Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.Raft.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.Raft.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the parameters of the client transports
type ClientTransportConfig struct {
	TimeoutSecond          int
	ConnectionsPerEndpoint int
	TCPNoDelay             bool
	TCPKeepAliveSec        int
	ReadBufferSize         int
	WriteBufferSize        int
}

// ClientConfig holds the configuration of the CLI client
type ClientConfig struct {
	TransportType string
	Transport     ClientTransportConfig
	Serializer    string

	// StateDir holds the badger database with the cached peer address
	StateDir string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Transport", c.TransportType)
	addField("Serializer", c.Serializer)
	addField("Timeout", fmt.Sprintf("%d sec", c.Transport.TimeoutSecond))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	addField("State Directory", c.StateDir)

	return sb.String()
}
