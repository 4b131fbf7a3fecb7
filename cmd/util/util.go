package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/badgerdb"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/cell"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
	"github.com/ValentinKolb/typedkv/rpc/transport/http"
	"github.com/ValentinKolb/typedkv/rpc/transport/tcp"
	"github.com/ValentinKolb/typedkv/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("client")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read TKV_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of every request"))

	key = "state-dir"
	cmd.PersistentFlags().String(key, DefaultStateDir(), WrapString("Directory of the local state (the cached peer addresses)"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (tcp and unix)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp only)"))
}

// DefaultStateDir is the typedkv directory in the user config directory
func DefaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "typedkv")
	}
	return ".typedkv"
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TransportType: viper.GetString("transport"),
		Serializer:    viper.GetString("serializer"),
		StateDir:      viper.GetString("state-dir"),
		Transport: common.ClientTransportConfig{
			TimeoutSecond:          viper.GetInt("timeout"),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			WriteBufferSize:        viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:         viper.GetInt("transport-read-buffer") * 1024,
			TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
		},
	}
}

// GetSerializer creates the serializer selected by the serializer flag
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetClientTransport creates the client transport selected by the transport flag
func GetClientTransport(config common.ClientConfig) (transport.IRPCClientTransport, error) {
	switch config.TransportType {
	case "http":
		return http.NewHttpClientTransport(config), nil
	case "tcp":
		return tcp.NewTCPClientTransport(config), nil
	case "unix":
		return unix.NewUnixClientTransport(config), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (must be one of http, tcp, unix)", config.TransportType)
	}
}

// GetServerTransport creates the server transport selected by the transport flag
func GetServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch name {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (must be one of http, tcp, unix)", name)
	}
}

// --------------------------------------------------------------------------
// Local state
// --------------------------------------------------------------------------

// peerSegments assigns every store a segment in the local state database
var peerSegments = map[string]db.SegmentID{
	entities.KindGroups:        1,
	entities.KindProfiles:      2,
	entities.KindNotifications: 3,
}

// State is the local badger database holding the peer address of every store
type State struct {
	engine *badgerdb.Engine
	peers  map[string]*cell.Cell[common.PeerAddress]
}

// OpenState opens the state database in dir
func OpenState(dir string) (*State, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	engine, err := badgerdb.Open(badgerdb.Options{Dir: dir, SyncWrites: true})
	if err != nil {
		return nil, err
	}

	registry := store.NewRegistry(engine.Segment)
	s := &State{engine: engine, peers: make(map[string]*cell.Cell[common.PeerAddress])}
	for name, segment := range peerSegments {
		database, err := registry.Bind(segment, "peer/"+name)
		if err != nil {
			_ = engine.Close()
			return nil, err
		}
		s.peers[name] = cell.New[common.PeerAddress]("peer/"+name, database, codec.Msgpack[common.PeerAddress]{})
	}
	return s, nil
}

// Peer returns the peer address cell of the named store
func (s *State) Peer(name string) (*cell.Cell[common.PeerAddress], error) {
	p, ok := s.peers[name]
	if !ok {
		return nil, fmt.Errorf("unknown store %q (must be one of %s, %s, %s)", name, entities.KindGroups, entities.KindProfiles, entities.KindNotifications)
	}
	return p, nil
}

// Close closes the state database
func (s *State) Close() error {
	return s.engine.Close()
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// PrintJSON prints v as indented JSON
func PrintJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// Now returns the current time as unix nanoseconds
func Now() uint64 {
	return uint64(time.Now().UnixNano())
}
