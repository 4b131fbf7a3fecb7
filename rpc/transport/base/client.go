package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrTransportClosed is returned by Send after Close
var ErrTransportClosed = errors.New("transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection represents a single net connection. It is dead once its
// reader goroutine stopped; dead connections are replaced on the next Send.
type clientConnection struct {
	conn    net.Conn
	writeMu sync.Mutex // serializes frame writes
	pending *xsync.MapOf[uint64, chan responseResult]
	done    chan struct{} // closed when the reader stops
	err     error         // reason the reader stopped, valid after done
}

// endpointPool holds the connections to one endpoint
type endpointPool struct {
	endpoint string
	mu       sync.Mutex // guards dialing and replacing connections
	conns    []*clientConnection
	next     atomic.Uint64
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	pools         *xsync.MapOf[string, *endpointPool]
	nextRequestID atomic.Uint64
	closed        atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		config:    config,
		pools:     xsync.NewMapOf[string, *endpointPool](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Send(ctx context.Context, endpoint string, shardId uint64, req []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	if t.config.Transport.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.config.Transport.TimeoutSecond)*time.Second)
		defer cancel()
	}

	connection, err := t.connection(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// Register the request before writing, the response may arrive at once
	requestID := t.nextRequestID.Add(1)
	respCh := make(chan responseResult, 1)
	connection.pending.Store(requestID, respCh)
	defer connection.pending.Delete(requestID)

	connection.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		connection.conn.SetWriteDeadline(deadline)
	} else {
		connection.conn.SetWriteDeadline(time.Time{})
	}
	err = writeFrame(connection.conn, shardId, requestID, req)
	connection.writeMu.Unlock()

	if err != nil {
		// a partial frame leaves the stream unusable
		connection.conn.Close()
		return nil, fmt.Errorf("failed to write request to %s: %w", endpoint, err)
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-connection.done:
		return nil, fmt.Errorf("connection to %s lost: %w", endpoint, connection.err)
	case <-ctx.Done():
		return nil, fmt.Errorf("request to %s: %w", endpoint, ctx.Err())
	}
}

func (t *clientTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.pools.Range(func(endpoint string, pool *endpointPool) bool {
		pool.mu.Lock()
		for _, c := range pool.conns {
			if c != nil {
				c.conn.Close()
			}
		}
		pool.conns = nil
		pool.mu.Unlock()
		return true
	})
	t.pools.Clear()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connection selects the next connection to endpoint via Round Robin and
// dials it if it is missing or dead
func (t *clientTransport) connection(ctx context.Context, endpoint string) (*clientConnection, error) {
	size := max(1, t.config.Transport.ConnectionsPerEndpoint)

	pool, _ := t.pools.LoadOrCompute(endpoint, func() *endpointPool {
		return &endpointPool{
			endpoint: endpoint,
			conns:    make([]*clientConnection, size),
		}
	})

	slot := 0
	if size > 1 {
		slot = int(pool.next.Add(1) % uint64(size))
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if slot >= len(pool.conns) {
		pool.conns = append(pool.conns, make([]*clientConnection, slot+1-len(pool.conns))...)
	}

	if c := pool.conns[slot]; c != nil && c.alive() {
		return c, nil
	}

	c, err := t.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	pool.conns[slot] = c
	Logger.Debugf("Connected to %s (connection %d/%d) using %s transport", endpoint, slot+1, size, t.connector.GetName())
	return c, nil
}

// dial opens and upgrades a connection and starts its reader
func (t *clientTransport) dial(ctx context.Context, endpoint string) (*clientConnection, error) {
	conn, err := t.connector.Connect(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", endpoint, err)
	}

	c := &clientConnection{
		conn:    conn,
		pending: xsync.NewMapOf[uint64, chan responseResult](),
		done:    make(chan struct{}),
	}
	go c.readResponses()
	return c, nil
}

// alive reports whether the reader of c is still running
func (c *clientConnection) alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// readResponses reads responses in a loop and distributes them to waiting
// requests. It stops at the first read error and closes the connection.
func (c *clientConnection) readResponses() {
	defer close(c.done)
	defer c.conn.Close()

	for {
		shardID, requestID, data, err := readFrame(c.conn, nil)
		if err != nil {
			c.err = err
			Logger.Debugf("Connection to %s closed: %v", c.conn.RemoteAddr(), err)
			return
		}

		respCh, found := c.pending.Load(requestID)
		if !found {
			// the request timed out before the response arrived
			Logger.Warningf("Received response for unknown request ID %d with shard ID %d", requestID, shardID)
			continue
		}
		respCh <- responseResult{data: data}
	}
}
