package tcp

import (
	"context"
	"net"
	"time"

	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/transport"
	"github.com/ValentinKolb/typedkv/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", endpoint)
}

// UpgradeConnection applies the socket options of the client config
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return upgrade(tcpConn, socketOptions{
		noDelay:         config.Transport.TCPNoDelay,
		keepAliveSec:    config.Transport.TCPKeepAliveSec,
		lingerSec:       -1,
		readBufferSize:  config.Transport.ReadBufferSize,
		writeBufferSize: config.Transport.WriteBufferSize,
	})
}

// --------------------------------------------------------------------------
// Socket options
// --------------------------------------------------------------------------

type socketOptions struct {
	noDelay         bool
	keepAliveSec    int
	lingerSec       int // negative keeps the system default
	readBufferSize  int
	writeBufferSize int
}

func upgrade(conn *net.TCPConn, opts socketOptions) error {
	// Disable Nagle's algorithm if configured
	if err := conn.SetNoDelay(opts.noDelay); err != nil {
		return err
	}
	if opts.writeBufferSize > 0 {
		if err := conn.SetWriteBuffer(opts.writeBufferSize); err != nil {
			return err
		}
	}
	if opts.readBufferSize > 0 {
		if err := conn.SetReadBuffer(opts.readBufferSize); err != nil {
			return err
		}
	}
	if opts.keepAliveSec > 0 {
		if err := conn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := conn.SetKeepAlivePeriod(time.Duration(opts.keepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if opts.lingerSec >= 0 {
		if err := conn.SetLinger(opts.lingerSec); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport(config common.ClientConfig) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, config)
}
