package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/typedkv/rpc/common"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		buf  []byte
	}{
		{"empty", []byte{}, nil},
		{"small without buffer", []byte("hello"), nil},
		{"fits buffer", []byte("hello"), make([]byte, 64)},
		{"larger than buffer", bytes.Repeat([]byte("x"), 100), make([]byte, 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stream bytes.Buffer
			if err := writeFrame(&stream, 7, 42, tt.data); err != nil {
				t.Fatalf("writeFrame failed: %v", err)
			}

			shard, req, data, err := readFrame(&stream, tt.buf)
			if err != nil {
				t.Fatalf("readFrame failed: %v", err)
			}
			if shard != 7 || req != 42 || !bytes.Equal(data, tt.data) {
				t.Errorf("got shard %d req %d data %q", shard, req, data)
			}
		})
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var stream bytes.Buffer
	writeFrame(&stream, 1, 1, []byte("payload"))
	truncated := stream.Bytes()[:stream.Len()-2]

	if _, _, _, err := readFrame(bytes.NewReader(truncated), nil); err == nil {
		t.Errorf("expected an error for a truncated frame")
	}
}

// --------------------------------------------------------------------------
// Loopback connector
// --------------------------------------------------------------------------

// loopConnector serves and dials tcp on a port picked by the kernel
type loopConnector struct {
	mu   sync.Mutex
	addr string
}

func (c *loopConnector) GetName() string { return "loop" }

func (c *loopConnector) Listen(common.ServerConfig) (net.Listener, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.addr = l.Addr().String()
	c.mu.Unlock()
	return l, nil
}

func (c *loopConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", endpoint)
}

func (c *loopConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

func (c *loopConnector) address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// serverConnector hides the client UpgradeConnection of loopConnector
type serverConnector struct{ *loopConnector }

func (s serverConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

func startServer(t *testing.T, handler func(shard uint64, req []byte) []byte) string {
	t.Helper()

	connector := &loopConnector{}
	server := NewBaseServerTransport(serverConnector{connector})
	server.RegisterHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Listen(ctx, common.ServerConfig{}) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Listen returned %v after shutdown", err)
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for connector.address() == "" {
		if time.Now().After(deadline) {
			t.Fatalf("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return connector.address()
}

func TestClientServer(t *testing.T) {
	addr := startServer(t, func(shard uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", shard, strings.ToUpper(string(req))))
	})

	client := NewBaseClientTransport(&loopConnector{}, common.ClientConfig{
		Transport: common.ClientTransportConfig{TimeoutSecond: 5, ConnectionsPerEndpoint: 2},
	})
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := fmt.Sprintf("req-%d", i)
			resp, err := client.Send(context.Background(), addr, uint64(i), []byte(req))
			if err != nil {
				t.Errorf("Send failed: %v", err)
				return
			}
			if want := fmt.Sprintf("%d:%s", i, strings.ToUpper(req)); string(resp) != want {
				t.Errorf("response = %q, want %q", resp, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	addr := startServer(t, func(uint64, []byte) []byte {
		<-release
		return []byte("late")
	})
	defer close(release)

	client := NewBaseClientTransport(&loopConnector{}, common.ClientConfig{})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Send(ctx, addr, 1, []byte("x")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send = %v, want deadline exceeded", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	// grab a free port and release it again
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	client := NewBaseClientTransport(&loopConnector{}, common.ClientConfig{})
	if _, err := client.Send(context.Background(), addr, 1, []byte("x")); err == nil {
		t.Errorf("Send to a closed port must fail")
	}

	client.Close()
	if _, err := client.Send(context.Background(), addr, 1, nil); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Send after Close = %v, want ErrTransportClosed", err)
	}
}
