package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/typedkv/lib/store/cell"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
)

// Session bundles what a client command needs: the local state with the
// peer address of the store, the transport and the serializer.
type Session struct {
	Config     *common.ClientConfig
	State      *State
	Peer       *cell.Cell[common.PeerAddress]
	Transport  transport.IRPCClientTransport
	Serializer serializer.IRPCSerializer
}

// OpenSession reads the client configuration from viper and opens the
// session for the named store
func OpenSession(storeName string) (*Session, error) {
	config := GetClientConfig()

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetClientTransport(*config)
	if err != nil {
		return nil, err
	}

	state, err := OpenState(config.StateDir)
	if err != nil {
		return nil, err
	}
	peer, err := state.Peer(storeName)
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	return &Session{
		Config:     config,
		State:      state,
		Peer:       peer,
		Transport:  t,
		Serializer: s,
	}, nil
}

// Context returns the context for one command, it is cancelled on SIGINT.
// Every single request is bounded by the transport timeout.
func (s *Session) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Close closes the transport and the state database
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	_ = s.Transport.Close()
	return s.State.Close()
}
