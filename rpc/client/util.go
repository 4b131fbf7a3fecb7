package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// peerNotSetError is returned before any network attempt when no peer
// address is stored. It unwraps to a NotFound *store.Error.
type peerNotSetError struct {
	err *store.Error
}

func (e *peerNotSetError) Error() string { return e.err.Error() }
func (e *peerNotSetError) Unwrap() error { return e.err }

// isPeerNotSet reports whether err was raised locally for a missing peer address
func isPeerNotSet(err error) bool {
	var e *peerNotSetError
	return errors.As(err, &e)
}

// PeerSource returns the address of the storage peer.
// *cell.Cell[common.PeerAddress] implements it.
type PeerSource interface {
	Get() (common.PeerAddress, error)
}

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client.
// Used by the typed clients with composition pattern
type rpcClientAdapter struct {
	peer       PeerSource
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// callFailed builds the error for a request that did not produce a peer response
func callFailed(method string, peer common.PeerAddress, err error) *store.Error {
	return store.Unexpected().
		WithMethod(method).
		WithMessage("failed to call peer").
		WithInfof("peer: %s error: %v", peer, err)
}

// invoke is the helper used by all client methods to send a request.
// It reads the peer address, sends args as a request of type t and decodes
// the result of the response into result (unless result is nil).
// Every returned error is a *store.Error.
func (c *rpcClientAdapter) invoke(ctx context.Context, t common.MessageType, args any, result any) error {
	method := t.String()

	// Resolve the peer, no network attempt without an address
	peer, err := c.peer.Get()
	if err != nil {
		if store.KindOf(err) == store.KindNotFound {
			return &peerNotSetError{store.NotFound().WithMethod(method).WithMessage("peer address is not set")}
		}
		return store.AsError(err).WithMethod(method)
	}

	// Serialize the request
	req, err := common.NewRequest(t, args)
	if err != nil {
		return callFailed(method, peer, err)
	}
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return callFailed(method, peer, err)
	}

	// Send the request
	respBytes, err := c.transport.Send(ctx, peer.Endpoint, peer.Shard, reqBytes)
	if err != nil {
		Logger.Debugf("%s on %s failed: %v", method, peer, err)
		return callFailed(method, peer, err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return callFailed(method, peer, err)
	}

	// A failure reported by the peer is returned as is
	if resp.Failed() {
		return resp.Error()
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != t {
		return callFailed(method, peer, fmt.Errorf("unexpected response type %s", resp.MsgType))
	}

	if result == nil {
		return nil
	}
	if err := resp.Decode(result); err != nil {
		return callFailed(method, peer, err)
	}
	return nil
}
