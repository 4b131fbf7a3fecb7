package server

import (
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// An adapter owns the store of one shard and knows its concrete key, value,
// filter and sorter types.
type IRPCServerAdapter interface {
	// Handle decodes the arguments of req, runs the operation on the store
	// and returns the response. Failures are reported inside the response.
	Handle(req *common.Message) (resp *common.Message)
}
