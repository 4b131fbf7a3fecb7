package common

import (
	"fmt"
	"strconv"
	"strings"
)

// PeerAddress identifies the store a client talks to: the transport endpoint
// of the storage peer and the shard id of the store on that peer.
type PeerAddress struct {
	Endpoint string `codec:"endpoint" json:"endpoint"`
	Shard    uint64 `codec:"shard" json:"shard"`
}

// String returns the address as endpoint#shard
func (p PeerAddress) String() string {
	return p.Endpoint + "#" + strconv.FormatUint(p.Shard, 10)
}

// ParsePeerAddress parses an address of the form endpoint#shard
func ParsePeerAddress(s string) (PeerAddress, error) {
	i := strings.LastIndex(s, "#")
	if i <= 0 || i == len(s)-1 {
		return PeerAddress{}, fmt.Errorf("invalid peer address %q, expected <endpoint>#<shard>", s)
	}
	shard, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("invalid shard in peer address %q: %w", s, err)
	}
	return PeerAddress{Endpoint: s[:i], Shard: shard}, nil
}
