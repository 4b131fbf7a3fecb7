package client

import (
	"context"

	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
)

// Client is the remote view of a store with key type K and value type V.
// The peer is read on every call, so changing the address takes effect
// with the next request. Requests are neither cached nor retried.
type Client[K, V any, F store.Filter[K, V], S store.Sorter[K, V]] struct {
	rpcClientAdapter
}

func newClient[K, V any, F store.Filter[K, V], S store.Sorter[K, V]](
	peer PeerSource,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) Client[K, V, F, S] {
	return Client[K, V, F, S]{rpcClientAdapter{
		peer:       peer,
		transport:  transport,
		serializer: serializer,
	}}
}

// --------------------------------------------------------------------------
// Queries (docu see store.Queryable)
// --------------------------------------------------------------------------

func (c *Client[K, V, F, S]) Size(ctx context.Context) (n uint64, err error) {
	err = c.invoke(ctx, common.MsgTSize, nil, &n)
	return n, err
}

func (c *Client[K, V, F, S]) Get(ctx context.Context, key K) (entry store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTGet, common.KeyArgs[K]{Key: key}, &entry)
	return entry, err
}

// GetOpt is Get that reports an absent key through ok instead of NotFound
func (c *Client[K, V, F, S]) GetOpt(ctx context.Context, key K) (entry store.Entry[K, V], ok bool, err error) {
	entry, err = c.Get(ctx, key)
	switch {
	case err == nil:
		return entry, true, nil
	case store.KindOf(err) == store.KindNotFound && !isPeerNotSet(err):
		return entry, false, nil
	default:
		return entry, false, err
	}
}

func (c *Client[K, V, F, S]) GetMany(ctx context.Context, keys []K) (entries []store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTGetMany, common.KeysArgs[K]{Keys: keys}, &entries)
	return entries, err
}

func (c *Client[K, V, F, S]) GetAll(ctx context.Context) (entries []store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTGetAll, nil, &entries)
	return entries, err
}

func (c *Client[K, V, F, S]) GetPaginated(ctx context.Context, limit, page uint64, sort S) (p store.Page[store.Entry[K, V]], err error) {
	err = c.invoke(ctx, common.MsgTGetPaginated, common.PageArgs[S]{Limit: limit, Page: page, Sort: sort}, &p)
	return p, err
}

// Find returns the first entry in key order that matches all filters
func (c *Client[K, V, F, S]) Find(ctx context.Context, filters ...F) (entry store.Entry[K, V], ok bool, err error) {
	var res common.FindResult[K, V]
	if err = c.invoke(ctx, common.MsgTFind, common.FilterArgs[F]{Filters: filters}, &res); err != nil {
		return entry, false, err
	}
	return store.Entry[K, V]{Key: res.Key, Value: res.Value}, res.Found, nil
}

// Filter returns all entries that match all filters
func (c *Client[K, V, F, S]) Filter(ctx context.Context, filters ...F) (entries []store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTFilter, common.FilterArgs[F]{Filters: filters}, &entries)
	return entries, err
}

func (c *Client[K, V, F, S]) FilterPaginated(ctx context.Context, limit, page uint64, sort S, filters ...F) (p store.Page[store.Entry[K, V]], err error) {
	args := common.FilterPageArgs[F, S]{Limit: limit, Page: page, Sort: sort, Filters: filters}
	err = c.invoke(ctx, common.MsgTFilterPaginated, args, &p)
	return p, err
}

// --------------------------------------------------------------------------
// Updates (docu see store.Updateable)
// --------------------------------------------------------------------------

func (c *Client[K, V, F, S]) Update(ctx context.Context, key K, value V) (entry store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTUpdate, common.EntryArgs[K, V]{Key: key, Value: value}, &entry)
	return entry, err
}

func (c *Client[K, V, F, S]) UpdateMany(ctx context.Context, entries []store.Entry[K, V]) (updated []store.Entry[K, V], err error) {
	args := common.EntriesArgs[K, V]{Entries: make([]common.EntryArgs[K, V], len(entries))}
	for i, e := range entries {
		args.Entries[i] = common.EntryArgs[K, V]{Key: e.Key, Value: e.Value}
	}
	err = c.invoke(ctx, common.MsgTUpdateMany, args, &updated)
	return updated, err
}

func (c *Client[K, V, F, S]) Remove(ctx context.Context, key K) error {
	return c.invoke(ctx, common.MsgTRemove, common.KeyArgs[K]{Key: key}, nil)
}

func (c *Client[K, V, F, S]) RemoveMany(ctx context.Context, keys []K) error {
	return c.invoke(ctx, common.MsgTRemoveMany, common.KeysArgs[K]{Keys: keys}, nil)
}

// --------------------------------------------------------------------------
// Auto-keyed client
// --------------------------------------------------------------------------

// AutoClient is the remote view of an auto-keyed store
type AutoClient[V any, F store.Filter[uint64, V], S store.Sorter[uint64, V]] struct {
	Client[uint64, V, F, S]
}

// NewAutoClient creates a client for an auto-keyed store
func NewAutoClient[V any, F store.Filter[uint64, V], S store.Sorter[uint64, V]](
	peer PeerSource,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) *AutoClient[V, F, S] {
	return &AutoClient[V, F, S]{newClient[uint64, V, F, S](peer, transport, serializer)}
}

// Insert stores value under the next id the peer allocates for the store
func (c *AutoClient[V, F, S]) Insert(ctx context.Context, value V) (entry store.Entry[uint64, V], err error) {
	err = c.invoke(ctx, common.MsgTInsert, common.ValueArgs[V]{Value: value}, &entry)
	return entry, err
}

// --------------------------------------------------------------------------
// Keyed client
// --------------------------------------------------------------------------

// KeyedClient is the remote view of an externally keyed store
type KeyedClient[K, V any, F store.Filter[K, V], S store.Sorter[K, V]] struct {
	Client[K, V, F, S]
}

// NewKeyedClient creates a client for an externally keyed store
func NewKeyedClient[K, V any, F store.Filter[K, V], S store.Sorter[K, V]](
	peer PeerSource,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) *KeyedClient[K, V, F, S] {
	return &KeyedClient[K, V, F, S]{newClient[K, V, F, S](peer, transport, serializer)}
}

// InsertByKey stores value under key or returns Duplicate
func (c *KeyedClient[K, V, F, S]) InsertByKey(ctx context.Context, key K, value V) (entry store.Entry[K, V], err error) {
	err = c.invoke(ctx, common.MsgTInsert, common.EntryArgs[K, V]{Key: key, Value: value}, &entry)
	return entry, err
}
