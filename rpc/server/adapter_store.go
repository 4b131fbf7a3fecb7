package server

import (
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// queryUpdater is the part of both store capability sets served by every adapter
type queryUpdater[K, V any] interface {
	store.Queryable[K, V]
	store.Updateable[K, V]
}

// storeAdapter serves the operations shared by auto-keyed and keyed stores.
// The filter list of a request is combined with store.MatchAll.
type storeAdapter[K, V any, F store.Filter[K, V], S store.Sorter[K, V]] struct {
	store queryUpdater[K, V]
}

// decode decodes the request payload into args or returns an error response
func decode[A any](req *common.Message) (A, *common.Message) {
	var args A
	if err := req.Decode(&args); err != nil {
		return args, common.NewResponse(req.MsgType, nil, store.Unexpected().
			WithMethod(req.MsgType.String()).
			WithMessagef("failed to decode arguments: %v", err))
	}
	return args, nil
}

func (a *storeAdapter[K, V, F, S]) Handle(req *common.Message) *common.Message {
	t := req.MsgType

	switch t {
	case common.MsgTSize:
		n, err := a.store.Size()
		return common.NewResponse(t, n, err)

	case common.MsgTGet:
		args, errResp := decode[common.KeyArgs[K]](req)
		if errResp != nil {
			return errResp
		}
		entry, err := a.store.Get(args.Key)
		return common.NewResponse(t, entry, err)

	case common.MsgTGetMany:
		args, errResp := decode[common.KeysArgs[K]](req)
		if errResp != nil {
			return errResp
		}
		entries, err := a.store.GetMany(args.Keys)
		return common.NewResponse(t, entries, err)

	case common.MsgTGetAll:
		entries, err := a.store.GetAll()
		return common.NewResponse(t, entries, err)

	case common.MsgTGetPaginated:
		args, errResp := decode[common.PageArgs[S]](req)
		if errResp != nil {
			return errResp
		}
		page, err := a.store.GetPaginated(args.Limit, args.Page, args.Sort)
		return common.NewResponse(t, page, err)

	case common.MsgTFind:
		args, errResp := decode[common.FilterArgs[F]](req)
		if errResp != nil {
			return errResp
		}
		entry, ok, err := a.store.Find(store.MatchAll[K, V](args.Filters))
		return common.NewResponse(t, common.FindResult[K, V]{Found: ok, Key: entry.Key, Value: entry.Value}, err)

	case common.MsgTFilter:
		args, errResp := decode[common.FilterArgs[F]](req)
		if errResp != nil {
			return errResp
		}
		entries, err := a.store.Filter(store.MatchAll[K, V](args.Filters))
		return common.NewResponse(t, entries, err)

	case common.MsgTFilterPaginated:
		args, errResp := decode[common.FilterPageArgs[F, S]](req)
		if errResp != nil {
			return errResp
		}
		page, err := a.store.FilterPaginated(args.Limit, args.Page, args.Sort, store.MatchAll[K, V](args.Filters))
		return common.NewResponse(t, page, err)

	case common.MsgTUpdate:
		args, errResp := decode[common.EntryArgs[K, V]](req)
		if errResp != nil {
			return errResp
		}
		entry, err := a.store.Update(args.Key, args.Value)
		return common.NewResponse(t, entry, err)

	case common.MsgTUpdateMany:
		args, errResp := decode[common.EntriesArgs[K, V]](req)
		if errResp != nil {
			return errResp
		}
		entries := make([]store.Entry[K, V], len(args.Entries))
		for i, e := range args.Entries {
			entries[i] = store.Entry[K, V]{Key: e.Key, Value: e.Value}
		}
		updated, err := a.store.UpdateMany(entries)
		return common.NewResponse(t, updated, err)

	case common.MsgTRemove:
		args, errResp := decode[common.KeyArgs[K]](req)
		if errResp != nil {
			return errResp
		}
		return common.NewResponse(t, nil, a.store.Remove(args.Key))

	case common.MsgTRemoveMany:
		args, errResp := decode[common.KeysArgs[K]](req)
		if errResp != nil {
			return errResp
		}
		return common.NewResponse(t, nil, a.store.RemoveMany(args.Keys))

	default:
		return common.NewResponse(t, nil, store.Unexpected().
			WithMethod(t.String()).
			WithMessagef("unsupported message type: %d", uint8(t)))
	}
}

// --------------------------------------------------------------------------
// Auto-keyed stores
// --------------------------------------------------------------------------

// NewAutoStoreAdapter serves an auto-keyed store. Inserted values get their
// key from next.
func NewAutoStoreAdapter[V any, F store.Filter[uint64, V], S store.Sorter[uint64, V]](s store.AutoKeyed[V], next store.KeyGenerator) IRPCServerAdapter {
	return &autoStoreAdapter[V, F, S]{
		storeAdapter: storeAdapter[uint64, V, F, S]{store: s},
		insertable:   s,
		next:         next,
	}
}

type autoStoreAdapter[V any, F store.Filter[uint64, V], S store.Sorter[uint64, V]] struct {
	storeAdapter[uint64, V, F, S]
	insertable store.Insertable[V]
	next       store.KeyGenerator
}

func (a *autoStoreAdapter[V, F, S]) Handle(req *common.Message) *common.Message {
	if req.MsgType != common.MsgTInsert {
		return a.storeAdapter.Handle(req)
	}
	args, errResp := decode[common.ValueArgs[V]](req)
	if errResp != nil {
		return errResp
	}
	entry, err := a.insertable.Insert(args.Value, a.next)
	return common.NewResponse(req.MsgType, entry, err)
}

// --------------------------------------------------------------------------
// Keyed stores
// --------------------------------------------------------------------------

// NewKeyedStoreAdapter serves an externally keyed store
func NewKeyedStoreAdapter[K, V any, F store.Filter[K, V], S store.Sorter[K, V]](s store.Keyed[K, V]) IRPCServerAdapter {
	return &keyedStoreAdapter[K, V, F, S]{
		storeAdapter: storeAdapter[K, V, F, S]{store: s},
		insertable:   s,
	}
}

type keyedStoreAdapter[K, V any, F store.Filter[K, V], S store.Sorter[K, V]] struct {
	storeAdapter[K, V, F, S]
	insertable store.InsertableByKey[K, V]
}

func (a *keyedStoreAdapter[K, V, F, S]) Handle(req *common.Message) *common.Message {
	if req.MsgType != common.MsgTInsert {
		return a.storeAdapter.Handle(req)
	}
	args, errResp := decode[common.EntryArgs[K, V]](req)
	if errResp != nil {
		return errResp
	}
	entry, err := a.insertable.InsertByKey(args.Key, args.Value)
	return common.NewResponse(req.MsgType, entry, err)
}
