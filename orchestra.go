// Package orchestra keeps the local state of one peer taking part in
// update-exchange reconciliation: the current value of every key, and a
// compact per-round history of how those values got there.
package orchestra

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

// FirstRecno is the round a fresh or reset store starts in.
const FirstRecno int32 = 0

type Options struct {
	Peer   txn.PeerID
	Logger utils.Logger
	// CacheSize is handed to backends that keep a read cache.
	CacheSize int
}

func (o *Options) SetDefaults() {
	if o.Peer == "" {
		o.Peer = txn.NewPeerID()
	}
	if o.Logger == nil {
		o.Logger = utils.NopLogger()
	}
}

// DiffStore is the reconciliation state of one peer. Mutating calls
// take a writer token and fail with ErrConcurrentWrite instead of
// waiting when another mutation is in flight; reads may run alongside.
type DiffStore struct {
	b    backend.Backend
	peer txn.PeerID
	log  utils.Logger

	writer sync.Mutex

	mu   sync.RWMutex
	meta backend.Meta
}

func Open(b backend.Backend, opts Options) (*DiffStore, error) {
	opts.SetDefaults()
	ds := &DiffStore{b: b, peer: opts.Peer, log: opts.Logger.With("peer", opts.Peer)}
	meta, found, err := b.LoadMeta()
	if err != nil {
		return nil, err
	}
	if !found {
		meta = backend.Meta{FirstRecno: FirstRecno, CurrentRecno: FirstRecno}
		if err = b.SaveMeta(meta); err != nil {
			return nil, err
		}
	}
	ds.meta = meta
	CurrentRound.WithLabelValues(string(ds.peer)).Set(float64(meta.CurrentRecno))
	ds.log.Info("diff store opened", "store", b.Descriptor().ID,
		"first", meta.FirstRecno, "current", meta.CurrentRecno)
	return ds, nil
}

func (ds *DiffStore) Close() error {
	return ds.b.Close()
}

func (ds *DiffStore) Backend() backend.Backend {
	return ds.b
}

func (ds *DiffStore) Peer() txn.PeerID {
	return ds.peer
}

func (ds *DiffStore) CurrentRecno() int32 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.meta.CurrentRecno
}

func (ds *DiffStore) FirstRecno() int32 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.meta.FirstRecno
}

// PidAndRecno is this peer's position in the exchange.
func (ds *DiffStore) PidAndRecno() txn.PidAndRecno {
	return txn.PidAndRecno{Peer: ds.peer, Recno: ds.CurrentRecno()}
}

func (ds *DiffStore) snapshot() backend.Meta {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.meta
}

// commit persists meta and then publishes it.
func (ds *DiffStore) commit(meta backend.Meta) error {
	if err := ds.b.SaveMeta(meta); err != nil {
		return err
	}
	ds.mu.Lock()
	ds.meta = meta
	ds.mu.Unlock()
	CurrentRound.WithLabelValues(string(ds.peer)).Set(float64(meta.CurrentRecno))
	return nil
}

func (ds *DiffStore) lockWriter() error {
	if !ds.writer.TryLock() {
		return orchestra_errors.ErrConcurrentWrite
	}
	return nil
}

func (ds *DiffStore) checkRecno(recno int32, meta backend.Meta) error {
	if recno < meta.FirstRecno || recno > meta.CurrentRecno {
		Rejected.WithLabelValues("bad_recno").Inc()
		return errors.Wrapf(orchestra_errors.ErrBadRecno, "recno %d outside [%d, %d]",
			recno, meta.FirstRecno, meta.CurrentRecno)
	}
	return nil
}

// Scan iterates the current tuples of a relation in key order.
func (ds *DiffStore) Scan(relation string) (*backend.Iterator, error) {
	rel, err := ds.b.Resolver().ByName(relation)
	if err != nil {
		return nil, err
	}
	cur, err := ds.b.Scan(rel)
	if err != nil {
		return nil, err
	}
	return backend.NewIterator(cur, ds.b.Resolver()), nil
}

// Relation is a shortcut to the schema registry of the backend.
func (ds *DiffStore) Relation(name string) (*tuple.Schema, error) {
	return ds.b.Resolver().ByName(name)
}

// RecordDecision remembers whether a transaction was accepted in a round.
func (ds *DiffStore) RecordDecision(d txn.Decision) error {
	if err := ds.lockWriter(); err != nil {
		return err
	}
	defer ds.writer.Unlock()
	return ds.b.RecordDecision(d)
}

// Decisions lists what was decided about tid, earliest round first.
func (ds *DiffStore) Decisions(tid txn.TxnPeerID) ([]txn.Decision, error) {
	return ds.b.Decisions(tid)
}
