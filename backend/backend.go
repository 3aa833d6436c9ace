// Package backend defines what the diff store needs from physical
// storage and implements it once on top of an ordered key-value engine.
//
// # Key layout
//
// Every key starts with a one-byte space prefix:
//
//   - state space (default 'S'):  relid(4 BE) + key fields
//     -> tuple + count(4 BE) + TxnPeerID*
//   - update log (default 'U'):   relid(4 BE) + key fields + recno(4 BE)
//     -> at most two values-only updates, back to back
//   - decisions 'D':              TxnPeerID + recno(4 BE) -> accepted flag
//   - meta 'M':                   firstRecno, currentRecno, lastSeq (4 BE each)
//
// Encoded keys are prefix-free, so all log records of one key form one
// contiguous range ordered by recno.
package backend

import (
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

// Backend is the physical half of a diff store. Implementations are not
// re-entrant: the store serializes writers and never interleaves a write
// with another write.
type Backend interface {
	// GetStoreEntry returns nil, nil when the key holds nothing.
	GetStoreEntry(key []byte) (*update.StoreEntry, error)
	// SetStoreEntry installs e, or deletes the key when e is nil.
	SetStoreEntry(key []byte, e *update.StoreEntry) error
	// AddToUpdateList flattens u into the log of every key it touches.
	AddToUpdateList(recno int32, u *update.Update) error
	// GetUpdateList concatenates the logged updates of key from
	// startRecno on, in causal order.
	GetUpdateList(key []byte, startRecno int32) ([]*update.Update, error)
	ClearStateBefore(recno int32) error
	// RecnoHasAdvanced is called after the open round moved to recno.
	RecnoHasAdvanced(recno int32) error
	// Reset truncates everything the backend holds.
	Reset() error
	// Scan opens a cursor over the state records of one relation.
	Scan(rel *tuple.Schema) (Cursor, error)

	LoadMeta() (meta Meta, found bool, err error)
	SaveMeta(meta Meta) error
	RecordDecision(d txn.Decision) error
	Decisions(tid txn.TxnPeerID) ([]txn.Decision, error)

	Resolver() tuple.Resolver
	Descriptor() Descriptor
	Close() error
}

// Cursor is a bidirectional ordered cursor over one key range, with the
// semantics of a pebble iterator: moves report whether the cursor landed
// on a record, and an exhausted cursor can be repositioned with First
// or Last.
type Cursor interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Valid() bool
	Value() []byte
	Close() error
}

// Meta holds the store counters that must survive a restart.
type Meta struct {
	FirstRecno   int32
	CurrentRecno int32
	LastSeq      int32
}
