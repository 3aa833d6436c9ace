package backend

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

// Op is one write of a batch; a nil Value deletes the key.
type Op struct {
	Key   []byte
	Value []byte
}

// KV is the ordered key-value engine a Store runs on. Ranges are
// half-open [lo, hi); a nil hi means no upper bound.
type KV interface {
	// Get returns nil, nil for a missing key. The result is owned by
	// the caller.
	Get(key []byte) ([]byte, error)
	// Apply commits the batch atomically.
	Apply(ops []Op) error
	DeleteRange(lo, hi []byte) error
	// Range calls fn for every record in [lo, hi) in key order. Key and
	// value are only valid during the call.
	Range(lo, hi []byte, fn func(key, value []byte) error) error
	Cursor(lo, hi []byte) (Cursor, error)
	Close() error
}

// Store implements Backend on top of a KV engine.
type Store struct {
	kv     KV
	reg    tuple.Resolver
	desc   Descriptor
	spaces Spaces
	log    utils.Logger
}

func NewStore(kv KV, reg tuple.Resolver, desc Descriptor, log utils.Logger) (*Store, error) {
	desc.SetDefaults()
	spaces, err := desc.Spaces()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NopLogger()
	}
	return &Store{kv: kv, reg: reg, desc: desc, spaces: spaces, log: log.With("store", desc.ID)}, nil
}

func (s *Store) KV() KV {
	return s.kv
}

func (s *Store) Spaces() Spaces {
	return s.spaces
}

func (s *Store) Resolver() tuple.Resolver {
	return s.reg
}

func (s *Store) Descriptor() Descriptor {
	return s.desc
}

func (s *Store) GetStoreEntry(key []byte) (*update.StoreEntry, error) {
	raw, err := s.kv.Get(s.spaces.StateKey(key))
	if err != nil {
		return nil, orchestra_errors.Backend(err, "get store entry")
	}
	if raw == nil {
		return nil, nil
	}
	return update.DecodeStoreEntry(s.reg, raw)
}

func (s *Store) SetStoreEntry(key []byte, e *update.StoreEntry) error {
	op := Op{Key: s.spaces.StateKey(key)}
	if e != nil {
		op.Value = e.Bytes()
	}
	return orchestra_errors.Backend(s.kv.Apply([]Op{op}), "set store entry")
}

func (s *Store) AddToUpdateList(recno int32, u *update.Update) error {
	ops := make([]Op, 0, 2)
	for _, key := range u.Keys() {
		lk := s.spaces.LogKey(key, recno)
		raw, err := s.kv.Get(lk)
		if err != nil {
			return orchestra_errors.Backend(err, "read update log")
		}
		prior, err := update.DecodeList(s.reg, raw)
		if err != nil {
			return err
		}
		next, err := update.Flatten(key, prior, u)
		if err != nil {
			return errors.WithMessagef(err, "key %x recno %d", key, recno)
		}
		s.log.Debug("update log composed", "key", fmt.Sprintf("%x", key), "recno", recno,
			"before", len(prior), "after", len(next))
		ops = append(ops, Op{Key: lk, Value: update.EncodeList(next)})
	}
	return orchestra_errors.Backend(s.kv.Apply(ops), "write update log")
}

func (s *Store) GetUpdateList(key []byte, startRecno int32) (list []*update.Update, err error) {
	lo, hi := s.spaces.LogRange(key, startRecno)
	err = s.kv.Range(lo, hi, func(k, v []byte) error {
		part, err := update.DecodeList(s.reg, v)
		if err != nil {
			return err
		}
		list = append(list, part...)
		return nil
	})
	if err != nil && !errors.Is(err, orchestra_errors.ErrStateStore) {
		err = orchestra_errors.Backend(err, "scan update log")
	}
	return
}

// ClearStateBefore drops every log record older than recno. State
// records are kept.
func (s *Store) ClearStateBefore(recno int32) error {
	var ops []Op
	lo, hi := s.spaces.LogSpaceRange()
	err := s.kv.Range(lo, hi, func(k, _ []byte) error {
		_, rn, err := protocol.SplitTrailingInt(k)
		if err != nil {
			return errors.Wrapf(orchestra_errors.ErrBadEncoding, "log key %x", k)
		}
		if rn < recno {
			ops = append(ops, Op{Key: bytes.Clone(k)})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, orchestra_errors.ErrStateStore) {
			return err
		}
		return orchestra_errors.Backend(err, "scan update log")
	}
	if len(ops) == 0 {
		return nil
	}
	s.log.Info("update log truncated", "before", recno, "records", len(ops))
	return orchestra_errors.Backend(s.kv.Apply(ops), "truncate update log")
}

func (s *Store) RecnoHasAdvanced(recno int32) error {
	return nil
}

func (s *Store) Reset() error {
	ranges := [][2][]byte{}
	lo, hi := s.spaces.StateSpaceRange()
	ranges = append(ranges, [2][]byte{lo, hi})
	lo, hi = s.spaces.LogSpaceRange()
	ranges = append(ranges, [2][]byte{lo, hi})
	ranges = append(ranges, [2][]byte{{spaceDecision}, {spaceDecision + 1}})
	ranges = append(ranges, [2][]byte{metaKey, {spaceMeta + 1}})
	for _, r := range ranges {
		if err := s.kv.DeleteRange(r[0], r[1]); err != nil {
			return orchestra_errors.Backend(err, "reset")
		}
	}
	return nil
}

func (s *Store) Scan(rel *tuple.Schema) (Cursor, error) {
	lo, hi := s.spaces.StateRange(rel.ID)
	cur, err := s.kv.Cursor(lo, hi)
	return cur, orchestra_errors.Backend(err, "open cursor")
}

func (s *Store) LoadMeta() (Meta, bool, error) {
	raw, err := s.kv.Get(metaKey)
	if err != nil {
		return Meta{}, false, orchestra_errors.Backend(err, "load meta")
	}
	if raw == nil {
		return Meta{}, false, nil
	}
	m, err := MetaFromBytes(raw)
	if err != nil {
		return Meta{}, false, errors.Wrap(orchestra_errors.ErrBadEncoding, err.Error())
	}
	return m, true, nil
}

func (s *Store) SaveMeta(m Meta) error {
	return orchestra_errors.Backend(s.kv.Apply([]Op{{Key: metaKey, Value: m.Bytes()}}), "save meta")
}

func (s *Store) RecordDecision(d txn.Decision) error {
	flag := []byte{0}
	if d.Accepted {
		flag[0] = 1
	}
	return orchestra_errors.Backend(s.kv.Apply([]Op{{Key: decisionKey(d), Value: flag}}), "record decision")
}

func (s *Store) Decisions(tid txn.TxnPeerID) (list []txn.Decision, err error) {
	lo, hi := decisionRange(tid)
	err = s.kv.Range(lo, hi, func(k, v []byte) error {
		_, rn, err := protocol.SplitTrailingInt(k)
		if err != nil || len(v) != 1 {
			return errors.Wrapf(orchestra_errors.ErrBadEncoding, "decision %x", k)
		}
		list = append(list, txn.Decision{Tid: tid, Recno: rn, Accepted: v[0] == 1})
		return nil
	})
	if err != nil {
		if !errors.Is(err, orchestra_errors.ErrStateStore) {
			err = orchestra_errors.Backend(err, "scan decisions")
		}
		return nil, err
	}
	txn.SortDecisions(list)
	return list, nil
}

func (s *Store) Close() error {
	return orchestra_errors.Backend(s.kv.Close(), "close")
}
