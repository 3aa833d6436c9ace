package badgerstore

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
)

type kv struct {
	db *badger.DB
}

func (k *kv) Get(key []byte) (val []byte, err error) {
	err = k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return
}

// Apply commits ops in one transaction unless they outgrow it; then
// the batch is split, the way badger suggests for bulk writes.
func (k *kv) Apply(ops []backend.Op) error {
	txn := k.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	for _, op := range ops {
		err := write(txn, op)
		if err == badger.ErrTxnTooBig {
			if err = txn.Commit(); err != nil {
				return err
			}
			txn = k.db.NewTransaction(true)
			err = write(txn, op)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

func write(txn *badger.Txn, op backend.Op) error {
	if op.Value == nil {
		return txn.Delete(op.Key)
	}
	return txn.Set(op.Key, op.Value)
}

func (k *kv) DeleteRange(lo, hi []byte) error {
	var keys [][]byte
	err := k.Range(lo, hi, func(key, _ []byte) error {
		keys = append(keys, bytes.Clone(key))
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}
	wb := k.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (k *kv) Range(lo, hi []byte, fn func(key, value []byte) error) error {
	return k.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(lo); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if hi != nil && bytes.Compare(key, hi) >= 0 {
				break
			}
			err := item.Value(func(val []byte) error {
				return fn(key, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *kv) Cursor(lo, hi []byte) (backend.Cursor, error) {
	txn := k.db.NewTransaction(false)
	ropts := badger.DefaultIteratorOptions
	ropts.PrefetchValues = false
	ropts.Reverse = true
	fopts := badger.DefaultIteratorOptions
	fopts.PrefetchValues = false
	return &cursor{
		txn: txn,
		fwd: txn.NewIterator(fopts),
		rev: txn.NewIterator(ropts),
		lo:  lo,
		hi:  hi,
	}, nil
}

func (k *kv) Close() error {
	return k.db.Close()
}

// cursor steps one badger iterator per direction over a read-only
// transaction, re-seeking the other one whenever the direction flips.
type cursor struct {
	txn      *badger.Txn
	fwd, rev *badger.Iterator
	lo, hi   []byte

	key, val []byte
	valid    bool
	err      error
}

func (c *cursor) land(it *badger.Iterator) bool {
	c.valid = false
	if !it.Valid() {
		return false
	}
	item := it.Item()
	key := item.KeyCopy(nil)
	if bytes.Compare(key, c.lo) < 0 || (c.hi != nil && bytes.Compare(key, c.hi) >= 0) {
		return false
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		c.err = err
		return false
	}
	c.key, c.val, c.valid = key, val, true
	return true
}

func (c *cursor) First() bool {
	c.fwd.Seek(c.lo)
	return c.land(c.fwd)
}

func (c *cursor) Last() bool {
	if c.hi == nil {
		c.rev.Rewind()
	} else {
		// reverse Seek lands on the largest key not above hi
		c.rev.Seek(c.hi)
		if c.rev.Valid() && bytes.Equal(c.rev.Item().Key(), c.hi) {
			c.rev.Next()
		}
	}
	return c.land(c.rev)
}

func (c *cursor) Next() bool {
	if !c.valid {
		return false
	}
	c.fwd.Seek(c.key)
	if c.fwd.Valid() && bytes.Equal(c.fwd.Item().Key(), c.key) {
		c.fwd.Next()
	}
	return c.land(c.fwd)
}

func (c *cursor) Prev() bool {
	if !c.valid {
		return false
	}
	c.rev.Seek(c.key)
	if c.rev.Valid() && bytes.Equal(c.rev.Item().Key(), c.key) {
		c.rev.Next()
	}
	return c.land(c.rev)
}

func (c *cursor) Valid() bool {
	return c.valid
}

func (c *cursor) Value() []byte {
	if !c.valid {
		return nil
	}
	return c.val
}

func (c *cursor) Close() error {
	c.valid = false
	c.fwd.Close()
	c.rev.Close()
	c.txn.Discard()
	return c.err
}
