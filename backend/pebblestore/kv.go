package pebblestore

import (
	"bytes"

	"github.com/cockroachdb/pebble"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
)

// kv adapts a pebble database to backend.KV.
type kv struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

func (k *kv) Get(key []byte) ([]byte, error) {
	val, closer, err := k.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(val), nil
}

func (k *kv) Apply(ops []backend.Op) error {
	batch := k.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		var err error
		if op.Value == nil {
			err = batch.Delete(op.Key, k.wo)
		} else {
			err = batch.Set(op.Key, op.Value, k.wo)
		}
		if err != nil {
			return err
		}
	}
	return k.db.Apply(batch, k.wo)
}

func (k *kv) DeleteRange(lo, hi []byte) error {
	return k.db.DeleteRange(lo, hi, k.wo)
}

func (k *kv) Range(lo, hi []byte, fn func(key, value []byte) error) error {
	it, err := k.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		if err = fn(it.Key(), it.Value()); err != nil {
			break
		}
	}
	if err == nil {
		err = it.Error()
	}
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	return err
}

// Cursor hands out a bounded pebble iterator; it already behaves the
// way backend.Cursor wants.
func (k *kv) Cursor(lo, hi []byte) (backend.Cursor, error) {
	it, err := k.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (k *kv) Close() error {
	return k.db.Close()
}
