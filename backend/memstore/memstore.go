// Package memstore keeps a diff store in a persistent sorted map. It is
// meant for tests and for short-lived scratch stores: nothing survives
// Close.
package memstore

import (
	"bytes"
	"strings"
	"sync"

	"github.com/benbjohnson/immutable"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

type keyComparer struct{}

func (keyComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}

// KV is a backend.KV over an immutable sorted map. Writers swap the
// root under a lock; readers and cursors work on whatever root they
// picked up, so an open cursor never observes later writes.
type KV struct {
	mu   sync.RWMutex
	root *immutable.SortedMap
}

func NewKV() *KV {
	return &KV{root: immutable.NewSortedMap(keyComparer{})}
}

// Open returns an empty in-memory backend.
func Open(reg tuple.Resolver, desc backend.Descriptor, log utils.Logger) (*backend.Store, error) {
	desc.Kind = backend.KindMemory
	return backend.NewStore(NewKV(), reg, desc, log)
}

func (kv *KV) snapshot() *immutable.SortedMap {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return kv.root
}

func (kv *KV) Get(key []byte) ([]byte, error) {
	v, ok := kv.snapshot().Get(string(key))
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v.([]byte)), nil
}

func (kv *KV) Apply(ops []backend.Op) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	root := kv.root
	for _, op := range ops {
		if op.Value == nil {
			root = root.Delete(string(op.Key))
		} else {
			root = root.Set(string(op.Key), bytes.Clone(op.Value))
		}
	}
	kv.root = root
	return nil
}

func (kv *KV) DeleteRange(lo, hi []byte) error {
	var keys []string
	err := kv.Range(lo, hi, func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	root := kv.root
	for _, k := range keys {
		root = root.Delete(k)
	}
	kv.root = root
	return nil
}

func (kv *KV) Range(lo, hi []byte, fn func(key, value []byte) error) error {
	itr := kv.snapshot().Iterator()
	itr.Seek(string(lo))
	for !itr.Done() {
		k, v := itr.Next()
		key := k.(string)
		if hi != nil && key >= string(hi) {
			break
		}
		if err := fn([]byte(key), v.([]byte)); err != nil {
			return err
		}
	}
	return nil
}

func (kv *KV) Cursor(lo, hi []byte) (backend.Cursor, error) {
	c := &cursor{snap: kv.snapshot(), lo: string(lo), unbounded: hi == nil}
	if hi != nil {
		c.hi = string(hi)
	}
	return c, nil
}

func (kv *KV) Close() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.root = immutable.NewSortedMap(keyComparer{})
	return nil
}

type cursor struct {
	snap      *immutable.SortedMap
	lo, hi    string
	unbounded bool

	key   string
	val   []byte
	valid bool
}

func (c *cursor) inRange(key string) bool {
	return key >= c.lo && (c.unbounded || key < c.hi)
}

func (c *cursor) land(k, v interface{}, done bool) bool {
	c.valid = false
	if done || k == nil {
		return false
	}
	if key := k.(string); c.inRange(key) {
		c.key, c.val, c.valid = key, v.([]byte), true
	}
	return c.valid
}

func (c *cursor) First() bool {
	itr := c.snap.Iterator()
	itr.Seek(c.lo)
	if itr.Done() {
		return c.land(nil, nil, true)
	}
	k, v := itr.Next()
	return c.land(k, v, false)
}

func (c *cursor) Last() bool {
	itr := c.snap.Iterator()
	if c.unbounded {
		itr.Last()
	} else {
		itr.Seek(c.hi)
		if itr.Done() {
			itr.Last()
		} else {
			itr.Prev() // the first key at or past hi
		}
	}
	if itr.Done() {
		return c.land(nil, nil, true)
	}
	k, v := itr.Prev()
	return c.land(k, v, false)
}

func (c *cursor) Next() bool {
	if !c.valid {
		return false
	}
	itr := c.snap.Iterator()
	itr.Seek(c.key)
	itr.Next()
	if itr.Done() {
		return c.land(nil, nil, true)
	}
	k, v := itr.Next()
	return c.land(k, v, false)
}

func (c *cursor) Prev() bool {
	if !c.valid {
		return false
	}
	itr := c.snap.Iterator()
	itr.Seek(c.key)
	itr.Prev()
	if itr.Done() {
		return c.land(nil, nil, true)
	}
	k, v := itr.Prev()
	return c.land(k, v, false)
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
	c.snap = nil
	return nil
}
