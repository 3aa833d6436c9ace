// Package pebblestore is the durable diff-store backend on Pebble.
package pebblestore

import (
	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

const DefaultCacheSize = 4096

type Options struct {
	// CacheSize bounds the store-entry read cache; 0 picks the default,
	// a negative value disables it.
	CacheSize int
	// Sync makes every write wait for the WAL to reach the disk.
	Sync bool
	// MustExist refuses to create a fresh database.
	MustExist bool
}

// Store is a backend.Store over pebble with a read cache in front of
// the state space.
type Store struct {
	*backend.Store
	db        *pebble.DB
	cache     *lru.Cache[string, *update.StoreEntry]
	collector *PebbleCollector
}

func Open(reg tuple.Resolver, desc backend.Descriptor, log utils.Logger, opts Options) (*Store, error) {
	desc.Kind = backend.KindPebble
	desc.SetDefaults()
	db, err := pebble.Open(desc.Path, &pebble.Options{ErrorIfNotExists: opts.MustExist})
	if err != nil {
		return nil, orchestra_errors.Backend(err, "open "+desc.Path)
	}
	store, err := backend.NewStore(&kv{db: db, wo: &pebble.WriteOptions{Sync: opts.Sync}}, reg, desc, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{Store: store, db: db, collector: NewPebbleCollector(db, desc.ID)}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheSize > 0 {
		s.cache, _ = lru.New[string, *update.StoreEntry](opts.CacheSize)
	}
	return s, nil
}

// Collector exposes pebble internals to prometheus.
func (s *Store) Collector() *PebbleCollector {
	return s.collector
}

// Entries handed out by the cache are shared; store entries are never
// modified in place.
func (s *Store) GetStoreEntry(key []byte) (*update.StoreEntry, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(string(key)); ok {
			return e, nil
		}
	}
	e, err := s.Store.GetStoreEntry(key)
	if err == nil && e != nil && s.cache != nil {
		s.cache.Add(string(key), e)
	}
	return e, err
}

func (s *Store) SetStoreEntry(key []byte, e *update.StoreEntry) error {
	if s.cache != nil {
		s.cache.Remove(string(key))
	}
	if err := s.Store.SetStoreEntry(key, e); err != nil {
		return err
	}
	if e != nil && s.cache != nil {
		s.cache.Add(string(key), e)
	}
	return nil
}

func (s *Store) Reset() error {
	if s.cache != nil {
		s.cache.Purge()
	}
	if err := s.Store.Reset(); err != nil {
		return err
	}
	lo, hi := s.Spaces().StateSpaceRange()
	return orchestra_errors.Backend(s.db.Compact(lo, hi, true), "compact after reset")
}
