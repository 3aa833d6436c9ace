// Package badgerstore is the diff-store backend on BadgerDB, for hosts
// that already run badger and would rather not add a second engine.
package badgerstore

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

type Options struct {
	// InMemory keeps everything in RAM; Descriptor.Path is ignored.
	InMemory   bool
	SyncWrites bool
	// GCDiscardRatio is the garbage share a value-log file needs before
	// a round change rewrites it. Zero disables the pass.
	GCDiscardRatio float64
}

// badgerLogger routes badger's own messages into the store logger.
type badgerLogger struct {
	log utils.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug("badger: " + fmt.Sprintf(format, args...))
}

type Store struct {
	*backend.Store
	db   *badger.DB
	opts Options
	log  utils.Logger
}

func Open(reg tuple.Resolver, desc backend.Descriptor, log utils.Logger, opts Options) (*Store, error) {
	desc.Kind = backend.KindBadger
	desc.SetDefaults()
	if log == nil {
		log = utils.NopLogger()
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if desc.Path == "" {
			return nil, errors.New("badger store needs a path")
		}
		if err := os.MkdirAll(desc.Path, 0750); err != nil {
			return nil, orchestra_errors.Backend(err, "create "+desc.Path)
		}
		bopts = badger.DefaultOptions(desc.Path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, orchestra_errors.Backend(err, "open badger")
	}
	store, err := backend.NewStore(&kv{db: db}, reg, desc, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: store, db: db, opts: opts, log: log}, nil
}

// RecnoHasAdvanced gives the value log a chance to shed what the
// previous rounds overwrote.
func (s *Store) RecnoHasAdvanced(recno int32) error {
	if s.opts.InMemory || s.opts.GCDiscardRatio <= 0 {
		return nil
	}
	err := s.db.RunValueLogGC(s.opts.GCDiscardRatio)
	switch {
	case err == nil:
		s.log.Debug("badger value log rewritten", "recno", recno)
	case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
	default:
		s.log.Warn("badger value log GC failed", "recno", recno, "err", err)
	}
	return nil
}
