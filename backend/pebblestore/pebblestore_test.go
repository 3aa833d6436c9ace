package pebblestore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/backendtest"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

func openTemp(t *testing.T, dir string, opts Options) *Store {
	s, err := Open(backendtest.Registry(), backend.Descriptor{Schema: "test", Path: dir}, nil, opts)
	require.NoError(t, err)
	return s
}

func TestPebblestore(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		return openTemp(t, t.TempDir(), Options{})
	})
}

func TestPebblestore_Uncached(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		return openTemp(t, t.TempDir(), Options{CacheSize: -1})
	})
}

func TestPebblestore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s := openTemp(t, dir, Options{Sync: true})
	a := backendtest.Row("a", 1)
	entry := &update.StoreEntry{Value: a, Antecedents: txn.NewTidSet(txn.TxnPeerID{Seq: 1, Peer: "p"})}
	require.NoError(t, s.SetStoreEntry(a.KeyBytes(), entry))
	require.NoError(t, s.AddToUpdateList(3, update.NewInsertion(a)))
	require.NoError(t, s.SaveMeta(backend.Meta{CurrentRecno: 3, LastSeq: 1}))
	require.NoError(t, s.Close())

	s = openTemp(t, dir, Options{MustExist: true})
	defer s.Close()
	e, err := s.GetStoreEntry(a.KeyBytes())
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Value.Equal(a))
	assert.Equal(t, entry.Antecedents, e.Antecedents)
	list, err := s.GetUpdateList(a.KeyBytes(), 3)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	meta, found, err := s.LoadMeta()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(3), meta.CurrentRecno)
}

func TestPebblestore_MustExist(t *testing.T) {
	_, err := Open(backendtest.Registry(), backend.Descriptor{Path: t.TempDir() + "/missing"}, nil, Options{MustExist: true})
	assert.Error(t, err)
}

func TestPebbleCollector(t *testing.T) {
	s := openTemp(t, t.TempDir(), Options{})
	defer s.Close()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(s.Collector()))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	for _, f := range families {
		assert.Contains(t, f.GetName(), "orchestra_pebble_")
	}
}
