// Package backendtest holds the behaviour every Backend must share; each
// engine's tests run it against a fresh store.
package backendtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

var (
	Rel = tuple.MustSchema("R", 1, []tuple.Field{
		{Name: "name", Type: tuple.String},
		{Name: "val", Type: tuple.Int},
	}, "name")
	Other = tuple.MustSchema("S", 2, []tuple.Field{
		{Name: "id", Type: tuple.Int},
	}, "id")
)

func Registry() *tuple.Registry {
	reg, err := tuple.NewRegistry(Rel, Other)
	if err != nil {
		panic(err)
	}
	return reg
}

func Row(name string, val int) *tuple.Tuple {
	return tuple.MustNew(Rel, name, val)
}

// Opener returns an empty backend over Registry(); the suite closes it.
type Opener func(t *testing.T) backend.Backend

func Run(t *testing.T, open Opener) {
	cases := []struct {
		name string
		fn   func(t *testing.T, b backend.Backend)
	}{
		{"StoreEntry", testStoreEntry},
		{"UpdateListFlattens", testUpdateListFlattens},
		{"UpdateListSpansRecnos", testUpdateListSpansRecnos},
		{"KeyChangeLogsBothKeys", testKeyChangeLogsBothKeys},
		{"ThirdEntryFails", testThirdEntryFails},
		{"PrefixKeysStayApart", testPrefixKeysStayApart},
		{"ClearStateBefore", testClearStateBefore},
		{"MetaAndReset", testMetaAndReset},
		{"Decisions", testDecisions},
		{"ScanRelation", testScanRelation},
		{"ScanEmpty", testScanEmpty},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := open(t)
			defer func() { assert.NoError(t, b.Close()) }()
			c.fn(t, b)
		})
	}
}

func tid(peer string, seq int32) txn.TxnPeerID {
	return txn.TxnPeerID{Seq: seq, Peer: txn.PeerID(peer)}
}

func testStoreEntry(t *testing.T, b backend.Backend) {
	key := Row("a", 1).KeyBytes()
	e, err := b.GetStoreEntry(key)
	require.NoError(t, err)
	assert.Nil(t, e)

	in := &update.StoreEntry{Value: Row("a", 1), Antecedents: txn.NewTidSet(tid("p", 2), tid("p", 1))}
	require.NoError(t, b.SetStoreEntry(key, in))
	e, err = b.GetStoreEntry(key)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Value.Equal(in.Value))
	assert.Equal(t, in.Antecedents, e.Antecedents)

	require.NoError(t, b.SetStoreEntry(key, nil))
	e, err = b.GetStoreEntry(key)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func testUpdateListFlattens(t *testing.T, b backend.Backend) {
	a1, a2, a3 := Row("a", 1), Row("a", 2), Row("a", 3)
	require.NoError(t, b.AddToUpdateList(0, update.NewModification(a1, a2)))
	require.NoError(t, b.AddToUpdateList(0, update.NewModification(a2, a3)))

	list, err := b.GetUpdateList(a1.KeyBytes(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].OldValue.Equal(a1))
	assert.True(t, list[0].NewValue.Equal(a3))

	require.NoError(t, b.AddToUpdateList(0, update.NewDeletion(a3)))
	require.NoError(t, b.AddToUpdateList(0, update.NewInsertion(a2)))
	list, err = b.GetUpdateList(a1.KeyBytes(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsDeletion())
	assert.True(t, list[0].OldValue.Equal(a1))
	assert.True(t, list[1].IsInsertion())
	assert.True(t, list[1].NewValue.Equal(a2))
}

func testUpdateListSpansRecnos(t *testing.T, b backend.Backend) {
	a1, a2, a3 := Row("a", 1), Row("a", 2), Row("a", 3)
	require.NoError(t, b.AddToUpdateList(0, update.NewInsertion(a1)))
	require.NoError(t, b.AddToUpdateList(1, update.NewModification(a1, a2)))
	require.NoError(t, b.AddToUpdateList(3, update.NewModification(a2, a3)))

	for start, want := range map[int32]int{0: 3, 1: 2, 2: 1, 3: 1, 4: 0} {
		list, err := b.GetUpdateList(a1.KeyBytes(), start)
		require.NoError(t, err)
		assert.Len(t, list, want, "from recno %d", start)
	}
	list, err := b.GetUpdateList(a1.KeyBytes(), 1)
	require.NoError(t, err)
	assert.True(t, list[0].NewValue.Equal(a2))
	assert.True(t, list[1].NewValue.Equal(a3))
}

func testKeyChangeLogsBothKeys(t *testing.T, b backend.Backend) {
	a, bb := Row("a", 1), Row("b", 1)
	require.NoError(t, b.AddToUpdateList(5, update.NewModification(a, bb)))
	for _, k := range [][]byte{a.KeyBytes(), bb.KeyBytes()} {
		list, err := b.GetUpdateList(k, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].OldValue.Equal(a))
		assert.True(t, list[0].NewValue.Equal(bb))
	}
}

func testThirdEntryFails(t *testing.T, b backend.Backend) {
	a1, a2 := Row("a", 1), Row("a", 2)
	require.NoError(t, b.AddToUpdateList(0, update.NewDeletion(a1)))
	require.NoError(t, b.AddToUpdateList(0, update.NewInsertion(a2)))
	// an insertion over a live insertion is already a protocol violation
	err := b.AddToUpdateList(0, update.NewInsertion(Row("a", 3)))
	assert.ErrorIs(t, err, orchestra_errors.ErrFlatten)
	assert.ErrorIs(t, err, orchestra_errors.ErrStateStore)
}

func testPrefixKeysStayApart(t *testing.T, b backend.Backend) {
	names := []string{"", "a", "a\x00", "ab", "b"}
	for i, n := range names {
		require.NoError(t, b.AddToUpdateList(int32(i), update.NewInsertion(Row(n, i))))
	}
	for i, n := range names {
		list, err := b.GetUpdateList(Row(n, 0).KeyBytes(), 0)
		require.NoError(t, err)
		require.Len(t, list, 1, "%q", n)
		assert.Equal(t, int32(i), list[0].NewValue.Get(1))
	}
}

func testClearStateBefore(t *testing.T, b backend.Backend) {
	a := Row("a", 1)
	key := a.KeyBytes()
	require.NoError(t, b.SetStoreEntry(key, &update.StoreEntry{Value: a}))
	for rn := int32(0); rn < 4; rn++ {
		require.NoError(t, b.AddToUpdateList(rn, update.NewModification(a, a)))
	}
	require.NoError(t, b.ClearStateBefore(2))

	list, err := b.GetUpdateList(key, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	e, err := b.GetStoreEntry(key)
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func testMetaAndReset(t *testing.T, b backend.Backend) {
	_, found, err := b.LoadMeta()
	require.NoError(t, err)
	assert.False(t, found)

	meta := backend.Meta{FirstRecno: 2, CurrentRecno: 7, LastSeq: 11}
	require.NoError(t, b.SaveMeta(meta))
	got, found, err := b.LoadMeta()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, meta, got)

	a := Row("a", 1)
	require.NoError(t, b.SetStoreEntry(a.KeyBytes(), &update.StoreEntry{Value: a}))
	require.NoError(t, b.AddToUpdateList(7, update.NewInsertion(a)))
	require.NoError(t, b.RecordDecision(txn.Decision{Tid: tid("p", 1), Recno: 7, Accepted: true}))

	require.NoError(t, b.Reset())
	_, found, err = b.LoadMeta()
	require.NoError(t, err)
	assert.False(t, found)
	e, err := b.GetStoreEntry(a.KeyBytes())
	require.NoError(t, err)
	assert.Nil(t, e)
	list, err := b.GetUpdateList(a.KeyBytes(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	ds, err := b.Decisions(tid("p", 1))
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func testDecisions(t *testing.T, b backend.Backend) {
	x, y := tid("p", 1), tid("p", 10)
	require.NoError(t, b.RecordDecision(txn.Decision{Tid: x, Recno: 4, Accepted: false}))
	require.NoError(t, b.RecordDecision(txn.Decision{Tid: x, Recno: 2, Accepted: true}))
	require.NoError(t, b.RecordDecision(txn.Decision{Tid: y, Recno: 3, Accepted: true}))

	ds, err := b.Decisions(x)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, int32(2), ds[0].Recno)
	assert.True(t, ds[0].Accepted)
	assert.Equal(t, int32(4), ds[1].Recno)
	assert.False(t, ds[1].Accepted)

	ds, err = b.Decisions(y)
	require.NoError(t, err)
	assert.Len(t, ds, 1)
}

func testScanRelation(t *testing.T, b backend.Backend) {
	var rows []*tuple.Tuple
	for i := 0; i < 5; i++ {
		rows = append(rows, Row(fmt.Sprintf("k%d", i), i))
	}
	// store out of order, plus a record of another relation
	for _, i := range []int{3, 0, 4, 1, 2} {
		require.NoError(t, b.SetStoreEntry(rows[i].KeyBytes(), &update.StoreEntry{Value: rows[i]}))
	}
	o := tuple.MustNew(Other, 1)
	require.NoError(t, b.SetStoreEntry(o.KeyBytes(), &update.StoreEntry{Value: o}))

	cur, err := b.Scan(Rel)
	require.NoError(t, err)
	it := backend.NewIterator(cur, b.Resolver())
	assert.Equal(t, backend.StateFresh, it.State())

	for i := 0; i < 3; i++ {
		got, err := it.Next()
		require.NoError(t, err)
		assert.True(t, rows[i].Equal(got), "%d: %s", i, got)
	}
	for i := 2; i >= 0; i-- {
		got, err := it.Prev()
		require.NoError(t, err)
		assert.True(t, rows[i].Equal(got), "%d: %s", i, got)
	}
	assert.Equal(t, backend.StateAtStart, it.State())
	_, err = it.Prev()
	assert.ErrorIs(t, err, orchestra_errors.ErrNoSuchElement)

	var fwd []*tuple.Tuple
	for {
		ok, err := it.HasNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		got, err := it.Next()
		require.NoError(t, err)
		fwd = append(fwd, got)
	}
	require.Len(t, fwd, 5)
	assert.Equal(t, backend.StateAtEnd, it.State())
	_, err = it.Next()
	assert.ErrorIs(t, err, orchestra_errors.ErrNoSuchElement)

	for i := 4; i >= 0; i-- {
		got, err := it.Prev()
		require.NoError(t, err)
		assert.True(t, fwd[i].Equal(got))
	}

	require.NoError(t, it.Close())
	_, err = it.HasNext()
	assert.ErrorIs(t, err, orchestra_errors.ErrIteratorClosed)
	_, err = it.Prev()
	assert.ErrorIs(t, err, orchestra_errors.ErrIteratorClosed)
	assert.ErrorIs(t, it.Close(), orchestra_errors.ErrIteratorClosed)
}

func testScanEmpty(t *testing.T, b backend.Backend) {
	o := tuple.MustNew(Other, 1)
	require.NoError(t, b.SetStoreEntry(o.KeyBytes(), &update.StoreEntry{Value: o}))

	cur, err := b.Scan(Rel)
	require.NoError(t, err)
	it := backend.NewIterator(cur, b.Resolver())
	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = it.HasPrev()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = it.Next()
	assert.ErrorIs(t, err, orchestra_errors.ErrNoSuchElement)
	require.NoError(t, it.Close())
}
