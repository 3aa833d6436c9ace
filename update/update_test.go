package update

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

var rel = tuple.MustSchema("R", 1, []tuple.Field{
	{Name: "name", Type: tuple.String},
	{Name: "val", Type: tuple.Int},
}, "name")

func row(name string, val int) *tuple.Tuple {
	return tuple.MustNew(rel, name, val)
}

func testRegistry(t *testing.T) *tuple.Registry {
	reg, err := tuple.NewRegistry(rel)
	require.NoError(t, err)
	return reg
}

// replay applies logged updates for the key of probe onto the value it
// had before the round.
func replay(before *tuple.Tuple, probe *tuple.Tuple, list []*Update) *tuple.Tuple {
	cur := before
	for _, u := range list {
		if u.NewValue.SameKey(probe) {
			cur = u.NewValue
		} else if u.OldValue.SameKey(probe) {
			cur = nil
		}
	}
	return cur
}

func flatten(prior []*Update, u *Update) ([]*Update, error) {
	return Flatten(u.Keys()[0], prior, u)
}

func TestUpdate_Kinds(t *testing.T) {
	ins := NewInsertion(row("a", 1))
	del := NewDeletion(row("a", 1))
	mod := NewModification(row("a", 1), row("b", 2))
	assert.True(t, ins.IsInsertion())
	assert.True(t, del.IsDeletion())
	assert.True(t, mod.IsModification())
	assert.Len(t, mod.Keys(), 2)
	assert.Len(t, NewModification(row("a", 1), row("a", 2)).Keys(), 1)
	assert.False(t, ins.IsPrepared())
}

func TestFlatten_Rules(t *testing.T) {
	a1, a2, a3 := row("a", 1), row("a", 2), row("a", 3)

	list, err := flatten(nil, NewModification(a1, a2))
	require.NoError(t, err)
	list, err = flatten(list, NewModification(a2, a3))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].SameValues(NewModification(a1, a3)))

	list, err = flatten(list, NewDeletion(a3))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].SameValues(NewDeletion(a1)))

	list, err = flatten(list, NewInsertion(a2))
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = flatten(list, NewDeletion(a2))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDeletion())

	fresh, err := flatten(nil, NewInsertion(a1))
	require.NoError(t, err)
	fresh, err = flatten(fresh, NewDeletion(a1))
	require.NoError(t, err)
	assert.Empty(t, fresh, "insert then delete nets to nothing")
}

func TestFlatten_ReinsertAfterDelete(t *testing.T) {
	a1 := row("a", 1)
	list, err := flatten(nil, NewDeletion(a1))
	require.NoError(t, err)
	list, err = flatten(list, NewInsertion(a1))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsDeletion())
	assert.True(t, list[1].IsInsertion())
	assert.True(t, a1.Equal(replay(a1, a1, list)))
}

func TestFlatten_KeyMovesAway(t *testing.T) {
	a, d, f := row("k", 1), row("k", 4), row("k", 6)
	key := a.KeyBytes()
	list, err := Flatten(key, nil, NewDeletion(a))
	require.NoError(t, err)
	list, err = Flatten(key, list, NewInsertion(d))
	require.NoError(t, err)
	// d leaves for another key: a deletion as far as k is concerned
	list, err = Flatten(key, list, NewModification(d, row("other", 4)))
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = Flatten(key, list, NewInsertion(f))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, f.Equal(replay(a, a, list)))

	// a value arriving from another key is an insertion for k
	moved, err := Flatten(key, nil, NewModification(row("other", 2), row("k", 2)))
	require.NoError(t, err)
	moved, err = Flatten(key, moved, NewModification(row("k", 2), row("k", 3)))
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.True(t, row("k", 3).Equal(replay(nil, a, moved)))
}

func TestFlatten_ThirdEntryIsAnError(t *testing.T) {
	prior := []*Update{NewDeletion(row("a", 1)), NewInsertion(row("a", 2))}
	_, err := flatten(prior, NewInsertion(row("a", 3)))
	assert.ErrorIs(t, err, orchestra_errors.ErrFlatten)

	_, err = flatten(append(prior, prior[0]), NewDeletion(row("a", 2)))
	assert.ErrorIs(t, err, orchestra_errors.ErrFlatten)
}

func TestFlatten_BoundAndReplay(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		var before *tuple.Tuple
		if rnd.Intn(2) == 0 {
			before = row("k", rnd.Intn(100))
		}
		cur := before
		var list []*Update
		steps := 1 + rnd.Intn(12)
		for i := 0; i < steps; i++ {
			var u *Update
			switch {
			case cur == nil:
				u = NewInsertion(row("k", rnd.Intn(100)))
			case rnd.Intn(3) == 0:
				u = NewDeletion(cur)
			default:
				u = NewModification(cur, row("k", rnd.Intn(100)))
			}
			var err error
			list, err = flatten(list, u)
			require.NoError(t, err)
			require.LessOrEqual(t, len(list), MaxPerRound)
			cur = u.NewValue
		}
		assert.True(t, cur.Equal(replay(before, row("k", 0), list)), "round %d", round)
	}
}

func TestClassify(t *testing.T) {
	tA := txn.TxnPeerID{Seq: 1, Peer: "A"}
	tB := txn.TxnPeerID{Seq: 1, Peer: "B"}
	tC := txn.TxnPeerID{Seq: 2, Peer: "A"}
	tD := txn.TxnPeerID{Seq: 2, Peer: "B"}

	a := &Update{NewValue: row("Nick", 1), Tids: txn.NewTidSet(tA)}
	b := &Update{NewValue: row("Nick", 2), Tids: txn.NewTidSet(tB)}
	assert.Equal(t, ConflictKey, Classify(a, b))

	c := &Update{OldValue: row("Nick", 1), NewValue: row("Nick", 2), Tids: txn.NewTidSet(tC)}
	d := &Update{OldValue: row("Nick", 1), NewValue: row("Mark", 4), Tids: txn.NewTidSet(tD)}
	assert.Equal(t, ConflictUpdate, Classify(c, d))
	assert.Equal(t, ConflictUpdate, Classify(c, &Update{OldValue: row("Nick", 1), Tids: txn.NewTidSet(tD)}))

	root := txn.TxnPeerID{Seq: 9, Peer: "Z"}
	e := &Update{OldValue: row("Nick", 5), NewValue: row("Nick", 6), Tids: txn.NewTidSet(tA),
		InitialTid: &root, InitialValue: row("Nick", 0)}
	f := &Update{OldValue: row("Nick", 7), NewValue: row("Nick", 8), Tids: txn.NewTidSet(tB),
		InitialTid: &root, InitialValue: row("Nick", 0)}
	assert.Equal(t, ConflictInitial, Classify(e, f))
	other := txn.TxnPeerID{Seq: 10, Peer: "Z"}
	f.InitialTid = &other
	assert.Equal(t, ConflictNone, Classify(e, f))
	g := &Update{OldValue: row("Mark", 3), NewValue: row("Nick", 9), Tids: txn.NewTidSet(tB)}
	assert.Equal(t, ConflictNone, Classify(c, g))

	assert.Equal(t, ConflictNone, Classify(a, &Update{NewValue: row("Mark", 1), Tids: txn.NewTidSet(tB)}))
	assert.Equal(t, ConflictNone, Classify(a, &Update{NewValue: row("Nick", 1), Tids: txn.NewTidSet(tB)}))
	assert.Equal(t, ConflictNone, Classify(a, &Update{NewValue: row("Nick", 3), Tids: txn.NewTidSet(tA)}))
	assert.Equal(t, "UPDATE", ConflictUpdate.String())
}

func TestCodec_ValuesOnlyList(t *testing.T) {
	reg := testRegistry(t)
	list := []*Update{NewDeletion(row("a", 1)), NewInsertion(row("a", 2))}
	data := EncodeList(list)
	assert.Equal(t, byte(1), data[0])

	back, err := DecodeList(reg, data)
	require.NoError(t, err)
	require.Len(t, back, 2)
	for i := range list {
		assert.True(t, list[i].SameValues(back[i]))
	}

	_, err = DecodeList(reg, []byte{0, 0})
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)
	_, err = DecodeList(reg, []byte{7})
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)
}

func TestCodec_Full(t *testing.T) {
	reg := testRegistry(t)
	root := txn.TxnPeerID{Seq: 3, Peer: "Z"}
	u := &Update{
		OldValue:     row("a", 1),
		NewValue:     row("b", 2),
		Tids:         txn.NewTidSet(txn.TxnPeerID{Seq: 4, Peer: "A"}),
		Antecedents:  txn.NewTidSet(root, txn.TxnPeerID{Seq: 1, Peer: "B"}),
		InitialTid:   &root,
		InitialValue: row("a", 0),
	}
	back, err := FromBytes(reg, u.Bytes())
	require.NoError(t, err)
	assert.True(t, u.SameValues(back))
	assert.Equal(t, u.Tids, back.Tids)
	assert.Equal(t, u.Antecedents, back.Antecedents)
	assert.Equal(t, root, *back.InitialTid)
	assert.True(t, u.InitialValue.Equal(back.InitialValue))

	dup := u.Duplicate()
	*dup.InitialTid = txn.TxnPeerID{}
	assert.Equal(t, root, *u.InitialTid)

	_, err = FromBytes(reg, u.Bytes()[:len(u.Bytes())-1])
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)
}

func TestStoreEntry_Layout(t *testing.T) {
	reg := testRegistry(t)
	tid := txn.TxnPeerID{Seq: 7, Peer: "p"}
	e := &StoreEntry{Value: row("a", 1), Antecedents: txn.NewTidSet(tid)}
	data := e.Bytes()
	vlen := len(row("a", 1).Bytes())
	assert.Equal(t, []byte{0, 0, 0, 1}, data[vlen:vlen+4])
	assert.Equal(t, tid.Bytes(), data[vlen+4:])

	back, err := DecodeStoreEntry(reg, data)
	require.NoError(t, err)
	assert.True(t, e.Value.Equal(back.Value))
	assert.Equal(t, e.Antecedents, back.Antecedents)

	more := e.WithAdditionalTids(txn.NewTidSet(txn.TxnPeerID{Seq: 8, Peer: "p"}))
	assert.Equal(t, 2, more.Antecedents.Len())
	assert.Equal(t, 1, e.Antecedents.Len())
	assert.Same(t, e.Value, more.Value)
}
