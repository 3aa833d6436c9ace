package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
)

func TestTxnPeerID_Bytes(t *testing.T) {
	id := TxnPeerID{Seq: 0x0102, Peer: "pA"}
	assert.Equal(t, []byte{0, 0, 1, 2, 0, 0, 0, 2, 'p', 'A'}, id.Bytes())

	back, rest, err := TakeTxnPeerID(append(id.Bytes(), 'x'))
	require.NoError(t, err)
	assert.Equal(t, id, back)
	assert.Equal(t, []byte{'x'}, rest)

	_, _, err = TakeTxnPeerID([]byte{0, 0, 1, 2, 0, 0, 0, 9, 'p'})
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)
}

func TestTxnPeerID_Order(t *testing.T) {
	a1 := TxnPeerID{Seq: 1, Peer: "a"}
	a2 := TxnPeerID{Seq: 2, Peer: "a"}
	b0 := TxnPeerID{Seq: 0, Peer: "b"}
	assert.True(t, a1.Less(a2))
	assert.True(t, a2.Less(b0))
	assert.Equal(t, 0, a1.Compare(a1))
	assert.Equal(t, "a:2", a2.String())
}

func TestPidAndRecno(t *testing.T) {
	pr := PidAndRecno{Peer: "p", Recno: 5}
	assert.Equal(t, []byte{0, 0, 0, 1, 'p', 0, 0, 0, 5}, pr.Bytes())
	back, err := PidAndRecnoFromBytes(pr.Bytes())
	require.NoError(t, err)
	assert.Equal(t, pr, back)
	assert.Equal(t, -1, pr.Compare(PidAndRecno{Peer: "p", Recno: 6}))
	assert.Equal(t, 1, pr.Compare(PidAndRecno{Peer: "a", Recno: 9}))

	_, err = PidAndRecnoFromBytes(pr.Bytes()[:7])
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)
}

func TestTidSet(t *testing.T) {
	a := TxnPeerID{Seq: 1, Peer: "a"}
	b := TxnPeerID{Seq: 1, Peer: "b"}
	c := TxnPeerID{Seq: 3, Peer: "a"}

	s := NewTidSet(c, a, c)
	assert.Equal(t, TidSet{a, c}, s)
	s2 := s.Add(b)
	assert.Equal(t, TidSet{a, c}, s, "Add must not touch the receiver")
	assert.Equal(t, TidSet{a, c, b}, s2)
	assert.True(t, s2.Contains(b))
	assert.False(t, s.Contains(b))

	u := NewTidSet(b).Union(s)
	assert.Equal(t, s2, u)
	assert.True(t, u.Intersects(NewTidSet(b)))
	assert.False(t, s.Intersects(NewTidSet(b)))

	back, rest, err := TakeTidSet(u.AppendBytes(nil))
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, u, back)
	assert.Equal(t, "{a:1, a:3, b:1}", u.String())

	empty, _, err := TakeTidSet([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestDecisionOrder(t *testing.T) {
	tid := TxnPeerID{Seq: 1, Peer: "a"}
	ds := []Decision{
		{Tid: tid, Recno: 2, Accepted: false},
		{Tid: tid, Recno: 2, Accepted: true},
		{Tid: tid, Recno: 1, Accepted: false},
	}
	SortDecisions(ds)
	assert.Equal(t, []Decision{
		{Tid: tid, Recno: 1, Accepted: false},
		{Tid: tid, Recno: 2, Accepted: true},
		{Tid: tid, Recno: 2, Accepted: false},
	}, ds)
}

func TestNewPeerID(t *testing.T) {
	p, q := NewPeerID(), NewPeerID()
	assert.NotEqual(t, p, q)
	back, rest, err := TakePeerID(p.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, p, back)
}
