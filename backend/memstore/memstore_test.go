package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/backendtest"
)

func TestMemstore(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := Open(backendtest.Registry(), backend.Descriptor{Schema: "test"}, nil)
		require.NoError(t, err)
		return b
	})
}

func TestCursor_SnapshotIgnoresLaterWrites(t *testing.T) {
	kv := NewKV()
	require.NoError(t, kv.Apply([]backend.Op{
		{Key: []byte("a1"), Value: []byte("x")},
		{Key: []byte("a2"), Value: []byte("y")},
		{Key: []byte("b1"), Value: []byte("z")},
	}))
	cur, err := kv.Cursor([]byte("a"), []byte("b"))
	require.NoError(t, err)
	require.NoError(t, kv.Apply([]backend.Op{{Key: []byte("a3"), Value: []byte("w")}}))

	assert.True(t, cur.Last())
	assert.Equal(t, []byte("y"), cur.Value())
	assert.True(t, cur.Prev())
	assert.Equal(t, []byte("x"), cur.Value())
	assert.False(t, cur.Prev())
	assert.False(t, cur.Valid())
	assert.True(t, cur.First())
	assert.True(t, cur.Next())
	assert.False(t, cur.Next())
	require.NoError(t, cur.Close())
}

func TestKV_DeleteRange(t *testing.T) {
	kv := NewKV()
	for _, k := range []string{"a", "b", "bb", "c"} {
		require.NoError(t, kv.Apply([]backend.Op{{Key: []byte(k), Value: []byte(k)}}))
	}
	require.NoError(t, kv.DeleteRange([]byte("b"), []byte("c")))
	var left []string
	require.NoError(t, kv.Range([]byte{}, nil, func(k, _ []byte) error {
		left = append(left, string(k))
		return nil
	}))
	assert.Equal(t, []string{"a", "c"}, left)
}
