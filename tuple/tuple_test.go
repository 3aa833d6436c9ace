package tuple

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
)

var people = MustSchema("people", 3, []Field{
	{Name: "name", Type: String},
	{Name: "val", Type: Int},
	{Name: "score", Type: Double, Nullable: true},
	{Name: "born", Type: Date, Nullable: true},
	{Name: "active", Type: Bool, Nullable: true},
	{Name: "visits", Type: Long, Nullable: true},
}, "name")

func testRegistry(t *testing.T) *Registry {
	reg, err := NewRegistry(people)
	require.NoError(t, err)
	return reg
}

func TestTuple_RoundTrip(t *testing.T) {
	reg := testRegistry(t)
	born := time.Date(1999, 12, 31, 23, 59, 59, 123456789, time.UTC)
	tup := MustNew(people, "Nick", 1, 2.5, born, true, int64(-40))

	dec, err := DecodeAll(reg, tup.Bytes())
	require.NoError(t, err)
	assert.True(t, tup.Equal(dec))
	assert.Equal(t, born.Truncate(time.Millisecond), dec.Get(3))
	assert.Equal(t, `people("Nick", 1, 2.5, 1999-12-31T23:59:59.123Z, true, -40)`, dec.String())

	nulls := MustNew(people, "with\x00zero", -7, nil, nil, nil, nil)
	dec, err = DecodeAll(reg, nulls.Bytes())
	require.NoError(t, err)
	assert.True(t, nulls.Equal(dec))
	assert.Nil(t, dec.Get(2))
}

func TestTuple_DecodeConcatenated(t *testing.T) {
	reg := testRegistry(t)
	a := MustNew(people, "a", 1, nil, nil, nil, nil)
	b := MustNew(people, "b", 2, nil, nil, nil, nil)
	buf := b.AppendBytes(a.Bytes())

	da, rest, err := Decode(reg, buf)
	require.NoError(t, err)
	db, rest, err := Decode(reg, rest)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, a.Equal(da))
	assert.True(t, b.Equal(db))
}

func TestTuple_DecodeErrors(t *testing.T) {
	reg := testRegistry(t)
	enc := MustNew(people, "a", 1, nil, nil, nil, nil).Bytes()

	_, err := DecodeAll(reg, enc[:len(enc)-2])
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)

	other := MustSchema("other", 9, []Field{{Name: "k", Type: Int}}, "k")
	_, err = DecodeAll(reg, MustNew(other, 1).Bytes())
	assert.ErrorIs(t, err, orchestra_errors.ErrUnknownRelation)

	_, err = DecodeAll(reg, append(enc, 0))
	assert.ErrorIs(t, err, orchestra_errors.ErrBadEncoding)

	v, err := Int.decodeValue([]byte{0, 0, 0, 7})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
	_, err = Int.decodeValue([]byte{0, 0, 0, 7, 1})
	assert.Error(t, err)
	_, err = Int.decodeValue([]byte{0, 7})
	assert.Error(t, err)
}

func TestTuple_EqualityAndKeys(t *testing.T) {
	a := MustNew(people, "Nick", 1, nil, nil, nil, nil)
	b := MustNew(people, "Nick", 2, nil, nil, nil, nil)
	c := MustNew(people, "Mark", 1, nil, nil, nil, nil)

	assert.False(t, a.Equal(b))
	assert.True(t, a.SameKey(b))
	assert.False(t, a.SameKey(c))
	assert.Equal(t, a.KeyBytes(), b.KeyBytes())
	assert.True(t, bytes.HasPrefix(a.KeyBytes(), []byte{0, 0, 0, 3}))

	var none *Tuple
	assert.True(t, none.Equal(nil))
	assert.False(t, none.SameKey(a))
	assert.False(t, a.Equal(nil))
}

func TestTuple_DuplicateIsIndependent(t *testing.T) {
	a := MustNew(people, "Nick", 1, 3.0, nil, nil, nil)
	d := a.Duplicate()
	assert.True(t, a.Equal(d))
	d.vals[1] = int32(5)
	assert.Equal(t, int32(1), a.Get(1))
}

func TestKeyBytes_PrefixFreeAndOrdered(t *testing.T) {
	strs := MustSchema("s", 1, []Field{{Name: "k", Type: String}}, "k")
	keys := [][]byte{}
	for _, s := range []string{"", "\x00", "\x00\x00", "a", "a\x00", "ab", "b"} {
		keys = append(keys, MustNew(strs, s).KeyBytes())
	}
	for i := range keys {
		for j := range keys {
			if i == j {
				continue
			}
			assert.False(t, bytes.HasPrefix(keys[j], keys[i]), "%d is a prefix of %d", i, j)
		}
		if i > 0 {
			assert.Equal(t, -1, bytes.Compare(keys[i-1], keys[i]))
		}
	}

	nums := MustSchema("n", 2, []Field{{Name: "i", Type: Int}, {Name: "d", Type: Double}}, "i", "d")
	prev := MustNew(nums, math.MinInt32, math.Inf(-1)).KeyBytes()
	for _, pair := range [][2]any{{-1, -2.5}, {-1, 0.0}, {0, -1.0}, {0, 3.25}, {7, 1e9}} {
		cur := MustNew(nums, pair[0], pair[1]).KeyBytes()
		assert.Equal(t, -1, bytes.Compare(prev, cur), "%v", pair)
		prev = cur
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(people, "Nick")
	assert.Error(t, err)
	_, err = New(people, nil, 1, nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = New(people, "Nick", "one", nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewSchema("bad", 1, []Field{{Name: "k", Type: Int, Nullable: true}}, "k")
	assert.Error(t, err)
	_, err = NewSchema("bad", 1, []Field{{Name: "k", Type: Int}})
	assert.Error(t, err)
}

func TestSchema_Parse(t *testing.T) {
	tup, err := people.Parse([]string{`"Nick"`, "4", "null", "2024-01-02T03:04:05Z", "false", "12"})
	require.NoError(t, err)
	assert.Equal(t, "Nick", tup.Get(0))
	assert.Equal(t, int32(4), tup.Get(1))
	assert.Nil(t, tup.Get(2))
	assert.Equal(t, false, tup.Get(4))
	assert.Equal(t, int64(12), tup.Get(5))

	_, err = people.Parse([]string{"Nick", "x", "null", "null", "null", "null"})
	assert.Error(t, err)
}

func TestSchema_ParseKey(t *testing.T) {
	probe, err := people.ParseKey([]string{"Nick"})
	require.NoError(t, err)
	full := MustNew(people, "Nick", 4, nil, nil, nil, nil)
	assert.True(t, probe.SameKey(full))
	assert.Equal(t, full.KeyBytes(), probe.KeyBytes())

	_, err = people.ParseKey([]string{"Nick", "4"})
	assert.Error(t, err)
	_, err = people.ParseKey([]string{"null"})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := testRegistry(t)
	s, err := reg.ByName("people")
	require.NoError(t, err)
	assert.Same(t, people, s)

	clash := MustSchema("clash", 3, []Field{{Name: "k", Type: Int}}, "k")
	assert.Error(t, reg.Register(clash))
	assert.NoError(t, reg.Register(people))

	_, err = reg.ByName("nope")
	assert.ErrorIs(t, err, orchestra_errors.ErrUnknownRelation)

	extra := MustSchema("extra", 1, []Field{{Name: "k", Type: Int}}, "k")
	require.NoError(t, reg.Register(extra))
	list := reg.Schemas()
	require.Len(t, list, 2)
	assert.Equal(t, "extra", list[0].Name)

	typ, err := ParseType("Double")
	require.NoError(t, err)
	assert.Equal(t, Double, typ)
}
