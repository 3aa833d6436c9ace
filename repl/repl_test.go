package repl

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orchestra "github.com/jeffdeville/penn-orchestra-sub006"
	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

func testREPL(t *testing.T) (*REPL, *bytes.Buffer) {
	cfg := &orchestra.Config{
		Schema:  "demo",
		Backend: backend.Descriptor{Kind: backend.KindMemory},
		Relations: []orchestra.RelationConfig{{
			Name: "people", ID: 1, Key: []string{"name"},
			Fields: []orchestra.FieldConfig{{Name: "name", Type: "string"}, {Name: "age", Type: "int", Nullable: true}},
		}},
	}
	store, err := orchestra.OpenFromConfig(cfg, orchestra.Options{Peer: "alice"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	out := &bytes.Buffer{}
	repl := New(store)
	repl.Out = out
	return repl, out
}

func TestSplitValues(t *testing.T) {
	assert.Equal(t, []string{`"a, b"`, "3", "null"}, splitValues(`"a, b", 3 ,null`))
	assert.Equal(t, []string{`"say \"hi\", ok"`}, splitValues(`"say \"hi\", ok"`))
	assert.Equal(t, []string{""}, splitValues(""))
}

func TestREPL_Session(t *testing.T) {
	repl, out := testREPL(t)

	require.NoError(t, repl.Execute(`insert people "Nick", 30`))
	assert.Equal(t, "alice:1 @0\n", out.String())
	require.NoError(t, repl.Execute("advance"))
	require.NoError(t, repl.Execute(`update people "Nick", 30 -> "Nick", 31`))
	require.NoError(t, repl.Execute(`insert people "Mark", null`))

	out.Reset()
	require.NoError(t, repl.Execute(`get people "Nick"`))
	require.NoError(t, repl.Execute(`get people "Nick" @0`))
	require.NoError(t, repl.Execute(`get people "Zed"`))
	assert.Equal(t, "people(\"Nick\", 31)\npeople(\"Nick\", 30)\n<none>\n", out.String())

	out.Reset()
	require.NoError(t, repl.Execute("scan people"))
	assert.Equal(t, "people(\"Mark\", null)\npeople(\"Nick\", 31)\n", out.String())

	out.Reset()
	require.NoError(t, repl.Execute(`delete people "Mark", null`))
	require.NoError(t, repl.Execute("clear 1"))
	assert.Contains(t, out.String(), "rounds 1..1")

	err := repl.Execute(`get people "Nick" @0`)
	assert.ErrorIs(t, err, orchestra_errors.ErrBadRecno)

	out.Reset()
	require.NoError(t, repl.Execute("reset"))
	assert.Equal(t, "rounds 0..0 (alice@0)\n", out.String())
}

func TestREPL_Errors(t *testing.T) {
	repl, _ := testREPL(t)
	assert.ErrorIs(t, repl.Execute("frobnicate"), ErrUnknownCommand)
	assert.ErrorIs(t, repl.Execute("exit"), io.EOF)
	assert.NoError(t, repl.Execute("   "))
	assert.Equal(t, HelpInsert, repl.Execute("insert"))
	assert.Equal(t, HelpUpdate, repl.Execute(`update people "Nick", 1`))
	assert.Equal(t, HelpClear, repl.Execute("clear soon"))
	assert.Equal(t, HelpScan, repl.Execute("scan"))
	assert.ErrorIs(t, repl.Execute(`insert nobody 1`), orchestra_errors.ErrUnknownRelation)
	assert.Error(t, repl.Execute(`insert people "Nick"`))

	require.NoError(t, repl.Execute(`insert people "Nick", 1`))
	assert.ErrorIs(t, repl.Execute(`insert people "Nick", 2`), orchestra_errors.ErrUpdate)
	assert.ErrorIs(t, repl.Execute(`delete people "Nick", 2`), orchestra_errors.ErrPrepareMismatch)
}

func TestREPL_Decisions(t *testing.T) {
	repl, out := testREPL(t)
	tid := txn.TxnPeerID{Seq: 4, Peer: "alice"}
	require.NoError(t, repl.Store.RecordDecision(txn.Decision{Tid: tid, Recno: 0, Accepted: true}))
	require.NoError(t, repl.Execute("decisions 4"))
	assert.Equal(t, "alice:4 accepted @0\n", out.String())
	assert.Equal(t, HelpDecisions, repl.Execute("decisions x"))
}
