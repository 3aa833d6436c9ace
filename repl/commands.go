package repl

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

const help = `insert <rel> v1, v2, ...         add a tuple
update <rel> v1, ... -> w1, ...  replace a tuple
delete <rel> v1, v2, ...         remove a tuple
get <rel> k1, ... [@recno]       value of a key, now or when a round closed
scan <rel>                       current tuples in key order
advance                          close the round
clear <recno>                    forget history before recno
recno                            show the round window
reset                            empty the store
decisions <seq> [peer]           decisions recorded for a transaction
exit`

var (
	HelpInsert    = errors.New("insert people \"Nick\", 30")
	HelpUpdate    = errors.New("update people \"Nick\", 30 -> \"Nick\", 31")
	HelpDelete    = errors.New("delete people \"Nick\", 31")
	HelpGet       = errors.New("get people \"Nick\" @2")
	HelpScan      = errors.New("scan people")
	HelpClear     = errors.New("clear 3")
	HelpDecisions = errors.New("decisions 4 alice")
)

// splitValues cuts a comma separated value list, leaving commas inside
// double quotes alone.
func splitValues(text string) (vals []string) {
	var sb strings.Builder
	quoted, escaped := false, false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			vals = append(vals, strings.TrimSpace(sb.String()))
			sb.Reset()
			continue
		}
		sb.WriteRune(r)
	}
	return append(vals, strings.TrimSpace(sb.String()))
}

func (repl *REPL) relation(arg string, usage error) (*tuple.Schema, string, error) {
	name, rest, _ := strings.Cut(arg, " ")
	if name == "" {
		return nil, "", usage
	}
	rel, err := repl.Store.Relation(name)
	return rel, strings.TrimSpace(rest), err
}

func (repl *REPL) parse(arg string, usage error) (*tuple.Tuple, error) {
	rel, rest, err := repl.relation(arg, usage)
	if err != nil {
		return nil, err
	}
	return rel.Parse(splitValues(rest))
}

// commit runs one update as a transaction of its own in the open round.
func (repl *REPL) commit(u *update.Update) error {
	updates := []*update.Update{u}
	tid, err := repl.Store.PrepareTransaction(updates)
	if err != nil {
		return err
	}
	if err = repl.Store.ApplyTransaction(repl.Store.CurrentRecno(), updates); err != nil {
		return err
	}
	repl.printf("%s @%d\n", tid, repl.Store.CurrentRecno())
	return nil
}

func (repl *REPL) CommandInsert(arg string) error {
	t, err := repl.parse(arg, HelpInsert)
	if err != nil {
		return err
	}
	return repl.commit(update.NewInsertion(t))
}

func (repl *REPL) CommandDelete(arg string) error {
	t, err := repl.parse(arg, HelpDelete)
	if err != nil {
		return err
	}
	return repl.commit(update.NewDeletion(t))
}

func (repl *REPL) CommandUpdate(arg string) error {
	rel, rest, err := repl.relation(arg, HelpUpdate)
	if err != nil {
		return err
	}
	before, after, ok := strings.Cut(rest, "->")
	if !ok {
		return HelpUpdate
	}
	oldValue, err := rel.Parse(splitValues(before))
	if err != nil {
		return err
	}
	newValue, err := rel.Parse(splitValues(after))
	if err != nil {
		return err
	}
	return repl.commit(update.NewModification(oldValue, newValue))
}

func (repl *REPL) CommandGet(arg string) error {
	rel, rest, err := repl.relation(arg, HelpGet)
	if err != nil {
		return err
	}
	recno := repl.Store.CurrentRecno()
	if at := strings.LastIndexByte(rest, '@'); at >= 0 && !strings.Contains(rest[at:], "\"") {
		n, err := strconv.ParseInt(strings.TrimSpace(rest[at+1:]), 10, 32)
		if err != nil {
			return HelpGet
		}
		recno, rest = int32(n), rest[:at]
	}
	probe, err := rel.ParseKey(splitValues(rest))
	if err != nil {
		return err
	}
	t, err := repl.Store.GetTupleWithKey(recno, probe)
	if err != nil {
		return err
	}
	repl.printf("%s\n", t)
	return nil
}

func (repl *REPL) CommandScan(arg string) error {
	if arg == "" {
		return HelpScan
	}
	it, err := repl.Store.Scan(arg)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		ok, err := it.HasNext()
		if err != nil || !ok {
			return err
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		repl.printf("%s\n", t)
	}
}

func (repl *REPL) CommandAdvance(arg string) error {
	if err := repl.Store.AdvanceRecno(); err != nil {
		return err
	}
	return repl.CommandRecno(arg)
}

func (repl *REPL) CommandClear(arg string) error {
	n, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return HelpClear
	}
	if err = repl.Store.ClearStateBefore(int32(n)); err != nil {
		return err
	}
	return repl.CommandRecno("")
}

func (repl *REPL) CommandRecno(arg string) error {
	repl.printf("rounds %d..%d (%s)\n", repl.Store.FirstRecno(), repl.Store.CurrentRecno(), repl.Store.PidAndRecno())
	return nil
}

func (repl *REPL) CommandReset(arg string) error {
	if err := repl.Store.Reset(); err != nil {
		return err
	}
	return repl.CommandRecno(arg)
}

func (repl *REPL) CommandDecisions(arg string) error {
	seqText, peer, _ := strings.Cut(arg, " ")
	seq, err := strconv.ParseInt(seqText, 10, 32)
	if err != nil {
		return HelpDecisions
	}
	tid := txn.TxnPeerID{Seq: int32(seq), Peer: txn.PeerID(strings.TrimSpace(peer))}
	if tid.Peer == "" {
		tid.Peer = repl.Store.Peer()
	}
	list, err := repl.Store.Decisions(tid)
	if err != nil {
		return err
	}
	for _, d := range list {
		verdict := "rejected"
		if d.Accepted {
			verdict = "accepted"
		}
		repl.printf("%s %s @%d\n", d.Tid, verdict, d.Recno)
	}
	return nil
}
