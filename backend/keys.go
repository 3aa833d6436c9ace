package backend

import (
	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

// Spaces holds the one-byte prefixes of the state and update-log spaces.
type Spaces struct {
	State byte
	Log   byte
}

func (sp Spaces) StateKey(key []byte) []byte {
	return append([]byte{sp.State}, key...)
}

// StateRange bounds the state records of one relation.
func (sp Spaces) StateRange(relid int32) (lo, hi []byte) {
	lo = protocol.AppendInt([]byte{sp.State}, relid)
	return lo, PrefixEnd(lo)
}

func (sp Spaces) LogKey(key []byte, recno int32) []byte {
	lk := make([]byte, 0, 1+len(key)+protocol.IntLen)
	lk = append(append(lk, sp.Log), key...)
	return protocol.AppendInt(lk, recno)
}

// LogRange bounds the log records of key from startRecno on.
func (sp Spaces) LogRange(key []byte, startRecno int32) (lo, hi []byte) {
	return sp.LogKey(key, startRecno), PrefixEnd(append([]byte{sp.Log}, key...))
}

func (sp Spaces) LogSpaceRange() (lo, hi []byte) {
	return []byte{sp.Log}, []byte{sp.Log + 1}
}

func (sp Spaces) StateSpaceRange() (lo, hi []byte) {
	return []byte{sp.State}, []byte{sp.State + 1}
}

var metaKey = []byte{spaceMeta}

func decisionKey(d txn.Decision) []byte {
	return protocol.AppendInt(d.Tid.AppendBytes([]byte{spaceDecision}), d.Recno)
}

func decisionRange(tid txn.TxnPeerID) (lo, hi []byte) {
	lo = tid.AppendBytes([]byte{spaceDecision})
	return lo, PrefixEnd(lo)
}

// PrefixEnd is the smallest key greater than every key starting with
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func (m Meta) Bytes() []byte {
	b := protocol.IntToBytes(m.FirstRecno)
	b = protocol.AppendInt(b, m.CurrentRecno)
	return protocol.AppendInt(b, m.LastSeq)
}

func MetaFromBytes(data []byte) (m Meta, err error) {
	if m.FirstRecno, data, err = protocol.TakeInt(data); err != nil {
		return
	}
	if m.CurrentRecno, data, err = protocol.TakeInt(data); err != nil {
		return
	}
	m.LastSeq, _, err = protocol.TakeInt(data)
	return
}
