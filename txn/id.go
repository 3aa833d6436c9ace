package txn

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
)

// PeerID names one participant of the sharing system.
type PeerID string

// NewPeerID makes a fresh random peer name, for stores opened without one.
func NewPeerID() PeerID {
	return PeerID(uuid.Must(uuid.NewV7()).String())
}

// AppendBytes appends the 4-byte length and the UTF-8 name.
func (p PeerID) AppendBytes(into []byte) []byte {
	into = protocol.AppendInt(into, int32(len(p)))
	return append(into, p...)
}

func (p PeerID) Bytes() []byte {
	return p.AppendBytes(nil)
}

func TakePeerID(data []byte) (PeerID, []byte, error) {
	n, rest, err := protocol.TakeInt(data)
	if err != nil || n < 0 || int(n) > len(rest) {
		return "", data, errors.Wrap(orchestra_errors.ErrBadEncoding, "peer id")
	}
	return PeerID(rest[:n]), rest[n:], nil
}

/*
TxnPeerID identifies exactly one transaction: the sequence number a peer
gave it when it was prepared. Ordering is by peer, then by sequence.

	+---seq(4 BE)---+---len(4 BE)---+---peer (len bytes)---+
*/
type TxnPeerID struct {
	Seq  int32
	Peer PeerID
}

func (id TxnPeerID) Compare(o TxnPeerID) int {
	if c := strings.Compare(string(id.Peer), string(o.Peer)); c != 0 {
		return c
	}
	return cmp.Compare(id.Seq, o.Seq)
}

func (id TxnPeerID) Less(o TxnPeerID) bool {
	return id.Compare(o) < 0
}

func (id TxnPeerID) AppendBytes(into []byte) []byte {
	into = protocol.AppendInt(into, id.Seq)
	return id.Peer.AppendBytes(into)
}

func (id TxnPeerID) Bytes() []byte {
	return id.AppendBytes(nil)
}

func TakeTxnPeerID(data []byte) (id TxnPeerID, rest []byte, err error) {
	id.Seq, rest, err = protocol.TakeInt(data)
	if err != nil {
		return id, data, errors.Wrap(orchestra_errors.ErrBadEncoding, "transaction sequence")
	}
	id.Peer, rest, err = TakePeerID(rest)
	if err != nil {
		return id, data, err
	}
	return id, rest, nil
}

func (id TxnPeerID) String() string {
	return string(id.Peer) + ":" + strconv.FormatInt(int64(id.Seq), 10)
}

// PidAndRecno is a position in some peer's history: peer bytes, then the
// 4-byte recno.
type PidAndRecno struct {
	Peer  PeerID
	Recno int32
}

func (pr PidAndRecno) Compare(o PidAndRecno) int {
	if c := strings.Compare(string(pr.Peer), string(o.Peer)); c != 0 {
		return c
	}
	return cmp.Compare(pr.Recno, o.Recno)
}

func (pr PidAndRecno) Bytes() []byte {
	return protocol.AppendInt(pr.Peer.Bytes(), pr.Recno)
}

func PidAndRecnoFromBytes(data []byte) (pr PidAndRecno, err error) {
	var rest []byte
	pr.Peer, rest, err = TakePeerID(data)
	if err != nil {
		return
	}
	if len(rest) != protocol.IntLen {
		return pr, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%d bytes after peer", len(rest))
	}
	pr.Recno, err = protocol.BytesToInt(rest)
	return
}

func (pr PidAndRecno) String() string {
	return string(pr.Peer) + "@" + strconv.FormatInt(int64(pr.Recno), 10)
}
