package txn

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
)

// TidSet is a set of transaction ids kept sorted and free of duplicates,
// so that equal sets always encode to equal bytes. Methods never modify
// the receiver's backing array.
type TidSet []TxnPeerID

func NewTidSet(ids ...TxnPeerID) TidSet {
	set := slices.Clone(ids)
	slices.SortFunc(set, TxnPeerID.Compare)
	return slices.CompactFunc(set, func(a, b TxnPeerID) bool { return a == b })
}

func (s TidSet) Len() int {
	return len(s)
}

func (s TidSet) Contains(id TxnPeerID) bool {
	_, found := slices.BinarySearchFunc(s, id, TxnPeerID.Compare)
	return found
}

func (s TidSet) Add(id TxnPeerID) TidSet {
	i, found := slices.BinarySearchFunc(s, id, TxnPeerID.Compare)
	if found {
		return s
	}
	return slices.Insert(slices.Clip(s), i, id)
}

func (s TidSet) Union(o TidSet) TidSet {
	if len(o) == 0 {
		return s
	}
	if len(s) == 0 {
		return o
	}
	merged := make([]TxnPeerID, 0, len(s)+len(o))
	merged = append(append(merged, s...), o...)
	return NewTidSet(merged...)
}

func (s TidSet) Intersects(o TidSet) bool {
	for _, id := range s {
		if o.Contains(id) {
			return true
		}
	}
	return false
}

// AppendBytes writes the 4-byte count followed by each id.
func (s TidSet) AppendBytes(into []byte) []byte {
	into = protocol.AppendInt(into, int32(len(s)))
	for _, id := range s {
		into = id.AppendBytes(into)
	}
	return into
}

func TakeTidSet(data []byte) (TidSet, []byte, error) {
	n, rest, err := protocol.TakeInt(data)
	if err != nil || n < 0 {
		return nil, data, errors.Wrap(orchestra_errors.ErrBadEncoding, "tid count")
	}
	ids := make([]TxnPeerID, 0, min(int(n), 64))
	for i := int32(0); i < n; i++ {
		var id TxnPeerID
		id, rest, err = TakeTxnPeerID(rest)
		if err != nil {
			return nil, data, err
		}
		ids = append(ids, id)
	}
	return NewTidSet(ids...), rest, nil
}

func (s TidSet) String() string {
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
