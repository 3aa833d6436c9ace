package update

import (
	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

const (
	markerAbsent  byte = 0
	markerPresent byte = 1
)

func appendOptTuple(into []byte, t *tuple.Tuple) []byte {
	if t == nil {
		return append(into, markerAbsent)
	}
	return t.AppendBytes(append(into, markerPresent))
}

func takeOptTuple(r tuple.Resolver, data []byte) (*tuple.Tuple, []byte, error) {
	if len(data) == 0 {
		return nil, data, errors.Wrap(orchestra_errors.ErrBadEncoding, "missing tuple marker")
	}
	switch data[0] {
	case markerAbsent:
		return nil, data[1:], nil
	case markerPresent:
		return tuple.Decode(r, data[1:])
	}
	return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "tuple marker %d", data[0])
}

// AppendValuesBytes writes the values-only form: old, then new, each as a
// presence marker optionally followed by the tuple.
func (u *Update) AppendValuesBytes(into []byte) []byte {
	into = appendOptTuple(into, u.OldValue)
	return appendOptTuple(into, u.NewValue)
}

func TakeValues(r tuple.Resolver, data []byte) (u *Update, rest []byte, err error) {
	u = &Update{}
	if u.OldValue, rest, err = takeOptTuple(r, data); err != nil {
		return nil, data, err
	}
	if u.NewValue, rest, err = takeOptTuple(r, rest); err != nil {
		return nil, data, err
	}
	if u.OldValue == nil && u.NewValue == nil {
		return nil, data, errors.Wrap(orchestra_errors.ErrBadEncoding, "update without values")
	}
	return u, rest, nil
}

// EncodeList writes updates back to back in values-only form; this is the
// value of one update-log record.
func EncodeList(list []*Update) (data []byte) {
	for _, u := range list {
		data = u.AppendValuesBytes(data)
	}
	return
}

func DecodeList(r tuple.Resolver, data []byte) (list []*Update, err error) {
	for len(data) > 0 {
		var u *Update
		if u, data, err = TakeValues(r, data); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return
}

// Bytes is the full form: values, tids, antecedents, then the optional
// initial transaction and initial value.
func (u *Update) Bytes() []byte {
	data := u.AppendValuesBytes(nil)
	data = u.Tids.AppendBytes(data)
	data = u.Antecedents.AppendBytes(data)
	if u.InitialTid == nil {
		data = append(data, markerAbsent)
	} else {
		data = u.InitialTid.AppendBytes(append(data, markerPresent))
	}
	return appendOptTuple(data, u.InitialValue)
}

func FromBytes(r tuple.Resolver, data []byte) (*Update, error) {
	u, rest, err := TakeValues(r, data)
	if err != nil {
		return nil, err
	}
	if u.Tids, rest, err = txn.TakeTidSet(rest); err != nil {
		return nil, err
	}
	if u.Antecedents, rest, err = txn.TakeTidSet(rest); err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, errors.Wrap(orchestra_errors.ErrBadEncoding, "missing initial tid marker")
	}
	marker := rest[0]
	rest = rest[1:]
	switch marker {
	case markerAbsent:
	case markerPresent:
		var tid txn.TxnPeerID
		if tid, rest, err = txn.TakeTxnPeerID(rest); err != nil {
			return nil, err
		}
		u.InitialTid = &tid
	default:
		return nil, errors.Wrapf(orchestra_errors.ErrBadEncoding, "initial tid marker %d", marker)
	}
	if u.InitialValue, rest, err = takeOptTuple(r, rest); err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%d bytes after update", len(rest))
	}
	return u, nil
}

// Bytes is the serialized tuple, the 4-byte tid count and the tids.
func (e *StoreEntry) Bytes() []byte {
	return e.Antecedents.AppendBytes(e.Value.Bytes())
}

func DecodeStoreEntry(r tuple.Resolver, data []byte) (*StoreEntry, error) {
	value, rest, err := tuple.Decode(r, data)
	if err != nil {
		return nil, err
	}
	ants, rest, err := txn.TakeTidSet(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%d bytes after store entry", len(rest))
	}
	return &StoreEntry{Value: value, Antecedents: ants}, nil
}
