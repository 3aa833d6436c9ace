package update

import (
	"bytes"
	"fmt"

	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

/*
Update is one change to one relation.

	OldValue  NewValue
	   nil      set      insertion
	   set      nil      deletion
	   set      set      modification (possibly moving to another key)

Tids is empty until the update is prepared and holds exactly the
preparing transaction afterwards. Antecedents are the transactions that
produced OldValue. InitialTid/InitialValue remember the value the chain
of edits started from; only conflict classification reads them.
*/
type Update struct {
	OldValue     *tuple.Tuple
	NewValue     *tuple.Tuple
	Tids         txn.TidSet
	Antecedents  txn.TidSet
	InitialTid   *txn.TxnPeerID
	InitialValue *tuple.Tuple
}

func NewInsertion(t *tuple.Tuple) *Update {
	return &Update{NewValue: t}
}

func NewDeletion(t *tuple.Tuple) *Update {
	return &Update{OldValue: t}
}

func NewModification(oldValue, newValue *tuple.Tuple) *Update {
	return &Update{OldValue: oldValue, NewValue: newValue}
}

func (u *Update) IsInsertion() bool {
	return u.OldValue == nil && u.NewValue != nil
}

func (u *Update) IsDeletion() bool {
	return u.OldValue != nil && u.NewValue == nil
}

func (u *Update) IsModification() bool {
	return u.OldValue != nil && u.NewValue != nil
}

func (u *Update) IsPrepared() bool {
	return u.Tids.Len() > 0 || u.Antecedents.Len() > 0
}

// Keys lists the encoded keys the update touches: the old key, then the
// new key if it differs.
func (u *Update) Keys() (keys [][]byte) {
	if u.OldValue != nil {
		keys = append(keys, u.OldValue.KeyBytes())
	}
	if u.NewValue != nil {
		nk := u.NewValue.KeyBytes()
		if len(keys) == 0 || !bytes.Equal(keys[0], nk) {
			keys = append(keys, nk)
		}
	}
	return
}

// ValuesOnly drops the transaction metadata, which is what the update
// log keeps.
func (u *Update) ValuesOnly() *Update {
	return &Update{OldValue: u.OldValue, NewValue: u.NewValue}
}

// SameValues compares old and new values only.
func (u *Update) SameValues(o *Update) bool {
	return u.OldValue.Equal(o.OldValue) && u.NewValue.Equal(o.NewValue)
}

func (u *Update) Duplicate() *Update {
	d := &Update{
		OldValue:     u.OldValue.Duplicate(),
		NewValue:     u.NewValue.Duplicate(),
		Tids:         txn.NewTidSet(u.Tids...),
		Antecedents:  txn.NewTidSet(u.Antecedents...),
		InitialValue: u.InitialValue.Duplicate(),
	}
	if u.InitialTid != nil {
		tid := *u.InitialTid
		d.InitialTid = &tid
	}
	return d
}

func (u *Update) String() string {
	switch {
	case u.IsInsertion():
		return fmt.Sprintf("+%s %s", u.NewValue, u.Tids)
	case u.IsDeletion():
		return fmt.Sprintf("-%s %s", u.OldValue, u.Tids)
	}
	return fmt.Sprintf("%s->%s %s", u.OldValue, u.NewValue, u.Tids)
}

// StoreEntry is the materialized current value of one key and the
// transactions that most recently asserted it.
type StoreEntry struct {
	Value       *tuple.Tuple
	Antecedents txn.TidSet
}

// WithAdditionalTids returns the entry with tids merged into its
// antecedents; the value is kept as is.
func (e *StoreEntry) WithAdditionalTids(tids txn.TidSet) *StoreEntry {
	return &StoreEntry{Value: e.Value, Antecedents: e.Antecedents.Union(tids)}
}

func (e *StoreEntry) String() string {
	return e.Value.String() + " " + e.Antecedents.String()
}
