package orchestra

import (
	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

// PrepareTransaction allocates the next transaction id of this peer and
// stamps it into every update, together with the antecedents of the
// values being replaced. Nothing is stamped unless every update passes.
// Only the sequence counter is saved; tuple state is left alone.
func (ds *DiffStore) PrepareTransaction(updates []*update.Update) (txn.TxnPeerID, error) {
	if err := ds.lockWriter(); err != nil {
		return txn.TxnPeerID{}, err
	}
	defer ds.writer.Unlock()

	ants := make([]txn.TidSet, len(updates))
	for i, u := range updates {
		if u.IsPrepared() {
			Rejected.WithLabelValues("already_prepared").Inc()
			return txn.TxnPeerID{}, errors.Wrapf(orchestra_errors.ErrAlreadyPrepared, "%s", u)
		}
		if u.OldValue == nil {
			continue
		}
		e, err := ds.b.GetStoreEntry(u.OldValue.KeyBytes())
		if err != nil {
			return txn.TxnPeerID{}, err
		}
		if e == nil || !e.Value.Equal(u.OldValue) {
			Rejected.WithLabelValues("prepare_mismatch").Inc()
			return txn.TxnPeerID{}, errors.Wrapf(orchestra_errors.ErrPrepareMismatch, "%s", u.OldValue)
		}
		ants[i] = e.Antecedents
	}

	meta := ds.snapshot()
	meta.LastSeq++
	if err := ds.commit(meta); err != nil {
		return txn.TxnPeerID{}, err
	}
	tid := txn.TxnPeerID{Seq: meta.LastSeq, Peer: ds.peer}

	for i, u := range updates {
		u.Tids = txn.NewTidSet(tid)
		u.Antecedents = ants[i]
	}
	TransactionsPrepared.Inc()
	ds.log.Debug("transaction prepared", "tid", tid, "updates", len(updates))
	return tid, nil
}

// ApplyTransaction installs the updates of one transaction at recno, in
// order. Each update is checked before any of its writes, so a rejected
// update leaves the store as the previous ones left it.
func (ds *DiffStore) ApplyTransaction(recno int32, updates []*update.Update) error {
	if err := ds.lockWriter(); err != nil {
		return err
	}
	defer ds.writer.Unlock()

	meta := ds.snapshot()
	if err := ds.checkRecno(recno, meta); err != nil {
		return err
	}
	for _, u := range updates {
		if err := ds.apply(recno, meta.CurrentRecno, u); err != nil {
			ds.log.Warn("update rejected", "recno", recno, "update", u, "err", err)
			return err
		}
	}
	TransactionsApplied.Inc()
	return ds.commit(meta)
}

func (ds *DiffStore) apply(recno, current int32, u *update.Update) error {
	if u.OldValue == nil && u.NewValue == nil {
		return errors.Wrap(orchestra_errors.ErrUpdate, "update carries no values")
	}

	var existing *update.StoreEntry
	duplicate := false
	if u.OldValue != nil {
		if err := ds.checkNoLaterUpdate(recno, current, u.OldValue); err != nil {
			return err
		}
	}
	if u.NewValue != nil {
		var err error
		if existing, err = ds.b.GetStoreEntry(u.NewValue.KeyBytes()); err != nil {
			return err
		}
		// a same-key modification clears its own old value first
		replaced := existing != nil && u.OldValue.SameKey(u.NewValue) && existing.Value.Equal(u.OldValue)
		switch {
		case existing == nil || replaced:
			existing = nil
		case existing.Value.Equal(u.NewValue):
			duplicate = true
		default:
			Rejected.WithLabelValues("key_violation").Inc()
			return errors.Wrapf(orchestra_errors.ErrUpdate, "key violation: %s is held by %s", u.NewValue, existing.Value)
		}
		if err = ds.checkNoLaterUpdate(recno, current, u.NewValue); err != nil {
			return err
		}
	}

	cleared := false
	if u.OldValue != nil {
		key := u.OldValue.KeyBytes()
		e, err := ds.b.GetStoreEntry(key)
		if err != nil {
			return err
		}
		if e != nil && e.Value.Equal(u.OldValue) {
			if err = ds.b.SetStoreEntry(key, nil); err != nil {
				return err
			}
			cleared = true
		}
	}

	if u.NewValue != nil {
		key := u.NewValue.KeyBytes()
		entry := &update.StoreEntry{Value: u.NewValue.Duplicate(), Antecedents: u.Tids}
		if duplicate {
			entry = existing.WithAdditionalTids(u.Tids)
		}
		if err := ds.b.SetStoreEntry(key, entry); err != nil {
			return err
		}
	}

	logged := u
	if duplicate {
		// the new key already held this value; only a vacated old key is news
		if !cleared || u.OldValue.SameKey(u.NewValue) {
			ds.log.Debug("value re-asserted", "recno", recno, "value", u.NewValue, "tids", u.Tids)
			return nil
		}
		logged = update.NewDeletion(u.OldValue)
	} else if u.OldValue != nil && !cleared {
		// the old value was not live, so this key's history starts here
		if u.NewValue == nil {
			ds.log.Debug("deletion of an absent value", "recno", recno, "value", u.OldValue)
			return nil
		}
		logged = update.NewInsertion(u.NewValue)
	}
	return ds.appendLog(recno, logged)
}

// checkNoLaterUpdate rejects retroactive changes: nothing logged for the
// key of t after recno may exist.
func (ds *DiffStore) checkNoLaterUpdate(recno, current int32, t *tuple.Tuple) error {
	if recno >= current {
		return nil
	}
	later, err := ds.b.GetUpdateList(t.KeyBytes(), recno+1)
	if err != nil {
		return err
	}
	if len(later) > 0 {
		Rejected.WithLabelValues("retroactive").Inc()
		return errors.Wrapf(orchestra_errors.ErrUpdate, "a later update already modified %s", t)
	}
	return nil
}

func (ds *DiffStore) appendLog(recno int32, u *update.Update) error {
	err := ds.b.AddToUpdateList(recno, u)
	if errors.Is(err, orchestra_errors.ErrFlatten) {
		ds.log.Error("update log invariant violated", "recno", recno, "update", u, "err", err)
		panic(err)
	}
	return err
}
