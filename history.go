package orchestra

import (
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
)

// GetTupleWithKey returns the value the key of t had when round recno
// closed, or nil if the key was vacant then. The current value is
// rolled back through the logged rounds after recno, newest first.
func (ds *DiffStore) GetTupleWithKey(recno int32, t *tuple.Tuple) (*tuple.Tuple, error) {
	meta := ds.snapshot()
	if err := ds.checkRecno(recno, meta); err != nil {
		return nil, err
	}
	key := t.KeyBytes()
	e, err := ds.b.GetStoreEntry(key)
	if err != nil {
		return nil, err
	}
	var val *tuple.Tuple
	if e != nil {
		val = e.Value
	}
	if recno < meta.CurrentRecno {
		later, err := ds.b.GetUpdateList(key, recno+1)
		if err != nil {
			return nil, err
		}
		for i := len(later) - 1; i >= 0; i-- {
			u := later[i]
			if u.NewValue.SameKey(t) {
				val = nil
				if u.OldValue.SameKey(t) {
					val = u.OldValue
				}
			} else if u.OldValue.SameKey(t) {
				val = u.OldValue
			}
		}
	}
	return val.Duplicate(), nil
}

// ClearStateBefore forgets the history of every round before recno.
// Current values are kept; reads before recno fail from now on.
func (ds *DiffStore) ClearStateBefore(recno int32) error {
	if err := ds.lockWriter(); err != nil {
		return err
	}
	defer ds.writer.Unlock()

	meta := ds.snapshot()
	if err := ds.checkRecno(recno, meta); err != nil {
		return err
	}
	if err := ds.b.ClearStateBefore(recno); err != nil {
		return err
	}
	meta.FirstRecno = recno
	ds.log.Info("history cleared", "before", recno)
	return ds.commit(meta)
}

// AdvanceRecno closes the open round and opens the next one.
func (ds *DiffStore) AdvanceRecno() error {
	if err := ds.lockWriter(); err != nil {
		return err
	}
	defer ds.writer.Unlock()

	meta := ds.snapshot()
	meta.CurrentRecno++
	if err := ds.commit(meta); err != nil {
		return err
	}
	RoundsAdvanced.Inc()
	ds.log.Info("round advanced", "recno", meta.CurrentRecno)
	return ds.b.RecnoHasAdvanced(meta.CurrentRecno)
}

// Reset empties the store and rewinds it to FirstRecno. Transaction
// sequence numbers keep counting up so old ids are never reissued.
func (ds *DiffStore) Reset() error {
	if err := ds.lockWriter(); err != nil {
		return err
	}
	defer ds.writer.Unlock()

	if err := ds.b.Reset(); err != nil {
		return err
	}
	meta := ds.snapshot()
	meta.FirstRecno, meta.CurrentRecno = FirstRecno, FirstRecno
	ds.log.Info("diff store reset", "store", ds.b.Descriptor().ID)
	return ds.commit(meta)
}
