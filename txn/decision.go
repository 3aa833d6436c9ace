package txn

import (
	"cmp"
	"slices"
)

// Decision is the outcome recorded for a transaction in one round.
type Decision struct {
	Tid      TxnPeerID
	Recno    int32
	Accepted bool
}

// Compare orders by recno, then accepted before rejected. The transaction
// id breaks the remaining ties.
func (d Decision) Compare(o Decision) int {
	if c := cmp.Compare(d.Recno, o.Recno); c != 0 {
		return c
	}
	if d.Accepted != o.Accepted {
		if d.Accepted {
			return -1
		}
		return 1
	}
	return d.Tid.Compare(o.Tid)
}

func SortDecisions(ds []Decision) {
	slices.SortFunc(ds, Decision.Compare)
}
