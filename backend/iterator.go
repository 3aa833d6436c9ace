package backend

import (
	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/update"
)

type IterState byte

const (
	StateFresh IterState = iota
	StatePositioned
	StateAtStart
	StateAtEnd
	StateClosed
)

func (s IterState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StatePositioned:
		return "positioned"
	case StateAtStart:
		return "at-start"
	case StateAtEnd:
		return "at-end"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Iterator walks the current tuples of one relation in key order, in
// both directions. Its logical position sits between tuples: Next
// returns the tuple after it and Prev the one before. Modifying the
// relation while an iterator is open is not supported.
type Iterator struct {
	cur   Cursor
	reg   tuple.Resolver
	state IterState
	pos   int // tuples before the logical position
	at    int // tuple under the cursor; -1 before the first one
	seen  int // tuples known to exist
	total int // -1 until the end has been reached
}

func NewIterator(cur Cursor, reg tuple.Resolver) *Iterator {
	return &Iterator{cur: cur, reg: reg, at: -1, total: -1}
}

func (it *Iterator) State() IterState {
	return it.state
}

// Pos is the number of tuples before the logical position.
func (it *Iterator) Pos() int {
	return it.pos
}

func (it *Iterator) HasNext() (bool, error) {
	if it.state == StateClosed {
		return false, orchestra_errors.ErrIteratorClosed
	}
	if it.pos < it.seen {
		return true, nil
	}
	if it.total >= 0 && it.pos >= it.total {
		it.state = StateAtEnd
		return false, nil
	}
	if !it.moveTo(it.pos) {
		it.total = it.pos
		it.state = StateAtEnd
		return false, nil
	}
	it.seen = it.pos + 1
	return true, nil
}

func (it *Iterator) Next() (*tuple.Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok || !it.moveTo(it.pos) {
		return nil, orchestra_errors.ErrNoSuchElement
	}
	t, err := it.decode()
	if err != nil {
		return nil, err
	}
	it.pos++
	it.state = StatePositioned
	return t, nil
}

func (it *Iterator) HasPrev() (bool, error) {
	if it.state == StateClosed {
		return false, orchestra_errors.ErrIteratorClosed
	}
	if it.pos == 0 {
		it.state = StateAtStart
		return false, nil
	}
	return true, nil
}

func (it *Iterator) Prev() (*tuple.Tuple, error) {
	ok, err := it.HasPrev()
	if err != nil {
		return nil, err
	}
	if !ok || !it.moveTo(it.pos-1) {
		return nil, orchestra_errors.ErrNoSuchElement
	}
	t, err := it.decode()
	if err != nil {
		return nil, err
	}
	it.pos--
	if it.pos == 0 {
		it.state = StateAtStart
	} else {
		it.state = StatePositioned
	}
	return t, nil
}

func (it *Iterator) Close() error {
	if it.state == StateClosed {
		return orchestra_errors.ErrIteratorClosed
	}
	it.state = StateClosed
	return orchestra_errors.Backend(it.cur.Close(), "close cursor")
}

func (it *Iterator) decode() (*tuple.Tuple, error) {
	e, err := update.DecodeStoreEntry(it.reg, it.cur.Value())
	if err != nil {
		return nil, errors.WithMessagef(err, "state record %d", it.at)
	}
	return e.Value, nil
}

// moveTo puts the cursor on tuple k, stepping from wherever it is.
func (it *Iterator) moveTo(k int) bool {
	if !it.cur.Valid() {
		if it.at < 0 {
			if !it.cur.First() {
				return false
			}
			it.at = 0
		} else {
			// ran off the end; total is known
			if !it.cur.Last() {
				return false
			}
			it.at = it.total - 1
		}
	}
	for it.at < k {
		it.at++
		if !it.cur.Next() {
			return false
		}
	}
	for it.at > k {
		if !it.cur.Prev() {
			it.at = -1
			return false
		}
		it.at--
	}
	return true
}
