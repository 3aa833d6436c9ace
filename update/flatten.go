package update

import (
	"bytes"
	"slices"

	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
)

// MaxPerRound is the most updates one key may have logged for one round.
const MaxPerRound = 2

/*
Flatten composes u onto the updates already logged for one key in the
open round and returns the new log contents, values only. However many
edits a round sees, a key ends up with at most two entries: the net
fate of the value it had before the round, and a value inserted after
that one went away.

	prior          u             result
	[]             any           [u]
	[.., last]     deletion      [..]            if last inserted
	[.., last]     deletion      [.., -last.old] otherwise
	[.., last]     modification  [.., last.old -> u.new]
	[..]           insertion     [.., u]

Kinds are judged from the point of view of key: an update moving a
value away from key is a deletion there, one moving a value onto key an
insertion. An empty result means the round nets to nothing for the key.
More than MaxPerRound entries is a broken store, reported as ErrFlatten.
*/
func Flatten(key []byte, prior []*Update, u *Update) ([]*Update, error) {
	if len(prior) > MaxPerRound {
		return nil, errors.Wrapf(orchestra_errors.ErrFlatten, "%d updates logged", len(prior))
	}
	if len(prior) == 0 {
		return []*Update{u.ValuesOnly()}, nil
	}
	last := prior[len(prior)-1]
	next := slices.Clone(prior[:len(prior)-1])
	switch {
	case !holds(u.NewValue, key):
		if holds(last.OldValue, key) {
			next = append(next, &Update{OldValue: last.OldValue})
		}
	case holds(u.OldValue, key):
		next = append(next, &Update{OldValue: last.OldValue, NewValue: u.NewValue})
	default:
		next = append(next, last, u.ValuesOnly())
	}
	if len(next) > MaxPerRound {
		return nil, errors.Wrapf(orchestra_errors.ErrFlatten, "insertion of %s after %d updates", u.NewValue, len(prior))
	}
	return next, nil
}

func holds(t *tuple.Tuple, key []byte) bool {
	return t != nil && bytes.Equal(t.KeyBytes(), key)
}
