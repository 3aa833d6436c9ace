package update

import "github.com/jeffdeville/penn-orchestra-sub006/tuple"

// ConflictType classifies how two updates to the same key collide.
type ConflictType byte

const (
	ConflictNone ConflictType = iota
	// Both sides inserted the key independently.
	ConflictKey
	// Both sides edited the same base value and disagree on the outcome.
	ConflictUpdate
	// Both edit chains start from the same committed value, even though
	// the immediate predecessors differ.
	ConflictInitial
)

func (c ConflictType) String() string {
	switch c {
	case ConflictKey:
		return "KEY"
	case ConflictUpdate:
		return "UPDATE"
	case ConflictInitial:
		return "INITIAL"
	}
	return "NONE"
}

/*
Classify decides whether two updates, usually from two peers' logs,
conflict. Checks run in this order:

 1. no key in common, a shared transaction, or identical effect: none
 2. both carry the same initial transaction and value: INITIAL
 3. both are insertions: KEY
 4. both replace an equal old value: UPDATE
 5. anything else, such as edits from different old values: none
*/
func Classify(a, b *Update) ConflictType {
	if !touchesSameKey(a, b) {
		return ConflictNone
	}
	if a.Tids.Intersects(b.Tids) || a.SameValues(b) {
		return ConflictNone
	}
	if sharesInitial(a, b) {
		return ConflictInitial
	}
	if a.IsInsertion() && b.IsInsertion() {
		return ConflictKey
	}
	if a.OldValue != nil && a.OldValue.Equal(b.OldValue) {
		return ConflictUpdate
	}
	return ConflictNone
}

func touchesSameKey(a, b *Update) bool {
	for _, ta := range []*tuple.Tuple{a.OldValue, a.NewValue} {
		for _, tb := range []*tuple.Tuple{b.OldValue, b.NewValue} {
			if ta.SameKey(tb) {
				return true
			}
		}
	}
	return false
}

func sharesInitial(a, b *Update) bool {
	if a.InitialTid == nil || b.InitialTid == nil {
		return false
	}
	return *a.InitialTid == *b.InitialTid && a.InitialValue.Equal(b.InitialValue)
}
