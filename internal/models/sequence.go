package models

import "sort"

// Set sequencing: the one total order both attempt accounting and access gating
// rely on. Primary key display_order ascending, ties broken by set id ascending.
// The comparator only defines ordering; renumbering display_order values is the
// authoring service's job.

// SetLess reports whether a sorts before b in sequence order.
func SetLess(a, b *PracticeSet) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	return a.ID < b.ID
}

// SortSetsInSequence sorts sets in place into sequence order. The sort is
// stable so equal elements (same display_order and id, i.e. duplicates) keep
// their relative position.
func SortSetsInSequence(sets []*PracticeSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		return SetLess(sets[i], sets[j])
	})
}

// FirstNotIn returns the earliest set in sequence order whose id is not in the
// given set of ids, or nil when every set is covered. Input must already be in
// sequence order.
func FirstNotIn(ordered []*PracticeSet, ids map[uint]struct{}) *PracticeSet {
	for _, s := range ordered {
		if _, ok := ids[s.ID]; !ok {
			return s
		}
	}
	return nil
}
