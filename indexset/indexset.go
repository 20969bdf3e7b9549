// Package indexset provides a sorted set of small non-negative integers.
//
// It backs the viewer's visible-page bookkeeping: membership tests and
// mutations are binary searches over a sorted slice, and iteration is
// always in ascending order, which is what top-to-bottom page scheduling
// needs. Insert and delete shift the tail, trading O(n) mutation for
// ordered iteration without a second structure.
package indexset

import "sort"

// Set is a sorted collection of distinct non-negative integers.
// The zero value is an empty set ready for use.
type Set struct {
	items []int
}

// New returns an empty set.
func New() *Set { return &Set{} }

// Len reports the number of members.
func (s *Set) Len() int { return len(s.items) }

// Contains reports whether item is a member.
func (s *Set) Contains(item int) bool {
	i := sort.SearchInts(s.items, item)
	return i < len(s.items) && s.items[i] == item
}

// Add inserts item, keeping the set sorted. Adding an existing member is
// a no-op.
func (s *Set) Add(item int) {
	i := sort.SearchInts(s.items, item)
	if i < len(s.items) && s.items[i] == item {
		return
	}
	s.items = append(s.items, 0)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
}

// Delete removes item if present. Deleting a non-member is a no-op.
func (s *Set) Delete(item int) {
	i := sort.SearchInts(s.items, item)
	if i >= len(s.items) || s.items[i] != item {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// Values returns the members in ascending order. The slice is a copy.
func (s *Set) Values() []int {
	out := make([]int, len(s.items))
	copy(out, s.items)
	return out
}

// Min returns the smallest member, or -1 if the set is empty.
func (s *Set) Min() int {
	if len(s.items) == 0 {
		return -1
	}
	return s.items[0]
}

// Max returns the largest member, or -1 if the set is empty.
func (s *Set) Max() int {
	if len(s.items) == 0 {
		return -1
	}
	return s.items[len(s.items)-1]
}

// Clear removes all members.
func (s *Set) Clear() { s.items = s.items[:0] }
