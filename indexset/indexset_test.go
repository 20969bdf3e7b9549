package indexset

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSet_Basics(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("new set not empty: %d", s.Len())
	}
	s.Add(3)
	s.Add(1)
	s.Add(2)
	if !s.Contains(1) || !s.Contains(2) || !s.Contains(3) {
		t.Fatalf("missing members: %v", s.Values())
	}
	if got := s.Values(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("values not ascending: %v", got)
	}
	s.Delete(2)
	if s.Contains(2) {
		t.Fatalf("delete left member behind: %v", s.Values())
	}
	if got := s.Values(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected values after delete: %v", got)
	}
}

func TestSet_Idempotent(t *testing.T) {
	s := New()
	s.Add(7)
	s.Add(7)
	if s.Len() != 1 {
		t.Fatalf("duplicate add grew the set: %v", s.Values())
	}
	s.Delete(9) // absent
	if s.Len() != 1 {
		t.Fatalf("delete of absent item mutated the set: %v", s.Values())
	}
}

func TestSet_MinMax(t *testing.T) {
	s := New()
	if s.Min() != -1 || s.Max() != -1 {
		t.Fatalf("empty set min/max: %d %d", s.Min(), s.Max())
	}
	for _, v := range []int{5, 0, 9, 2} {
		s.Add(v)
	}
	if s.Min() != 0 || s.Max() != 9 {
		t.Fatalf("min/max wrong: %d %d", s.Min(), s.Max())
	}
}

func TestSet_RandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New()
	ref := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := rng.Intn(64)
		if rng.Intn(2) == 0 {
			s.Add(v)
			ref[v] = true
		} else {
			s.Delete(v)
			delete(ref, v)
		}
		got := s.Values()
		if !sort.IntsAreSorted(got) {
			t.Fatalf("step %d: not sorted: %v", i, got)
		}
		if len(got) != len(ref) {
			t.Fatalf("step %d: size mismatch: %d vs %d", i, len(got), len(ref))
		}
		for _, m := range got {
			if !ref[m] {
				t.Fatalf("step %d: stray member %d", i, m)
			}
		}
	}
}

func TestSet_Clear(t *testing.T) {
	s := New()
	s.Add(1)
	s.Add(2)
	s.Clear()
	if s.Len() != 0 || s.Contains(1) {
		t.Fatalf("clear did not empty the set: %v", s.Values())
	}
}
