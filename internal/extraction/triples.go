// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"sort"
)

// TripleSet is an unordered collection of triples. Adding a triple that is
// already present has no effect.
type TripleSet map[Triple]struct{}

// NewTripleSet builds a set from the given triples.
func NewTripleSet(triples ...Triple) TripleSet {
	s := make(TripleSet, len(triples))
	for _, t := range triples {
		s[t] = struct{}{}
	}
	return s
}

func (s TripleSet) Add(t Triple) {
	s[t] = struct{}{}
}

func (s TripleSet) Has(t Triple) bool {
	_, ok := s[t]
	return ok
}

// Intersect returns the number of triples present in both sets.
func (s TripleSet) Intersect(other TripleSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if large.Has(t) {
			n++
		}
	}
	return n
}

// Difference returns the triples of s that are not in other.
func (s TripleSet) Difference(other TripleSet) TripleSet {
	out := make(TripleSet)
	for t := range s {
		if !other.Has(t) {
			out.Add(t)
		}
	}
	return out
}

// Sorted returns the triples ordered by subject, relation and object.
// The result is never nil.
func (s TripleSet) Sorted() []Triple {
	out := make([]Triple, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Relation != b.Relation {
			return a.Relation < b.Relation
		}
		return a.Object < b.Object
	})
	return out
}
