package topo

import (
	"slices"

	"github.com/aretw0/topoedit/pkg/domain"
)

// IDSet is a sorted set of entity ids. Iteration order is deterministic,
// which keeps generated names stable across replays.
type IDSet []domain.ID

// Has reports whether id is in the set.
func (s IDSet) Has(id domain.ID) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

// Add returns the set with id inserted.
func (s IDSet) Add(id domain.ID) IDSet {
	i, ok := slices.BinarySearch(s, id)
	if ok {
		return s
	}
	return slices.Insert(s, i, id)
}

// Remove returns the set without id.
func (s IDSet) Remove(id domain.ID) IDSet {
	i, ok := slices.BinarySearch(s, id)
	if !ok {
		return s
	}
	return slices.Delete(s, i, i+1)
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// NewIDSet builds a set from arbitrary ids.
func NewIDSet(ids ...domain.ID) IDSet {
	var s IDSet
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(o IDSet) IDSet {
	var out IDSet
	for _, id := range s {
		if o.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
